package directory

import (
	"errors"
	"fmt"

	"github.com/hupe1980/entigo/internal/archetype"
	"github.com/hupe1980/entigo/internal/bitset"
	"github.com/hupe1980/entigo/internal/conv"
	"github.com/hupe1980/entigo/internal/debug"
	"github.com/hupe1980/entigo/internal/typereg"
	"github.com/hupe1980/entigo/model"
)

var (
	// ErrStaleHandle is returned for an entity whose version no longer matches.
	ErrStaleHandle = errors.New("stale entity handle")

	// ErrUnknownArchetype is returned for an archetype id that was never created.
	ErrUnknownArchetype = errors.New("unknown archetype")
)

// EntityInfo is the directory record for one entity id.
type EntityInfo struct {
	// ID equals the record's own index while the entity is live. For a
	// destroyed id it links to the next free id.
	ID        uint32
	Version   uint32
	Archetype uint32
	Chunk     uint32
	Row       uint32
}

// Directory owns entity ids and the archetype list.
type Directory struct {
	reg *typereg.Registry
	cfg archetype.Config

	entities []EntityInfo
	freeHead uint32
	live     int

	archetypes []*archetype.Archetype

	// ArchetypeCreated, if set, observes every new archetype.
	ArchetypeCreated func(*archetype.Archetype)
}

// New creates an empty directory. cfg is handed to every archetype it creates.
func New(reg *typereg.Registry, cfg archetype.Config) *Directory {
	return &Directory{
		reg:      reg,
		cfg:      cfg,
		freeHead: model.NoID,
	}
}

// IsValid reports whether e refers to a live entity.
func (d *Directory) IsValid(e model.Entity) bool {
	if int(e.ID) >= len(d.entities) {
		return false
	}

	info := &d.entities[e.ID]

	return info.ID == e.ID && info.Version == e.Version
}

// Len returns the number of live entities.
func (d *Directory) Len() int { return d.live }

// Handle returns the current handle for a live entity id, as stored in chunks.
func (d *Directory) Handle(id uint32) model.Entity {
	return model.Entity{ID: id, Version: d.entities[id].Version}
}

// Info returns the record of a live entity.
func (d *Directory) Info(e model.Entity) (EntityInfo, error) {
	if !d.IsValid(e) {
		return EntityInfo{}, fmt.Errorf("%w: %s", ErrStaleHandle, e)
	}

	return d.entities[e.ID], nil
}

// Locate returns where a live entity is stored.
func (d *Directory) Locate(e model.Entity) (model.Location, error) {
	info, err := d.Info(e)
	if err != nil {
		return model.Location{}, err
	}

	return model.Location{Archetype: info.Archetype, Chunk: info.Chunk, Row: info.Row}, nil
}

// CreateEntity allocates an entity and appends its row to the archetype.
func (d *Directory) CreateEntity(archetypeID uint32) (model.Entity, model.Location, error) {
	a, err := d.archetype(archetypeID)
	if err != nil {
		return model.Entity{}, model.Location{}, err
	}

	var id uint32
	if d.freeHead != model.NoID {
		id = d.freeHead
		d.freeHead = d.entities[id].ID
	} else {
		if !conv.IDBelow(len(d.entities)) {
			panic("directory: entity id space exhausted")
		}

		id = uint32(len(d.entities)) //nolint:gosec // checked by IDBelow
		d.entities = append(d.entities, EntityInfo{Version: 1})
	}

	chunkID, _, row := a.CreateEntity(id)

	info := &d.entities[id]
	info.ID = id
	info.Archetype = archetypeID
	info.Chunk = chunkID
	info.Row = uint32(row) //nolint:gosec // row < chunk capacity
	d.live++

	return model.Entity{ID: id, Version: info.Version}, d.location(id), nil
}

// DestroyEntity removes a live entity, retires its id and bumps its version.
func (d *Directory) DestroyEntity(e model.Entity) error {
	if !d.IsValid(e) {
		return fmt.Errorf("%w: %s", ErrStaleHandle, e)
	}

	info := &d.entities[e.ID]
	a := d.archetypes[info.Archetype]

	moved := a.DestroyRow(info.Chunk, int(info.Row))
	if moved != model.NoID {
		d.relocate(moved, info.Chunk, info.Row)
	}

	info.Version++
	if info.Version == 0 {
		info.Version = 1
	}

	info.ID = d.freeHead
	d.freeHead = e.ID
	d.live--

	return nil
}

// MoveEntity migrates a live entity to another archetype, keeping the
// components both archetypes share.
func (d *Directory) MoveEntity(e model.Entity, dstArchetypeID uint32) (model.Location, error) {
	if !d.IsValid(e) {
		return model.Location{}, fmt.Errorf("%w: %s", ErrStaleHandle, e)
	}

	dst, err := d.archetype(dstArchetypeID)
	if err != nil {
		return model.Location{}, err
	}

	info := &d.entities[e.ID]
	if info.Archetype == dstArchetypeID {
		return d.location(e.ID), nil
	}

	src := d.archetypes[info.Archetype]
	srcChunk, srcRow := info.Chunk, info.Row

	chunkID, _, row, moved := archetype.CopyEntity(src, srcChunk, int(srcRow), dst)
	if moved != model.NoID {
		d.relocate(moved, srcChunk, srcRow)
	}

	info.Archetype = dstArchetypeID
	info.Chunk = chunkID
	info.Row = uint32(row) //nolint:gosec // row < chunk capacity

	return d.location(e.ID), nil
}

// FindOrCreateArchetype returns the archetype whose signature equals sig,
// creating it on first use. The bool reports whether it was created.
func (d *Directory) FindOrCreateArchetype(sig *bitset.BitSet) (uint32, bool) {
	for i, a := range d.archetypes {
		if a.Signature().Equal(sig) {
			return uint32(i), false //nolint:gosec // archetype counts stay small
		}
	}

	id := conv.MustUint32(len(d.archetypes))
	a := archetype.New(id, sig, d.reg, d.cfg)
	d.archetypes = append(d.archetypes, a)

	if d.ArchetypeCreated != nil {
		d.ArchetypeCreated(a)
	}

	return id, true
}

// Archetype returns the archetype with the given id.
func (d *Directory) Archetype(id uint32) (*archetype.Archetype, bool) {
	if int(id) >= len(d.archetypes) {
		return nil, false
	}

	return d.archetypes[id], true
}

// Archetypes returns every archetype in creation order. The slice must not be modified.
func (d *Directory) Archetypes() []*archetype.Archetype {
	return d.archetypes
}

// Clear destroys every entity and releases all chunk storage. Archetypes are
// kept. Every outstanding handle becomes stale.
func (d *Directory) Clear() {
	for _, a := range d.archetypes {
		a.Clear()
	}

	d.freeHead = model.NoID

	for i := len(d.entities) - 1; i >= 0; i-- {
		info := &d.entities[i]
		id := uint32(i) //nolint:gosec // ids are bounded by IDBelow

		if info.ID == id {
			info.Version++
			if info.Version == 0 {
				info.Version = 1
			}
		}

		info.ID = d.freeHead
		d.freeHead = id
	}

	d.live = 0
}

// relocate records that compaction moved entity id into (chunk, row).
func (d *Directory) relocate(id, chunk, row uint32) {
	info := &d.entities[id]
	debug.Assert(info.ID == id, "relocated entity %d is not live", id)
	debug.Assert(info.Chunk == chunk, "relocated entity %d changed chunk", id)

	info.Row = row
}

func (d *Directory) location(id uint32) model.Location {
	info := &d.entities[id]
	return model.Location{Archetype: info.Archetype, Chunk: info.Chunk, Row: info.Row}
}

func (d *Directory) archetype(id uint32) (*archetype.Archetype, error) {
	a, ok := d.Archetype(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownArchetype, id)
	}

	return a, nil
}
