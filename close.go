package entigo

// Clear destroys every entity, drops all pending commands and refreshes all
// queries. Registered types and archetypes are kept; all handles become stale.
func (w *World) Clear() error {
	if !w.flushing.CompareAndSwap(false, true) {
		return ErrFlushInProgress
	}
	defer w.flushing.Store(false)

	w.dir.Clear()

	for _, cb := range w.producers.All() {
		cb.Reset()
	}

	w.refreshQueries()

	return nil
}

// Close clears the World and returns all staging storage to the pools.
func (w *World) Close() error {
	if err := w.Clear(); err != nil {
		return err
	}

	for _, cb := range w.producers.All() {
		cb.Release()
	}

	return nil
}
