// Package state holds the controller's persisted state.
//
// State is a plain comparable struct with one field per persisted key.
// Store guards it with a mutex, hands out copies through Snapshot, and
// accepts mutations only through Update. Update compares the state
// before and after the closure and wakes the background saver only when
// something changed; the saver always writes the latest snapshot, so a
// burst of updates costs at most one extra write.
//
// Repository abstracts persistence. SQLiteRepository stores the snapshot
// as a versioned JSON document in the controller_state table.
//
// Usage:
//
//	store, err := state.Open(ctx, state.NewSQLiteRepository(db.DB))
//	if err != nil {
//	    return err
//	}
//	defer store.Close(context.Background())
//
//	store.Update(func(s *state.State) { s.ForcedOn = true })
package state
