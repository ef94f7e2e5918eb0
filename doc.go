// Package factory implements the configuration core of a stablecoin factory:
// a singleton, admin-gated record stored at a deterministically derived
// address.
//
// The record is created once by Initialize and changed by Update, Pause and
// Resume, each of which checks the caller against the record admin before
// validating anything else. The external stablecoin creation subsystem binds
// to the record through RequireActive and ReserveStablecoin.
//
//	f, err := factory.New(programID, factory.WithStore(store))
//	rec, err := f.Initialize(ctx, admin, 150, 30)
//	rec, err = f.Update(ctx, admin, factory.UpdateParams{
//		NewBaseFeeRate: factory.Some[uint16](50),
//	})
//
// Failed operations never write. Writes are compare-and-swap on the ETag of
// the snapshot that was read; a lost race returns ErrConflict and is not
// retried.
package factory
