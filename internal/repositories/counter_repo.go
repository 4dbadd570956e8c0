package repositories

// CounterRepository defines the interface for sequence allocation.
//
// Next must be a single atomic increment-and-fetch against shared storage,
// never an application-level read-modify-write: two concurrent callers for
// the same counter name must never receive the same value.
type CounterRepository interface {
	Next(name string) (int64, error)
}
