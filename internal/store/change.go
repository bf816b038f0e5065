package store

// Change is the event record published for every accepted mutation.
type Change struct {
	Key           string
	PreviousValue any
	Value         any

	// Version is the version of the snapshot this change produced.
	// It is 0 in Before hooks, which run ahead of the commit.
	Version int64
}

// Effect wires reactive behavior into a store. Effects run once, in order,
// when the store is constructed and may subscribe, read and write.
type Effect[S any] func(*Store[S]) error
