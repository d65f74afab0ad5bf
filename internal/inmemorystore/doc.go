// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the nodestore.Store interface.
//
// # Concurrency Model
//
// Each kind of state lives in its own sync.Map keyed by task address. Status
// changes use CompareAndSwap so that concurrent writers to the same task
// cannot both win a transition.
package inmemorystore
