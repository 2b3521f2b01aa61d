// Package arch is the layer registry: an ordered collection of layer
// records describing a neural-network architecture.
//
// # Records, not parallel arrays
//
// Each [Layer] carries everything that belongs to one layer: its stable ID,
// display name, neuron count, hyperparameters and skip-connection pair.
// Add, remove and reorder move whole records, so names and identifiers can
// never drift out of step with the layer they describe.
//
// # Mutations
//
// Every mutation on [Architecture] validates first and either applies
// completely or returns a coded error (see pkg/errors) leaving the
// architecture untouched:
//
//	a := arch.Default() // [3, 5, 2]
//	if err := a.Add(); errors.Is(err, errors.ErrCodeCapacity) {
//	    // ceiling reached, nothing changed
//	}
//
// Setting a layer to zero neurons is never applied. [Architecture.SetNeurons]
// reports BELOW_MINIMUM; [Architecture.SetNeuronsOrRemove] asks a confirm
// callback whether the layer should be removed instead.
//
// # Concurrency
//
// An Architecture is not safe for concurrent mutation. Surfaces that share
// one (the HTTP server) serialise access themselves.
package arch
