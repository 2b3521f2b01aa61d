// Package io reads and writes network architectures as JSON files.
//
// # Accepted Shapes
//
// [ReadJSON] accepts every shape the visualizer has ever written:
//
//	{"title": "xor", "layers": [2, 3, 1], "layerNames": ["in", "", "out"]}
//	{"layers": [{"neurons": 2, "activation": "relu"}, {"neuronCount": 1}]}
//	[2, 3, 1]
//	[{"neurons": 2}, {"neurons": 1}]
//
// The first object shape may also carry "weights" ([layer][from][to]) and
// "biases" ([layer][neuron]) from a network dump. Weights load into a
// [weights.Tensor] so the scene can colour edges with real values.
//
// Import builds a fresh [Network]; a failed import never touches the
// caller's architecture. Malformed input fails with INVALID_FORMAT, a bad
// layer with INVALID_LAYER and an oversized network with
// CAPACITY_EXCEEDED (see [errors.Code]).
//
// # Export
//
// [WriteJSON] writes either the [Simple] variant (counts, names and title)
// or the [Extended] variant (one descriptor per layer, including IDs and
// hyperparameters). Both round-trip: importing an export yields an equal
// architecture, except that the simple variant does not carry layer IDs.
//
// [weights.Tensor]: github.com/matzehuels/layerviz/pkg/weights.Tensor
// [errors.Code]: github.com/matzehuels/layerviz/pkg/errors.Code
package io
