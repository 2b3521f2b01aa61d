// Package layout resolves an ordered list of layer sizes into 3D neuron
// positions and the edges between adjacent layers.
//
// The mapping is direct: layer i sits on the plane x = i*LayerSpacing, its
// n neurons are spaced NeuronSpacing apart along y and centred on y = 0, and
// every neuron lies at z = 0. Adjacent layers are fully connected.
//
//	l := layout.Resolve([]int{3, 5, 2}, layout.WithLayerSpacing(2.5), layout.WithNeuronSpacing(0.8))
//	l.Layers[1] // x = 2.5, y = -1.6, -0.8, 0, 0.8, 1.6
//
// [Resolve] is pure and safe to call from any goroutine.
package layout
