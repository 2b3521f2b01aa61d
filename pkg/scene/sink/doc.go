// Package sink serialises a [scene.Scene] for its consumers.
//
//   - [RenderJSON]: the scene graph as JSON for the WebGL front end.
//   - [RenderSVG]: a static orthographic projection, rotated by the scene's
//     rotation angle about the vertical axis through the orbit target.
//   - [ToDOT] and [RenderDOT]: a Graphviz node-link diagram of the layers,
//     rendered to SVG or PNG.
//
// Sinks never modify the scene and are safe for concurrent use.
package sink
