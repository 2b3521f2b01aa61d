package cache

// SceneKeyOpts lists every input besides the architecture that changes an
// assembled scene.
type SceneKeyOpts struct {
	LayerSpacing   float64 `json:"layer_spacing"`
	NeuronSpacing  float64 `json:"neuron_spacing"`
	NeuronRadius   float64 `json:"neuron_radius"`
	NeuronColor    string  `json:"neuron_color"`
	CameraDistance float64 `json:"camera_distance"`
	FOV            float64 `json:"fov"`
	WeightMode     string  `json:"weight_mode"`
	WeightSeed     uint64  `json:"weight_seed"`
	Epoch          uint64  `json:"epoch"`
	// WeightsHash identifies supplied weight tensors; empty when the
	// weights are generated.
	WeightsHash string `json:"weights_hash,omitempty"`
}

// ArtifactKeyOpts lists the sink options for one rendered format.
type ArtifactKeyOpts struct {
	Format     string  `json:"format"`
	Width      float64 `json:"width,omitempty"`
	Height     float64 `json:"height,omitempty"`
	Labels     bool    `json:"labels,omitempty"`
	Background string  `json:"background,omitempty"`
	Detailed   bool    `json:"detailed,omitempty"`
	Rotation   float64 `json:"rotation,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	SceneKey(archHash string, opts SceneKeyOpts) string
	ArtifactKey(sceneKey string, opts ArtifactKeyOpts) string
}

// DefaultKeyer produces "scene:<hash>" and "artifact:<hash>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// SceneKey implements Keyer.
func (DefaultKeyer) SceneKey(archHash string, opts SceneKeyOpts) string {
	return hashKey(KeyTypeScene, archHash, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(sceneKey string, opts ArtifactKeyOpts) string {
	return hashKey(KeyTypeArtifact, sceneKey, opts)
}

// ScopedKeyer prefixes another keyer's keys, so several users or projects
// can share one Redis without colliding.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner (the default keyer if nil) with prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// SceneKey implements Keyer.
func (k *ScopedKeyer) SceneKey(archHash string, opts SceneKeyOpts) string {
	return k.prefix + k.inner.SceneKey(archHash, opts)
}

// ArtifactKey implements Keyer.
func (k *ScopedKeyer) ArtifactKey(sceneKey string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(sceneKey, opts)
}
