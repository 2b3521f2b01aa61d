// Package config loads layerviz settings from a TOML file.
//
// Settings start from [Default] and are overlaid by the file, so a config
// file only needs the keys it changes:
//
//	[limits]
//	max_neurons = 500
//
//	[weights]
//	mode = "random"
//
//	[store]
//	backend = "sqlite"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/layerviz/pkg/animate"
	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/errors"
	"github.com/matzehuels/layerviz/pkg/layout"
	"github.com/matzehuels/layerviz/pkg/scene"
	"github.com/matzehuels/layerviz/pkg/weights"
)

// AppName names the config and cache directories.
const AppName = "layerviz"

// FileName is the config file name inside the config directory.
const FileName = "config.toml"

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config is the complete settings tree.
type Config struct {
	Layout    Layout    `toml:"layout"`
	Limits    Limits    `toml:"limits"`
	Scene     Scene     `toml:"scene"`
	Animation Animation `toml:"animation"`
	Weights   Weights   `toml:"weights"`
	Cache     Cache     `toml:"cache"`
	Store     Store     `toml:"store"`
	Server    Server    `toml:"server"`
}

// Layout holds the position resolver spacings.
type Layout struct {
	LayerSpacing  float64 `toml:"layer_spacing"`
	NeuronSpacing float64 `toml:"neuron_spacing"`
}

// Limits holds registry policy.
type Limits struct {
	MaxNeurons int `toml:"max_neurons"`
}

// Scene holds scene assembly defaults.
type Scene struct {
	NeuronRadius   float64 `toml:"neuron_radius"`
	NeuronColor    string  `toml:"neuron_color"`
	CameraDistance float64 `toml:"camera_distance"`
	FOV            float64 `toml:"fov"`
}

// Animation holds the render loop cadence.
type Animation struct {
	FPS            int           `toml:"fps"`
	RotationSpeed  float64       `toml:"rotation_speed"`
	WeightInterval time.Duration `toml:"weight_interval"`
}

// Weights selects the edge weight provider.
type Weights struct {
	Mode string `toml:"mode"`
	Seed uint64 `toml:"seed"`
}

// Cache configures the artifact cache. RedisAddr switches from the file
// cache to Redis.
type Cache struct {
	Dir       string        `toml:"dir"`
	RedisAddr string        `toml:"redis_addr"`
	TTL       time.Duration `toml:"ttl"`
	Disabled  bool          `toml:"disabled"`
}

// Store configures project persistence.
type Store struct {
	Backend       string `toml:"backend"`
	Path          string `toml:"path"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Layout: Layout{
			LayerSpacing:  layout.DefaultLayerSpacing,
			NeuronSpacing: layout.DefaultNeuronSpacing,
		},
		Limits: Limits{MaxNeurons: arch.DefaultMaxNeurons},
		Scene: Scene{
			NeuronRadius:   scene.DefaultNeuronRadius,
			NeuronColor:    scene.DefaultNeuronColor,
			CameraDistance: scene.DefaultCameraDistance,
			FOV:            scene.DefaultFOV,
		},
		Animation: Animation{
			FPS:            animate.DefaultFPS,
			RotationSpeed:  animate.DefaultRotationSpeed,
			WeightInterval: animate.DefaultWeightInterval,
		},
		Weights: Weights{Mode: string(weights.ModeStable)},
		Cache:   Cache{TTL: 24 * time.Hour},
		Store:   Store{Backend: BackendFile, MongoDatabase: AppName},
		Server:  Server{Addr: "127.0.0.1:8080"},
	}
}

// Dir returns the layerviz config directory, honouring XDG_CONFIG_HOME.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// Path returns the default config file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads the file at path over the defaults. An empty path means the
// default location; a missing file at the default location is not an
// error, but a missing explicit path is.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Decode overlays TOML data onto cfg. Unknown keys are rejected so typos
// do not silently fall back to defaults.
func Decode(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.New(errors.ErrCodeInvalidFormat, "unknown config key %q", undecoded[0].String())
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	switch {
	case c.Layout.LayerSpacing <= 0:
		return invalid("layout.layer_spacing must be positive")
	case c.Layout.NeuronSpacing <= 0:
		return invalid("layout.neuron_spacing must be positive")
	case c.Limits.MaxNeurons < 1:
		return invalid("limits.max_neurons must be at least 1")
	case c.Scene.NeuronRadius <= 0:
		return invalid("scene.neuron_radius must be positive")
	case c.Scene.FOV <= 0 || c.Scene.FOV >= 180:
		return invalid("scene.fov must be between 0 and 180")
	case c.Animation.FPS < 1 || c.Animation.FPS > animate.MaxFPS:
		return invalid(fmt.Sprintf("animation.fps must be between 1 and %d", animate.MaxFPS))
	case c.Animation.WeightInterval < 0:
		return invalid("animation.weight_interval must not be negative")
	case c.Cache.TTL < 0:
		return invalid("cache.ttl must not be negative")
	}
	if _, err := weights.ParseMode(c.Weights.Mode); err != nil {
		return err
	}
	switch c.Store.Backend {
	case BackendFile, BackendSQLite:
	case BackendMongo:
		if c.Store.MongoURI == "" {
			return invalid("store.mongo_uri is required for the mongo backend")
		}
	default:
		return invalid(fmt.Sprintf("unknown store.backend %q (must be file, sqlite or mongo)", c.Store.Backend))
	}
	return nil
}

func invalid(msg string) error {
	return errors.New(errors.ErrCodeInvalidInput, "%s", msg)
}

// LayoutOptions converts the layout section to resolver options.
func (c Config) LayoutOptions() []layout.Option {
	return []layout.Option{
		layout.WithLayerSpacing(c.Layout.LayerSpacing),
		layout.WithNeuronSpacing(c.Layout.NeuronSpacing),
	}
}

// SceneOptions converts the scene section to scene assembly options.
func (c Config) SceneOptions() scene.Options {
	return scene.Options{
		NeuronRadius:   c.Scene.NeuronRadius,
		NeuronColor:    c.Scene.NeuronColor,
		CameraDistance: c.Scene.CameraDistance,
		FOV:            c.Scene.FOV,
	}
}

// AnimationOptions converts the animation section to loop options. A
// weight_interval of 0 turns weight changes off.
func (c Config) AnimationOptions() animate.Options {
	interval := c.Animation.WeightInterval
	if interval == 0 {
		interval = animate.NoWeightChanges
	}
	return animate.Options{
		FPS:            c.Animation.FPS,
		RotationSpeed:  c.Animation.RotationSpeed,
		WeightInterval: interval,
	}
}

// WeightMode returns the parsed weight mode. Validate has already
// rejected unknown modes.
func (c Config) WeightMode() weights.Mode {
	m, _ := weights.ParseMode(c.Weights.Mode)
	return m
}
