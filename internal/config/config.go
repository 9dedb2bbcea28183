package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/surface-sampler/core"
)

// Instrument is the static setup of one sampling instrument, the
// equivalent of its part config.
type Instrument struct {
	Name string `yaml:"name"`

	Probe ProbeConfig `yaml:"probe"`

	// AnimationCue and AudioCue name optional host cues played on deploy.
	AnimationCue string `yaml:"animation"`
	AudioCue     string `yaml:"audio"`

	Experiments ExperimentIDs `yaml:"experiments"`

	Rerunnable     bool    `yaml:"rerunnable"`
	TransmitScalar float64 `yaml:"transmit_scalar"`

	ForeignBodyPrefix string   `yaml:"foreign_body_prefix"`
	TerrainLayers     []string `yaml:"terrain_layers"`
	MaxAncestorDepth  int      `yaml:"max_ancestor_depth"`

	CaptureRadius float64       `yaml:"capture_radius"`
	ScanInterval  time.Duration `yaml:"scan_interval"`
	MaxWarp       float64       `yaml:"max_warp"`

	DefaultDeployTime time.Duration `yaml:"default_deploy_time"`
	MessageDuration   time.Duration `yaml:"message_duration"`

	// ActionName overrides the deploy action label shown to the user.
	ActionName string `yaml:"action_name"`
}

// ProbeConfig locates the probe on the part. Distance is in part units and
// is scaled by the part's rescale factor at deploy time; an unusable value
// is reported then, not at load.
type ProbeConfig struct {
	Transform string  `yaml:"transform"`
	Distance  float64 `yaml:"distance"`
}

// ExperimentIDs selects the experiment per classification.
type ExperimentIDs struct {
	Surface  string `yaml:"surface"`
	Asteroid string `yaml:"asteroid"`
}

// Load reads an instrument config from a YAML file.
func Load(path string) (*Instrument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes, defaults and validates an instrument config.
func Parse(raw []byte) (*Instrument, error) {
	var cfg Instrument
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode instrument config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied.
func Default() *Instrument {
	var cfg Instrument
	cfg.applyDefaults()
	return &cfg
}

func (c *Instrument) applyDefaults() {
	if c.Name == "" {
		c.Name = "surface-sampler"
	}
	if c.Experiments.Surface == "" {
		c.Experiments.Surface = "surfaceSample"
	}
	if c.Experiments.Asteroid == "" {
		c.Experiments.Asteroid = "asteroidSample"
	}
	if c.TransmitScalar == 0 {
		c.TransmitScalar = 0.25
	}
	if c.ForeignBodyPrefix == "" {
		c.ForeignBodyPrefix = core.DefaultForeignBodyPrefix
	}
	if len(c.TerrainLayers) == 0 {
		c.TerrainLayers = []string{core.LayerLocalScenery.String()}
	}
	if c.MaxAncestorDepth == 0 {
		c.MaxAncestorDepth = core.DefaultMaxAncestorDepth
	}
	if c.CaptureRadius == 0 {
		c.CaptureRadius = core.DefaultCaptureRadius
	}
	if c.ScanInterval == 0 {
		c.ScanInterval = core.DefaultScanInterval
	}
	if c.MaxWarp == 0 {
		c.MaxWarp = core.DefaultMaxWarp
	}
	if c.DefaultDeployTime == 0 {
		c.DefaultDeployTime = 2 * time.Second
	}
	if c.MessageDuration == 0 {
		c.MessageDuration = 5 * time.Second
	}
	if c.ActionName == "" {
		c.ActionName = "Collect Sample"
	}
}

func (c *Instrument) validate() error {
	if c.TransmitScalar < 0 || c.TransmitScalar > 1 {
		return fmt.Errorf("transmit_scalar must be within [0,1], got %v", c.TransmitScalar)
	}
	if _, err := c.Layers(); err != nil {
		return err
	}
	if c.MaxAncestorDepth < 0 || c.MaxAncestorDepth > core.DefaultMaxAncestorDepth {
		return fmt.Errorf("max_ancestor_depth must be within [1,%d], got %d", core.DefaultMaxAncestorDepth, c.MaxAncestorDepth)
	}
	if c.CaptureRadius < 0 {
		return fmt.Errorf("capture_radius must be positive, got %v", c.CaptureRadius)
	}
	if c.ScanInterval < 0 || c.DefaultDeployTime < 0 {
		return fmt.Errorf("scan_interval and default_deploy_time must not be negative")
	}
	if c.MaxWarp < 1 {
		return fmt.Errorf("max_warp must be at least 1, got %v", c.MaxWarp)
	}
	return nil
}

// Layers resolves TerrainLayers into named layers.
func (c *Instrument) Layers() ([]core.Layer, error) {
	layers := make([]core.Layer, 0, len(c.TerrainLayers))
	for _, name := range c.TerrainLayers {
		l, err := core.ParseLayer(name)
		if err != nil {
			return nil, fmt.Errorf("terrain_layers: %w", err)
		}
		layers = append(layers, l)
	}
	return layers, nil
}

// Classifier builds the target classifier described by the config.
func (c *Instrument) Classifier() (*core.Classifier, error) {
	layers, err := c.Layers()
	if err != nil {
		return nil, err
	}
	return &core.Classifier{
		ForeignBodyPrefix: c.ForeignBodyPrefix,
		TerrainLayers:     layers,
		MaxAncestorDepth:  c.MaxAncestorDepth,
	}, nil
}
