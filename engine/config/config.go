package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-deform/engine/camera"
	"github.com/Carmen-Shannon/oxy-deform/engine/deform"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/pipeline"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Window   WindowConfig   `mapstructure:"window"`
	Camera   CameraConfig   `mapstructure:"camera"`
	Renderer RendererConfig `mapstructure:"renderer"`
	Deform   DeformConfig   `mapstructure:"deform"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type WindowConfig struct {
	Title  string `mapstructure:"title"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	// Resize limits in pixels.
	MinWidth  int `mapstructure:"min_width"`
	MinHeight int `mapstructure:"min_height"`
	MaxWidth  int `mapstructure:"max_width"`
	MaxHeight int `mapstructure:"max_height"`
}

type CameraConfig struct {
	// Fov is the vertical field of view in degrees.
	Fov float32 `mapstructure:"fov"`
}

type RendererConfig struct {
	Backend       string `mapstructure:"backend"`
	PresentMode   string `mapstructure:"present_mode"`
	MSAA          int    `mapstructure:"msaa"`
	ForceFallback bool   `mapstructure:"force_fallback"`
	// MaxFPS caps the engine loop, 0 runs uncapped.
	MaxFPS int `mapstructure:"max_fps"`
}

type DeformConfig struct {
	Mesh         string       `mapstructure:"mesh"`
	Subdivisions int          `mapstructure:"subdivisions"`
	Size         float32      `mapstructure:"size"`
	Radius       float32      `mapstructure:"radius"`
	Velocity     float32      `mapstructure:"velocity"`
	Frames       int          `mapstructure:"frames"`
	Workers      int          `mapstructure:"workers"`
	Cull         string       `mapstructure:"cull"`        // none, back or front
	Translucent  bool         `mapstructure:"translucent"` // blend without writing depth
	Slots        deform.Slots `mapstructure:"slots"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

var (
	validBackends     = []string{"wgpu", "headless"}
	validPresentModes = []string{"vsync", "uncapped"}
	validMeshes       = []string{"quad", "plane", "sphere"}
	validCullModes    = []string{"none", "back", "front"}
	validLevels       = []string{"trace", "debug", "info", "warn", "error"}
	validMSAA         = []int{1, 4, 8, 16}
)

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Title:     "oxy-deform",
			Width:     1280,
			Height:    720,
			MinWidth:  320,
			MinHeight: 240,
			MaxWidth:  3840,
			MaxHeight: 2160,
		},
		Camera: CameraConfig{
			Fov: 45,
		},
		Renderer: RendererConfig{
			Backend:     "wgpu",
			PresentMode: "vsync",
			MSAA:        4,
			MaxFPS:      0,
		},
		Deform: DeformConfig{
			Mesh:         "plane",
			Subdivisions: 64,
			Size:         4,
			Radius:       0.15,
			Velocity:     2,
			Frames:       120,
			Workers:      0,
			Cull:         "none",
			Slots:        deform.DefaultSlots(),
		},
		Logging: LoggingConfig{
			Level:   "info",
			File:    "",
			Console: true,
		},
	}
}

// Load loads configuration from file, environment, and defaults.
// A missing config file is not an error.
func Load(cfgFile string) (*Config, error) {
	return LoadWith(viper.New(), cfgFile)
}

// LoadWith loads configuration through v, so flags already bound to v override the file.
func LoadWith(v *viper.Viper, cfgFile string) (*Config, error) {
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".oxy-deform"))
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("OXY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Logging.File = expandPath(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.New("window.width and window.height must be positive")
	}
	if c.Window.MinWidth <= 0 || c.Window.MinHeight <= 0 ||
		c.Window.MinWidth > c.Window.MaxWidth || c.Window.MinHeight > c.Window.MaxHeight {
		return errors.New("window size limits must be positive with min not above max")
	}
	if c.Camera.Fov <= 0 || c.Camera.Fov >= 180 {
		return errors.New("camera.fov must be between 0 and 180 degrees")
	}
	if !slices.Contains(validBackends, c.Renderer.Backend) {
		return fmt.Errorf("renderer.backend must be one of: %v", validBackends)
	}
	if !slices.Contains(validPresentModes, c.Renderer.PresentMode) {
		return fmt.Errorf("renderer.present_mode must be one of: %v", validPresentModes)
	}
	if !slices.Contains(validMSAA, c.Renderer.MSAA) {
		return fmt.Errorf("renderer.msaa must be one of: %v", validMSAA)
	}
	if c.Renderer.MaxFPS < 0 {
		return errors.New("renderer.max_fps must not be negative")
	}
	if !slices.Contains(validMeshes, c.Deform.Mesh) {
		return fmt.Errorf("deform.mesh must be one of: %v", validMeshes)
	}
	if c.Deform.Subdivisions < 1 {
		return errors.New("deform.subdivisions must be at least 1")
	}
	if c.Deform.Size <= 0 {
		return errors.New("deform.size must be positive")
	}
	if c.Deform.Radius < 0 {
		return errors.New("deform.radius must not be negative")
	}
	if !slices.Contains(validCullModes, c.Deform.Cull) {
		return fmt.Errorf("deform.cull must be one of: %v", validCullModes)
	}
	if c.Deform.Frames < 0 || c.Deform.Workers < 0 {
		return errors.New("deform.frames and deform.workers must not be negative")
	}
	if !slices.Contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}
	return nil
}

// ParseBackend maps a backend name to its renderer type.
func ParseBackend(name string) (renderer.RendererBackendType, error) {
	switch strings.ToLower(name) {
	case "wgpu":
		return renderer.BackendTypeWGPU, nil
	case "headless":
		return renderer.BackendTypeHeadless, nil
	default:
		return 0, fmt.Errorf("unknown renderer backend %q", name)
	}
}

// ParsePresentMode maps a present mode name to its renderer value.
func ParsePresentMode(name string) (renderer.PresentMode, error) {
	switch strings.ToLower(name) {
	case "vsync":
		return renderer.PresentModeVSync, nil
	case "uncapped":
		return renderer.PresentModeUncapped, nil
	default:
		return 0, fmt.Errorf("unknown present mode %q", name)
	}
}

// ParseMSAA maps a sample count to its renderer value.
func ParseMSAA(samples int) (renderer.MSAASampleCount, error) {
	switch samples {
	case 1:
		return renderer.MSAAOff, nil
	case 4:
		return renderer.MSAA4x, nil
	case 8:
		return renderer.MSAA8x, nil
	case 16:
		return renderer.MSAA16x, nil
	default:
		return 0, fmt.Errorf("unsupported msaa sample count %d", samples)
	}
}

// RendererOptions translates the renderer section into renderer builder options.
func (c *Config) RendererOptions() ([]renderer.RendererBuilderOption, error) {
	mode, err := ParsePresentMode(c.Renderer.PresentMode)
	if err != nil {
		return nil, err
	}
	msaa, err := ParseMSAA(c.Renderer.MSAA)
	if err != nil {
		return nil, err
	}
	return []renderer.RendererBuilderOption{
		renderer.WithPresentMode(mode),
		renderer.WithMSAA(msaa),
		renderer.WithForceSoftwareRenderer(c.Renderer.ForceFallback),
		renderer.WithOffscreenSize(c.Window.Width, c.Window.Height),
		renderer.WithHostWorkers(c.Deform.Workers),
	}, nil
}

// CameraOptions translates the camera section into camera builder options.
func (c *Config) CameraOptions() []camera.CameraBuilderOption {
	return []camera.CameraBuilderOption{
		camera.WithFov(c.Camera.Fov * math32.Pi / 180),
	}
}

// ProgramOptions translates the deform section into render state overrides for the program.
func (c *Config) ProgramOptions() ([]pipeline.PipelineBuilderOption, error) {
	var cull wgpu.CullMode
	switch c.Deform.Cull {
	case "none":
		cull = wgpu.CullModeNone
	case "back":
		cull = wgpu.CullModeBack
	case "front":
		cull = wgpu.CullModeFront
	default:
		return nil, fmt.Errorf("unknown cull mode %q", c.Deform.Cull)
	}
	opts := []pipeline.PipelineBuilderOption{pipeline.WithCullMode(cull)}
	if c.Deform.Translucent {
		opts = append(opts,
			pipeline.WithBlendEnabled(true),
			pipeline.WithDepthWriteEnabled(false),
		)
	}
	return opts, nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("window.title", cfg.Window.Title)
	v.SetDefault("window.width", cfg.Window.Width)
	v.SetDefault("window.height", cfg.Window.Height)
	v.SetDefault("window.min_width", cfg.Window.MinWidth)
	v.SetDefault("window.min_height", cfg.Window.MinHeight)
	v.SetDefault("window.max_width", cfg.Window.MaxWidth)
	v.SetDefault("window.max_height", cfg.Window.MaxHeight)

	v.SetDefault("camera.fov", cfg.Camera.Fov)

	v.SetDefault("renderer.backend", cfg.Renderer.Backend)
	v.SetDefault("renderer.present_mode", cfg.Renderer.PresentMode)
	v.SetDefault("renderer.msaa", cfg.Renderer.MSAA)
	v.SetDefault("renderer.force_fallback", cfg.Renderer.ForceFallback)
	v.SetDefault("renderer.max_fps", cfg.Renderer.MaxFPS)

	v.SetDefault("deform.mesh", cfg.Deform.Mesh)
	v.SetDefault("deform.subdivisions", cfg.Deform.Subdivisions)
	v.SetDefault("deform.size", cfg.Deform.Size)
	v.SetDefault("deform.radius", cfg.Deform.Radius)
	v.SetDefault("deform.velocity", cfg.Deform.Velocity)
	v.SetDefault("deform.frames", cfg.Deform.Frames)
	v.SetDefault("deform.workers", cfg.Deform.Workers)
	v.SetDefault("deform.cull", cfg.Deform.Cull)
	v.SetDefault("deform.translucent", cfg.Deform.Translucent)
	v.SetDefault("deform.slots.initial_vertices", cfg.Deform.Slots.InitialVertices)
	v.SetDefault("deform.slots.deformed_vertices", cfg.Deform.Slots.DeformedVertices)
	v.SetDefault("deform.slots.params", cfg.Deform.Slots.Params)
	v.SetDefault("deform.slots.vertices", cfg.Deform.Slots.Vertices)
	v.SetDefault("deform.slots.camera", cfg.Deform.Slots.Camera)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
