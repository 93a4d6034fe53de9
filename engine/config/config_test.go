package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-deform/engine/camera"
	"github.com/Carmen-Shannon/oxy-deform/engine/deform"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/pipeline"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, deform.DefaultSlots(), cfg.Deform.Slots)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
renderer:
  backend: headless
  msaa: 1
deform:
  mesh: sphere
  radius: 0.5
  slots:
    vertices: positions
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "headless", cfg.Renderer.Backend)
	assert.Equal(t, "sphere", cfg.Deform.Mesh)
	assert.InDelta(t, 0.5, cfg.Deform.Radius, 1e-6)
	assert.Equal(t, "positions", cfg.Deform.Slots.Vertices)
	assert.Equal(t, "initial_vertices", cfg.Deform.Slots.InitialVertices, "unset keys keep defaults")
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "deform:\n  frames: 10\n")
	t.Setenv("OXY_DEFORM_FRAMES", "42")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Deform.Frames)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"backend": "renderer:\n  backend: vulkan\n",
		"msaa":    "renderer:\n  msaa: 3\n",
		"mesh":    "deform:\n  mesh: teapot\n",
		"level":   "logging:\n  level: loud\n",
		"radius":  "deform:\n  radius: -1\n",
		"fov":     "camera:\n  fov: 180\n",
		"limits":  "window:\n  min_width: 4000\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParsers(t *testing.T) {
	backend, err := ParseBackend("Headless")
	require.NoError(t, err)
	assert.Equal(t, renderer.BackendTypeHeadless, backend)
	_, err = ParseBackend("metal")
	assert.Error(t, err)

	mode, err := ParsePresentMode("uncapped")
	require.NoError(t, err)
	assert.Equal(t, renderer.PresentModeUncapped, mode)

	msaa, err := ParseMSAA(4)
	require.NoError(t, err)
	assert.Equal(t, renderer.MSAA4x, msaa)
	_, err = ParseMSAA(2)
	assert.Error(t, err)

	opts, err := DefaultConfig().RendererOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 5)
}

func TestProgramOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Deform.Cull = "back"
	cfg.Deform.Translucent = true

	opts, err := cfg.ProgramOptions()
	require.NoError(t, err)
	p := pipeline.NewPipeline("program", pipeline.PipelineTypeRender, opts...)
	assert.Equal(t, wgpu.CullModeBack, p.CullMode())
	assert.True(t, p.BlendEnabled())
	assert.False(t, p.DepthWriteEnabled())

	cfg.Deform.Cull = "sideways"
	_, err = cfg.ProgramOptions()
	assert.Error(t, err)
	assert.Error(t, cfg.Validate())
}

func TestCameraOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Camera.Fov = 90
	require.NoError(t, cfg.Validate())

	got := camera.NewCamera(append(cfg.CameraOptions(), camera.WithAspect(1))...).ViewProjectionMatrix()
	want := camera.NewCamera(camera.WithFov(math32.Pi/2), camera.WithAspect(1)).ViewProjectionMatrix()
	assert.InDeltaSlice(t, want[:], got[:], 1e-5)

	def := camera.NewCamera(append(DefaultConfig().CameraOptions(), camera.WithAspect(1))...).ViewProjectionMatrix()
	base := camera.NewCamera(camera.WithAspect(1)).ViewProjectionMatrix()
	assert.InDeltaSlice(t, base[:], def[:], 1e-5)
}
