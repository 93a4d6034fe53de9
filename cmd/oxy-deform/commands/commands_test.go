package commands

import (
	"hash/fnv"
	"testing"

	"github.com/Carmen-Shannon/oxy-deform/engine/config"
	"github.com/Carmen-Shannon/oxy-deform/engine/deform"
	"github.com/Carmen-Shannon/oxy-deform/engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Renderer.Backend = "headless"
	cfg.Deform.Subdivisions = 4
	cfg.Deform.Size = 2
	cfg.Deform.Radius = 0.25
	cfg.Deform.Frames = 5
	cfg.Deform.Workers = 2
	return cfg
}

func TestNewMesh(t *testing.T) {
	cfg := testConfig().Deform

	tests := []struct {
		mesh     string
		vertices int
	}{
		{"quad", 4},
		{"plane", 25},
		{"sphere", 5 * 9},
	}
	for _, tt := range tests {
		t.Run(tt.mesh, func(t *testing.T) {
			cfg.Mesh = tt.mesh
			m, err := newMesh(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.vertices, m.VertexCount())
		})
	}

	cfg.Mesh = "teapot"
	_, err := newMesh(cfg)
	assert.Error(t, err)
}

func TestWaveClock(t *testing.T) {
	c := newWaveClock(0.1, 2)
	c.advance(0.5)
	assert.Equal(t, float32(0.5), c.snapshot().Time)

	c.togglePause()
	c.advance(1)
	assert.Equal(t, float32(0.5), c.snapshot().Time)
	assert.Contains(t, c.String(), "[paused]")

	c.adjust(-1, 0.5)
	p := c.snapshot()
	assert.Zero(t, p.Radius)
	assert.Equal(t, float32(2.5), p.Velocity)

	c.reset()
	assert.Zero(t, c.snapshot().Time)
}

func TestRenderHeadlessMatchesHostDeformation(t *testing.T) {
	cfg := testConfig()
	summary, err := renderHeadless(cfg, "headless", false)
	require.NoError(t, err)
	assert.Equal(t, uint64(cfg.Deform.Frames), summary.Frames)
	assert.Equal(t, 25, summary.Vertices)
	assert.Greater(t, summary.MaxDisplacement, float32(0))
	assert.LessOrEqual(t, summary.MaxDisplacement, cfg.Deform.Radius*1.0001)

	mesh, err := newMesh(cfg.Deform)
	require.NoError(t, err)
	initial, err := model.ExtractVertices(mesh)
	require.NoError(t, err)
	last := deform.Params{
		Time:     float32(cfg.Deform.Frames-1) * headlessStep,
		Radius:   cfg.Deform.Radius,
		Velocity: cfg.Deform.Velocity,
	}
	h := fnv.New64a()
	h.Write(model.MarshalVertexRecords(last.ApplyAll(initial)))
	assert.Equal(t, h.Sum64(), summary.Checksum)

	again, err := renderHeadless(cfg, "headless", false)
	require.NoError(t, err)
	assert.Equal(t, summary, again)
}

func TestRenderHeadlessZeroRadius(t *testing.T) {
	cfg := testConfig()
	cfg.Deform.Radius = 0
	summary, err := renderHeadless(cfg, "headless", false)
	require.NoError(t, err)
	assert.Zero(t, summary.MaxDisplacement)
}

func TestRenderHeadlessRejectsUnknownBackend(t *testing.T) {
	_, err := renderHeadless(testConfig(), "vulkan", false)
	assert.Error(t, err)
}
