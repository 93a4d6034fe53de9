package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickReportsAfterInterval(t *testing.T) {
	p := NewProfiler(20 * time.Millisecond)
	p.SetVertices(81)

	assert.False(t, p.Tick())
	time.Sleep(30 * time.Millisecond)
	assert.True(t, p.Tick())

	stats := p.Last()
	assert.Greater(t, stats.FPS, 0.0)
	assert.Equal(t, 81, stats.Vertices)
	assert.Greater(t, stats.FrameTime, time.Duration(0))
	assert.False(t, p.Tick(), "the counter restarts after a report")
}

func TestDefaultInterval(t *testing.T) {
	p := NewProfiler(0)
	assert.Equal(t, time.Second, p.updateInterval)
}
