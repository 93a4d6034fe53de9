package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-deform/engine/logging"
	"github.com/sirupsen/logrus"
)

// Stats is one profiler report.
type Stats struct {
	FPS         float64
	FrameTime   time.Duration
	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	NumGC       uint32
	MaxPauseUs  uint64
	Vertices    int
}

// Profiler tracks frame rate and memory statistics and reports them through logrus
// once per update interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	vertices       int
	log            *logrus.Entry
	last           Stats
}

// NewProfiler creates a Profiler reporting every interval. Non-positive intervals default to one second.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: interval,
		log:            logging.WithComponent("profiler"),
	}
}

// SetVertices records how many vertices are deformed per frame, reported alongside FPS.
func (p *Profiler) SetVertices(n int) {
	p.vertices = n
}

// Last returns the most recent report.
func (p *Profiler) Last() Stats {
	return p.last
}

// Tick should be called once per rendered frame.
//
// Returns:
//   - bool: true if stats were reported this tick
func (p *Profiler) Tick() bool {
	p.frameCount++
	now := time.Now()
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	gcCount := p.memStats.NumGC

	// PauseNs is a circular buffer of the last 256 pauses.
	var maxPauseUs uint64
	start := p.lastGCCount
	if gcCount-start > 256 {
		start = gcCount - 256
	}
	for i := start; i < gcCount; i++ {
		maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
	}

	p.last = Stats{
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		FrameTime:   elapsed / time.Duration(p.frameCount),
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
		NumGC:       gcCount,
		MaxPauseUs:  maxPauseUs,
		Vertices:    p.vertices,
	}
	p.log.WithFields(logrus.Fields{
		"fps":           p.last.FPS,
		"frame_time":    p.last.FrameTime,
		"heap_mb":       p.last.HeapMB,
		"alloc_rate_mb": p.last.AllocRateMB,
		"sys_mb":        p.last.SysMB,
		"gc":            p.last.NumGC,
		"max_pause_us":  p.last.MaxPauseUs,
		"vertices":      p.last.Vertices,
	}).Info("frame stats")

	p.frameCount = 0
	p.lastTime = now
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
