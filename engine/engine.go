package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-deform/engine/camera"
	"github.com/Carmen-Shannon/oxy-deform/engine/deform"
	"github.com/Carmen-Shannon/oxy-deform/engine/logging"
	"github.com/Carmen-Shannon/oxy-deform/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deform/engine/window"
	"github.com/sirupsen/logrus"
)

// engine implements the Engine interface.
// Coordinates the tick, render and window goroutines.
type engine struct {
	mu sync.Mutex

	tickRateChannel chan time.Duration

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window   window.Window
	renderer renderer.Renderer
	camera   camera.Camera

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)
	paramsSource   func() *deform.Params

	deformers map[int]deform.Deformer
	frames    uint64

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	log              *logrus.Entry
}

// Engine drives a set of deformers frame by frame.
//
// Each render frame runs in two phases on one renderer: every Ready deformer dispatches
// inside a single compute frame, then every Ready deformer draws inside a single render
// frame. The compute submission always precedes the render submission, so each draw sees
// the same frame's deformation. Tick callbacks run on their own fixed-rate goroutine.
type Engine interface {
	// Window returns the window, or nil for a headless engine.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer every deformer is drawn with.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// Camera returns the camera whose aspect follows the window, or nil.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each render frame.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetParamsSource registers the function asked for the params of each frame.
	// A nil source, or a source returning nil, keeps each deformer's last params.
	//
	// Parameters:
	//   - source: the params source
	SetParamsSource(source func() *deform.Params)

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddDeformer registers a deformer at the given key. Deformers dispatch and draw
	// in ascending key order.
	//
	// Parameters:
	//   - key: the ordering key
	//   - d: the deformer, set up by the caller
	AddDeformer(key int, d deform.Deformer)

	// RemoveDeformer removes the deformer at key without tearing it down.
	//
	// Parameters:
	//   - key: the ordering key
	RemoveDeformer(key int)

	// Deformer returns the deformer at key, or nil.
	//
	// Parameters:
	//   - key: the ordering key
	//
	// Returns:
	//   - deform.Deformer: the deformer at key
	Deformer(key int) deform.Deformer

	// Deformers returns a copy of the registered deformers.
	//
	// Returns:
	//   - map[int]deform.Deformer: the deformers keyed by order
	Deformers() map[int]deform.Deformer

	// RenderFrame runs a single compute and render frame over every Ready deformer.
	// Deformers that are not Ready are skipped.
	//
	// Returns:
	//   - error: the joined dispatch, draw and frame errors
	RenderFrame() error

	// Frames returns the number of frames rendered so far.
	//
	// Returns:
	//   - uint64: the frame count
	Frames() uint64

	// Run starts the engine goroutines. With a window it runs the message loop and returns
	// when the window closes; without one it blocks until Quit.
	Run()

	// Quit signals all engine goroutines to stop, waits for them and tears down every
	// deformer. Safe to call multiple times.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine with the provided options.
// A renderer must be supplied with WithRenderer.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		deformers:       make(map[int]deform.Deformer),
		profiler:        profiler.NewProfiler(time.Second),
		engineTickRate:  time.Second / 60,
		log:             logging.WithComponent("engine"),
	}

	for _, opt := range options {
		opt(e)
	}
	if e.renderer == nil {
		panic("engine: a renderer is required")
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			e.renderer.Resize(width, height)
			if e.camera != nil && height > 0 {
				e.camera.SetAspect(float32(width) / float32(height))
			}
		})
	}
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Run() {
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.Quit()
		return
	}
	<-e.quitChannel
	e.wg.Wait()
}

func (e *engine) Quit() {
	e.signalQuit()
	e.wg.Wait()

	for _, d := range e.Deformers() {
		d.Teardown()
	}
}

// signalQuit closes the quit channel once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.quitChannel)
	})
}

// handle launches the tick and render goroutines.
func (e *engine) handle() {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate tick loop and picks up tick rate changes.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now
			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case rate := <-e.tickRateChannel:
			ticker.Reset(rate)
			e.engineTickRate = rate
		}
	}
}

// handleRender renders frames until quit. A panic is logged and stops the engine.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("panic", r).Error("render goroutine recovered from panic")
			e.signalQuit()
		}
	}()

	lastRender := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		if err := e.RenderFrame(); err != nil {
			e.log.WithError(err).Warn("frame failed")
		}
		if e.renderCallback != nil {
			e.renderCallback(dt)
		}
		if e.profilingEnabled {
			e.profiler.Tick()
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// ready returns the Ready deformers in key order.
func (e *engine) ready() []deform.Deformer {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]int, 0, len(e.deformers))
	for k := range e.deformers {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]deform.Deformer, 0, len(keys))
	for _, k := range keys {
		if d := e.deformers[k]; d.State() == deform.StateReady {
			out = append(out, d)
		}
	}
	return out
}

func (e *engine) RenderFrame() error {
	active := e.ready()
	if len(active) == 0 {
		return nil
	}

	var params *deform.Params
	if e.paramsSource != nil {
		params = e.paramsSource()
	}

	var errs []error
	if err := e.renderer.BeginComputeFrame(); err != nil {
		return fmt.Errorf("begin compute frame: %w", err)
	}
	for _, d := range active {
		if err := d.Dispatch(params); err != nil {
			errs = append(errs, fmt.Errorf("%s dispatch: %w", d.Label(), err))
		}
	}
	if err := e.renderer.EndComputeFrame(); err != nil {
		return errors.Join(append(errs, fmt.Errorf("end compute frame: %w", err))...)
	}

	if err := e.renderer.BeginFrame(); err != nil {
		return errors.Join(append(errs, fmt.Errorf("begin frame: %w", err))...)
	}
	vertices := 0
	for _, d := range active {
		if err := d.Draw(); err != nil {
			errs = append(errs, fmt.Errorf("%s draw: %w", d.Label(), err))
		}
		vertices += d.VertexCount()
	}
	if err := e.renderer.EndFrame(); err != nil {
		errs = append(errs, fmt.Errorf("end frame: %w", err))
	} else {
		e.renderer.Present()
	}

	e.mu.Lock()
	e.frames++
	e.mu.Unlock()
	e.profiler.SetVertices(vertices)
	return errors.Join(errs...)
}

func (e *engine) Frames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate takes effect immediately on a running engine.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	rate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if !running {
		e.engineTickRate = rate
		return
	}

	// Replace a pending update rather than block.
	select {
	case e.tickRateChannel <- rate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- rate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetParamsSource(source func() *deform.Params) {
	e.paramsSource = source
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) AddDeformer(key int, d deform.Deformer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deformers[key] = d
}

func (e *engine) RemoveDeformer(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.deformers, key)
}

func (e *engine) Deformer(key int) deform.Deformer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deformers[key]
}

func (e *engine) Deformers() map[int]deform.Deformer {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]deform.Deformer, len(e.deformers))
	for k, v := range e.deformers {
		cp[k] = v
	}
	return cp
}
