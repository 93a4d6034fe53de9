package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deform/engine/logging"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	offscreenWidth       int
	offscreenHeight      int
	hostWorkers          int
}

// Renderer defines the interface for the rendering system.
//
// The Renderer caches pipelines by key, owns the backend that creates device resources,
// and exposes a frame API: one batched compute frame followed by one render frame.
// Every buffer it hands out must be released by the caller.
type Renderer interface {
	// BackendType reports which backend this Renderer was created with.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	BackendType() RendererBackendType

	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves the entire cache of Pipelines.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines registers one or more pipelines by creating the corresponding
	// pipeline objects (render or compute) via the backend, then caching them by PipelineKey.
	// Pipelines whose keys are already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Resize configures the underlying backend to handle a new surface size.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode. A call to Resize is required afterwards.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// CreateBuffer allocates a device buffer.
	//
	// Parameters:
	//   - label: a debug label
	//   - size: the size in bytes, must be non-zero
	//   - usage: the buffer usage flags
	//
	// Returns:
	//   - bind_group_provider.Buffer: the new buffer
	//   - error: if the size is zero or the device refuses the allocation
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (bind_group_provider.Buffer, error)

	// WriteBuffer queues a write of data into buf at offset.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: the byte offset into buf
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: if buf is released or the write runs past its end
	WriteBuffer(buf bind_group_provider.Buffer, offset uint64, data []byte) error

	// ReadBuffer copies the device contents of buf back to host memory.
	// On WGPU this submits a staging copy and blocks until the map completes.
	//
	// Parameters:
	//   - buf: the buffer to read, it must have CopySrc usage
	//
	// Returns:
	//   - []byte: a copy of the buffer contents
	//   - error: if the buffer cannot be read
	ReadBuffer(buf bind_group_provider.Buffer) ([]byte, error)

	// LiveBuffers returns the number of buffers created and not yet released.
	//
	// Returns:
	//   - int: the live buffer count
	LiveBuffers() int

	// InitMeshBuffers creates the index buffer from raw byte data and stores it
	// on the given BindGroupProvider for later use in draw calls.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created buffer on
	//   - indexData: little-endian uint32 indices
	//   - indexCount: the number of indices
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, indexData []byte, indexCount int) error

	// InitBindGroup builds the bind group for one group of a pipeline layout.
	// Bindings that already carry a buffer are validated against the layout entry;
	// bindings without one get an owned buffer of MinBindingSize bytes.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created bind group on
	//   - descriptor: the layout descriptor defining the bind group entries
	//
	// Returns:
	//   - error: an error if a bound buffer is too small or of the wrong usage, or creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error

	// BeginComputeFrame opens the batch that every DispatchCompute of this frame is encoded into.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginComputeFrame() error

	// DispatchCompute looks up the cached compute Pipeline by key and encodes a dispatch
	// within the current compute frame. providers[i] is bound at group i.
	//
	// Parameters:
	//   - pipelineKey: the key of a registered compute Pipeline
	//   - providers: the bind group providers, indexed by group
	//   - workGroupCount: the number of workgroups in x, y and z
	//
	// Returns:
	//   - error: if the pipeline is unknown, no compute frame is open, or a provider is not initialized
	DispatchCompute(pipelineKey string, providers []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// EndComputeFrame submits the compute batch. Dispatches are complete before the
	// next render frame reads their output.
	//
	// Returns:
	//   - error: if the submission fails
	EndComputeFrame() error

	// BeginFrame acquires the render target and begins the main render pass.
	//
	// Returns:
	//   - error: an error if the render target could not be acquired
	BeginFrame() error

	// DrawCallIndirect encodes a single indexed indirect draw within the current render pass.
	// The draw arguments are read from indirectBuffer by the device.
	//
	// Parameters:
	//   - pipelineKey: the key of a registered render Pipeline
	//   - meshProvider: the BindGroupProvider holding the index buffer
	//   - indirectBuffer: a buffer with Indirect usage holding a 20-byte GPUIndirectArgs
	//   - bindGroups: the bind group providers, indexed by group
	//
	// Returns:
	//   - error: if the pipeline is not found or a resource is missing
	DrawCallIndirect(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, indirectBuffer bind_group_provider.Buffer, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndFrame ends the current render pass and submits it. Call Present afterwards.
	//
	// Returns:
	//   - error: if no frame is open or the submission fails
	EndFrame() error

	// Present presents the surface to the display. A no-op for offscreen and headless targets.
	Present()

	// DrawRecords returns the draws recorded by the headless backend, oldest first.
	// It is always empty on WGPU.
	//
	// Returns:
	//   - []DrawRecord: the recorded draws
	DrawRecords() []DrawRecord

	// Release releases every cached pipeline and the backend device.
	Release()
}

var _ Renderer = &renderer{}

// Surface is the window side of a WGPU renderer. window.Window satisfies it.
type Surface interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// NewRenderer creates a new Renderer instance with the specified backend type.
// With BackendTypeWGPU and a nil window the device renders into an offscreen target.
// The headless backend ignores the window.
//
// Parameters:
//   - backendType: the type of rendering backend to use
//   - window: the window to present to, or nil
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, window Surface, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:              &sync.Mutex{},
		pipelineCache:   make(map[string]pipeline.Pipeline),
		backendType:     backendType,
		offscreenWidth:  256,
		offscreenHeight: 256,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	width, height := r.offscreenWidth, r.offscreenHeight
	switch backendType {
	case BackendTypeHeadless:
		r.backend = newHeadlessRendererBackend(r.hostWorkers)
	case BackendTypeWGPU:
		fallthrough
	default:
		var surfaceDescriptor *wgpu.SurfaceDescriptor
		if window != nil {
			surfaceDescriptor = window.SurfaceDescriptor()
			width, height = window.Width(), window.Height()
		}
		r.backend = newWGPURendererBackend(surfaceDescriptor, r.forceFallbackAdapter, msaa)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(width, height)
	logging.WithComponent("renderer").Debugf("created %s renderer (%dx%d)", backendType, width, height)
	return r
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		switch p.Type() {
		case pipeline.PipelineTypeCompute:
			if err := r.backend.RegisterComputePipeline(p); err != nil {
				return fmt.Errorf("registering compute pipeline %q: %w", key, err)
			}
		case pipeline.PipelineTypeRender:
			if err := r.backend.RegisterRenderPipeline(p); err != nil {
				return fmt.Errorf("registering render pipeline %q: %w", key, err)
			}
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (bind_group_provider.Buffer, error) {
	return r.backend.CreateBuffer(label, size, usage)
}

func (r *renderer) WriteBuffer(buf bind_group_provider.Buffer, offset uint64, data []byte) error {
	return r.backend.WriteBuffer(buf, offset, data)
}

func (r *renderer) ReadBuffer(buf bind_group_provider.Buffer) ([]byte, error) {
	return r.backend.ReadBuffer(buf)
}

func (r *renderer) LiveBuffers() int {
	return r.backend.LiveBuffers()
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, indexData []byte, indexCount int) error {
	return r.backend.InitMeshBuffers(provider, indexData, indexCount)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	return r.backend.InitBindGroup(provider, descriptor)
}

func (r *renderer) BeginComputeFrame() error {
	return r.backend.BeginComputeFrame()
}

func (r *renderer) EndComputeFrame() error {
	return r.backend.EndComputeFrame()
}

func (r *renderer) DispatchCompute(pipelineKey string, providers []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("compute pipeline %q not found in cache", pipelineKey)
	}
	if p.Type() != pipeline.PipelineTypeCompute {
		return fmt.Errorf("pipeline %q is not a compute pipeline", pipelineKey)
	}

	return r.backend.DispatchCompute(p, providers, workGroupCount)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) DrawCallIndirect(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, indirectBuffer bind_group_provider.Buffer, bindGroups []bind_group_provider.BindGroupProvider) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("render pipeline %q not found in cache", pipelineKey)
	}
	if p.Type() != pipeline.PipelineTypeRender {
		return fmt.Errorf("pipeline %q is not a render pipeline", pipelineKey)
	}

	return r.backend.DrawCallIndirect(p, meshProvider, indirectBuffer, bindGroups)
}

func (r *renderer) EndFrame() error {
	return r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) DrawRecords() []DrawRecord {
	return r.backend.DrawRecords()
}

func (r *renderer) Release() {
	r.mu.Lock()
	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	r.mu.Unlock()
	r.backend.Release()
}
