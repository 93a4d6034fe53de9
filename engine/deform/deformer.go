package deform

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deform/engine/camera"
	"github.com/Carmen-Shannon/oxy-deform/engine/logging"
	"github.com/Carmen-Shannon/oxy-deform/engine/model"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/buffer_manager"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/kernel"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

// deformer is the implementation of the Deformer interface.
type deformer struct {
	mu    sync.Mutex
	state State

	label    string
	renderer renderer.Renderer
	mesh     model.Mesh
	kernel   pipeline.Pipeline
	program  pipeline.Pipeline
	slots    Slots
	bounds   Bounds
	camera   camera.Camera
	log      *logrus.Entry

	manager     buffer_manager.BufferManager
	vertexCount uint32
	initial     buffer_manager.Handle
	deformed    buffer_manager.Handle
	args        buffer_manager.Handle
	argsBuffer  bind_group_provider.Buffer

	meshProvider  bind_group_provider.BindGroupProvider
	programGroups []bind_group_provider.BindGroupProvider
	dispatcher    *Dispatcher
	drawer        *IndirectRenderer
}

// Deformer runs one mesh through a deformation kernel and draws the result indirectly.
//
// A Deformer moves through Uninitialized → Initializing → Ready → Released. Per-frame calls
// are only valid in Ready; every other call returns ErrRuntimeGuard without touching the
// device. A failed Setup releases whatever it allocated and leaves the Deformer Uninitialized.
// Teardown is terminal: a released Deformer cannot be set up again.
type Deformer interface {
	// Setup extracts the mesh, allocates and uploads the vertex, index and args buffers,
	// binds them to the kernel and program by slot name and commits the bind groups.
	//
	// Returns:
	//   - error: ErrSetup or ErrBinding wrapping the cause, or ErrRuntimeGuard outside Uninitialized
	Setup() error

	// Step runs one complete frame: a compute frame with the dispatch, then a render frame
	// with the draw, then present.
	//
	// Parameters:
	//   - params: the frame's params, or nil to keep the last ones
	//
	// Returns:
	//   - error: ErrRuntimeGuard outside Ready, or a device error
	Step(params *Params) error

	// Dispatch issues the deformation dispatch. The caller owns the compute frame.
	//
	// Parameters:
	//   - params: the frame's params, or nil to keep the last ones
	//
	// Returns:
	//   - error: ErrRuntimeGuard outside Ready, or a device error
	Dispatch(params *Params) error

	// Draw issues the indirect draw. The caller owns the render frame.
	//
	// Returns:
	//   - error: ErrRuntimeGuard outside Ready, or a device error
	Draw() error

	// Teardown releases every buffer and bind group and moves to Released. It never fails
	// and may be called any number of times.
	Teardown()

	// State returns the current lifecycle state.
	State() State

	// Label returns the label the deformer's buffers carry.
	Label() string

	// VertexCount returns the number of vertices extracted at setup.
	VertexCount() int

	// InitialVertices reads back the initial vertex buffer.
	//
	// Returns:
	//   - []byte: N*24 bytes
	//   - error: ErrRuntimeGuard outside Ready, or a readback error
	InitialVertices() ([]byte, error)

	// DeformedVertices reads back the deformed vertex buffer.
	//
	// Returns:
	//   - []byte: N*24 bytes
	//   - error: ErrRuntimeGuard outside Ready, or a readback error
	DeformedVertices() ([]byte, error)

	// IndirectArgs reads back and decodes the indirect args buffer.
	//
	// Returns:
	//   - kernel.GPUIndirectArgs: the draw arguments
	//   - error: ErrRuntimeGuard outside Ready, or a readback error
	IndirectArgs() (kernel.GPUIndirectArgs, error)
}

var _ Deformer = &deformer{}

// NewDeformer creates an Uninitialized Deformer. Nothing is allocated until Setup.
//
// Parameters:
//   - r: the renderer to allocate, dispatch and draw on
//   - mesh: the source mesh
//   - k: a compute pipeline declaring the initial and deformed vertex slots
//   - program: a render pipeline declaring the vertices slot
//   - options: variadic list of DeformerBuilderOption functions
//
// Returns:
//   - Deformer: the new deformer
func NewDeformer(r renderer.Renderer, mesh model.Mesh, k, program pipeline.Pipeline, options ...DeformerBuilderOption) Deformer {
	d := &deformer{
		label:    "deformer",
		renderer: r,
		mesh:     mesh,
		kernel:   k,
		program:  program,
		slots:    DefaultSlots(),
		bounds:   DefaultBounds(),
		log:      logging.WithComponent("deformer"),
	}
	if mesh != nil && mesh.Name() != "" {
		d.label = mesh.Name()
	}
	for _, opt := range options {
		opt(d)
	}
	d.log = d.log.WithField("deformer", d.label)
	return d
}

func (d *deformer) guard(op string, want State) error {
	if d.state != want {
		return fmt.Errorf("%w: %s in state %s", ErrRuntimeGuard, op, d.state)
	}
	return nil
}

func (d *deformer) Setup() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guard("setup", StateUninitialized); err != nil {
		return err
	}
	d.state = StateInitializing

	if err := d.setup(); err != nil {
		d.releaseResources()
		d.state = StateUninitialized
		d.log.WithError(err).Warn("setup failed")
		return err
	}
	d.state = StateReady
	d.log.WithFields(logrus.Fields{
		"vertices":   d.vertexCount,
		"indices":    d.mesh.IndexCount(),
		"workgroups": d.dispatcher.Workgroups()[0],
		"params":     d.dispatcher.HasParams(),
	}).Info("deformer ready")
	return nil
}

// setup runs the setup sequence. On error the caller releases whatever was allocated.
func (d *deformer) setup() error {
	if d.renderer == nil || d.kernel == nil || d.program == nil {
		return fmt.Errorf("%w: renderer, kernel and program are required", ErrSetup)
	}

	records, err := model.ExtractVertices(d.mesh)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSetup, err)
	}
	if d.mesh.IndexCount() == 0 {
		return fmt.Errorf("%w: mesh has no indices", ErrSetup)
	}
	d.vertexCount = uint32(len(records))

	if err := d.renderer.RegisterPipelines(d.kernel, d.program); err != nil {
		return fmt.Errorf("%w: %w", ErrSetup, err)
	}
	for _, p := range []pipeline.Pipeline{d.kernel, d.program} {
		if d.renderer.Pipeline(p.PipelineKey()) != p {
			return fmt.Errorf("%w: pipeline key %q is registered to another pipeline", ErrSetup, p.PipelineKey())
		}
	}

	d.manager = buffer_manager.NewBufferManager(d.renderer, buffer_manager.WithLogger(d.log.WithField("component", "buffer_manager")))
	vertexData := model.MarshalVertexRecords(records)
	if d.initial, err = d.allocateVertices(d.label+" initial vertices", vertexData); err != nil {
		return err
	}
	if d.deformed, err = d.allocateVertices(d.label+" deformed vertices", vertexData); err != nil {
		return err
	}

	d.meshProvider = bind_group_provider.NewBindGroupProvider(d.label + " mesh")
	if err := d.renderer.InitMeshBuffers(d.meshProvider, d.mesh.IndexData(), d.mesh.IndexCount()); err != nil {
		return fmt.Errorf("%w: index buffer: %w", ErrSetup, err)
	}

	if d.args, err = NewArgsBuilder(d.manager, d.label+" indirect args").Build(uint32(d.mesh.IndexCount()), 1); err != nil {
		return err
	}
	if d.argsBuffer, err = d.manager.Buffer(d.args); err != nil {
		return fmt.Errorf("%w: %w", ErrSetup, err)
	}

	var params buffer_manager.Handle
	if _, ok := d.kernel.ResolveSlot(d.slots.Params); ok {
		if params, err = d.allocateParams(); err != nil {
			return err
		}
	}

	if err := d.bind(params); err != nil {
		return err
	}

	kernelGroups, err := d.manager.Commit(d.kernel)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSetup, err)
	}
	if d.programGroups, err = d.manager.Commit(d.program); err != nil {
		return fmt.Errorf("%w: %w", ErrSetup, err)
	}

	if d.dispatcher, err = NewDispatcher(d.renderer, d.manager, d.kernel, kernelGroups, params, d.vertexCount); err != nil {
		return fmt.Errorf("%w: %w", ErrSetup, err)
	}

	var cameraSlot *pipeline.Slot
	if info, ok := d.program.ResolveSlot(d.slots.Camera); ok {
		cameraSlot = &pipeline.Slot{Group: info.Group, Binding: info.Binding}
	}
	d.drawer = NewIndirectRenderer(d.renderer, d.camera, cameraSlot, d.log)
	return nil
}

func (d *deformer) allocateVertices(label string, data []byte) (buffer_manager.Handle, error) {
	h, err := d.manager.Allocate(label, d.vertexCount, model.VertexRecordStride, wgpu.BufferUsageStorage)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	if err := d.manager.Upload(h, data); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	return h, nil
}

func (d *deformer) allocateParams() (buffer_manager.Handle, error) {
	var zero Params
	gpu := zero.GPU(d.vertexCount)
	h, err := d.manager.Allocate(d.label+" deform params", 1, uint32(gpu.Size()), wgpu.BufferUsageUniform)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	if err := d.manager.Upload(h, gpu.Marshal()); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	return h, nil
}

// bind resolves every slot name once. Only these calls see names; per-frame code uses slots.
func (d *deformer) bind(params buffer_manager.Handle) error {
	type binding struct {
		handle buffer_manager.Handle
		target pipeline.Pipeline
		slot   string
		bind   func(buffer_manager.Handle, pipeline.Pipeline, string) (pipeline.Slot, error)
	}
	bindings := []binding{
		{d.initial, d.kernel, d.slots.InitialVertices, d.manager.BindToKernel},
		{d.deformed, d.kernel, d.slots.DeformedVertices, d.manager.BindToKernel},
		{d.deformed, d.program, d.slots.Vertices, d.manager.BindToProgram},
	}
	if params != 0 {
		bindings = append(bindings, binding{params, d.kernel, d.slots.Params, d.manager.BindToKernel})
	}

	for _, b := range bindings {
		slot, err := b.bind(b.handle, b.target, b.slot)
		if err != nil {
			return classifyBindError(err)
		}
		d.log.WithFields(logrus.Fields{
			"pipeline": b.target.PipelineKey(), "slot": b.slot, "group": slot.Group, "binding": slot.Binding,
		}).Debug("slot resolved")
	}
	return nil
}

func classifyBindError(err error) error {
	switch {
	case errors.Is(err, buffer_manager.ErrSlotNotFound),
		errors.Is(err, buffer_manager.ErrStrideMismatch),
		errors.Is(err, buffer_manager.ErrUsageMismatch),
		errors.Is(err, buffer_manager.ErrPipelineType):
		return fmt.Errorf("%w: %w", ErrBinding, err)
	default:
		return fmt.Errorf("%w: %w", ErrSetup, err)
	}
}

func (d *deformer) Step(params *Params) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guard("step", StateReady); err != nil {
		return err
	}

	if err := d.renderer.BeginComputeFrame(); err != nil {
		return err
	}
	if err := d.dispatcher.Dispatch(params); err != nil {
		return errors.Join(err, d.renderer.EndComputeFrame())
	}
	if err := d.renderer.EndComputeFrame(); err != nil {
		return err
	}

	if err := d.renderer.BeginFrame(); err != nil {
		return err
	}
	if err := d.draw(); err != nil {
		return errors.Join(err, d.renderer.EndFrame())
	}
	if err := d.renderer.EndFrame(); err != nil {
		return err
	}
	d.renderer.Present()
	return nil
}

func (d *deformer) Dispatch(params *Params) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guard("dispatch", StateReady); err != nil {
		return err
	}
	return d.dispatcher.Dispatch(params)
}

func (d *deformer) Draw() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guard("draw", StateReady); err != nil {
		return err
	}
	return d.draw()
}

func (d *deformer) draw() error {
	_, err := d.drawer.DrawIndirect(d.meshProvider, d.program, d.programGroups, d.bounds, d.argsBuffer)
	return err
}

func (d *deformer) Teardown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateReleased {
		return
	}
	from := d.state
	d.releaseResources()
	d.state = StateReleased
	d.log.WithField("from", from.String()).Debug("deformer released")
}

// releaseResources frees everything setup allocated. It is safe on a partial setup.
func (d *deformer) releaseResources() {
	if d.manager != nil {
		d.manager.ReleaseAll()
		d.manager = nil
	}
	if d.meshProvider != nil {
		d.meshProvider.Release()
		d.meshProvider = nil
	}
	d.initial, d.deformed, d.args = 0, 0, 0
	d.argsBuffer = nil
	d.programGroups = nil
	d.dispatcher = nil
	d.drawer = nil
}

func (d *deformer) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *deformer) Label() string {
	return d.label
}

func (d *deformer) VertexCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(d.vertexCount)
}

func (d *deformer) read(op string, h func() buffer_manager.Handle) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guard(op, StateReady); err != nil {
		return nil, err
	}
	return d.manager.Read(h())
}

func (d *deformer) InitialVertices() ([]byte, error) {
	return d.read("read initial vertices", func() buffer_manager.Handle { return d.initial })
}

func (d *deformer) DeformedVertices() ([]byte, error) {
	return d.read("read deformed vertices", func() buffer_manager.Handle { return d.deformed })
}

func (d *deformer) IndirectArgs() (kernel.GPUIndirectArgs, error) {
	data, err := d.read("read indirect args", func() buffer_manager.Handle { return d.args })
	if err != nil {
		return kernel.GPUIndirectArgs{}, err
	}
	return kernel.UnmarshalIndirectArgs(data)
}
