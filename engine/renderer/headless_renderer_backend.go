package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-deform/engine/logging"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/kernel"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

const (
	// hostTaskQueueSize bounds the worker pool queue. SubmitTask blocks once it is full.
	hostTaskQueueSize = 256
	// hostChunksPerWorker splits each dispatch finer than the worker count to even out load.
	hostChunksPerWorker = 4
	// drawRecordLimit caps how many draws the headless backend keeps. Older records are dropped.
	drawRecordLimit = 256
)

// DrawRecord is one indirect draw as seen by the headless backend at EndFrame.
type DrawRecord struct {
	// Frame is the zero-based render frame the draw was issued in.
	Frame uint64
	// PipelineKey is the render pipeline the draw used.
	PipelineKey string
	// Args are the indirect arguments read from the args buffer.
	Args kernel.GPUIndirectArgs
	// Bindings snapshots every buffer bound to the draw, keyed by slot.
	Bindings map[pipeline.Slot][]byte
}

// hostBindings maps a dispatch's slots to the bound host memory.
type hostBindings map[pipeline.Slot][]byte

func (h hostBindings) Buffer(group, binding int) []byte {
	return h[pipeline.Slot{Group: group, Binding: binding}]
}

// hostDispatch is a dispatch queued until EndComputeFrame.
type hostDispatch struct {
	key         string
	kernel      pipeline.HostKernel
	bindings    hostBindings
	invocations uint64
}

// hostDraw is a draw queued until EndFrame.
type hostDraw struct {
	key        string
	indexCount int
	indirect   bind_group_provider.Buffer
	bindGroups []bind_group_provider.BindGroupProvider
}

type headlessRendererBackendImpl struct {
	mu  *sync.Mutex
	log *logrus.Entry

	pool    worker.DynamicWorkerPool
	workers int

	computeOpen bool
	dispatches  []hostDispatch

	frameOpen bool
	frame     uint64
	draws     []hostDraw
	records   []DrawRecord

	liveBuffers atomic.Int64
}

var _ RendererBackend = &headlessRendererBackendImpl{}

func newHeadlessRendererBackend(workers int) *headlessRendererBackendImpl {
	if workers < 1 {
		workers = max(runtime.NumCPU()-1, 1)
	}
	return &headlessRendererBackendImpl{
		mu:      &sync.Mutex{},
		log:     logging.WithComponent("renderer").WithField("backend", "headless"),
		pool:    worker.NewDynamicWorkerPool(workers, hostTaskQueueSize, time.Second),
		workers: workers,
	}
}

func (b *headlessRendererBackendImpl) ConfigureSurface(width, height int) {}

func (b *headlessRendererBackendImpl) SetPresentMode(mode PresentMode) {}

func (b *headlessRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if p.Shader(shader.ShaderTypeVertex) == nil || p.Shader(shader.ShaderTypeFragment) == nil {
		return errors.New("both vertex and fragment shaders must be set to create a render pipeline")
	}
	return nil
}

func (b *headlessRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	computeShader := p.Shader(shader.ShaderTypeCompute)
	if computeShader == nil {
		return errors.New("compute shader must be set to create a compute pipeline")
	}
	k := p.HostKernel()
	if k == nil {
		return fmt.Errorf("compute pipeline %q has no host kernel", p.PipelineKey())
	}
	return k.Bind(computeShader)
}

func (b *headlessRendererBackendImpl) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (bind_group_provider.Buffer, error) {
	return b.createBuffer(label, size, usage)
}

func (b *headlessRendererBackendImpl) createBuffer(label string, size uint64, usage wgpu.BufferUsage) (*hostBuffer, error) {
	if size == 0 {
		return nil, errZeroSizeBuffer
	}
	b.liveBuffers.Add(1)
	return &hostBuffer{
		label:     label,
		size:      size,
		usage:     usage,
		data:      make([]byte, size),
		onRelease: func() { b.liveBuffers.Add(-1) },
	}, nil
}

func (b *headlessRendererBackendImpl) WriteBuffer(buf bind_group_provider.Buffer, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dst, err := hostData(buf)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > buf.Size() {
		return fmt.Errorf("write of %d bytes at offset %d overruns %q (%d bytes)", len(data), offset, buf.Label(), buf.Size())
	}
	copy(dst[offset:], data)
	return nil
}

func (b *headlessRendererBackendImpl) ReadBuffer(buf bind_group_provider.Buffer) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	src, err := hostData(buf)
	if err != nil {
		return nil, err
	}
	if buf.Usage()&wgpu.BufferUsageCopySrc == 0 {
		return nil, fmt.Errorf("buffer %q lacks copy-src usage", buf.Label())
	}
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

func (b *headlessRendererBackendImpl) LiveBuffers() int {
	return int(b.liveBuffers.Load())
}

func (b *headlessRendererBackendImpl) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, indexData []byte, indexCount int) error {
	buf, err := b.createBuffer(provider.Label()+" Index Buffer", uint64(len(indexData)), wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	copy(buf.data, indexData)
	if prev := provider.IndexBuffer(); prev != nil {
		prev.Release()
	}
	provider.SetIndexBuffer(buf)
	provider.SetIndexCount(indexCount)
	return nil
}

func (b *headlessRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	for _, entry := range descriptor.Entries {
		binding := int(entry.Binding)
		buf := provider.Buffer(binding)
		if buf == nil {
			created, err := b.createBuffer(fmt.Sprintf("%s Binding %d", provider.Label(), binding), sizeForBinding(entry), usageForBinding(entry))
			if err != nil {
				return err
			}
			provider.SetBuffer(binding, created)
			continue
		}
		if err := validateBinding(entry, buf); err != nil {
			return fmt.Errorf("%s: %w", provider.Label(), err)
		}
		if _, err := hostData(buf); err != nil {
			return err
		}
	}
	provider.SetInitialized(true)
	return nil
}

// snapshotBindings maps every buffer of providers to its slot. When copyData is false
// the slices alias the buffers.
func snapshotBindings(providers []bind_group_provider.BindGroupProvider, copyData bool) (hostBindings, error) {
	bindings := make(hostBindings)
	for group, provider := range providers {
		for _, binding := range provider.Bindings() {
			data, err := hostData(provider.Buffer(binding))
			if err != nil {
				return nil, fmt.Errorf("group %d binding %d: %w", group, binding, err)
			}
			if copyData {
				data = append([]byte(nil), data...)
			}
			bindings[pipeline.Slot{Group: group, Binding: binding}] = data
		}
	}
	return bindings, nil
}

func (b *headlessRendererBackendImpl) BeginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.computeOpen = true
	b.dispatches = b.dispatches[:0]
	return nil
}

func (b *headlessRendererBackendImpl) DispatchCompute(p pipeline.Pipeline, providers []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.computeOpen {
		return errNoComputeFrame
	}
	if err := validateProviders(providers); err != nil {
		return err
	}
	k := p.HostKernel()
	if k == nil {
		return fmt.Errorf("compute pipeline %q has no host kernel", p.PipelineKey())
	}
	bindings, err := snapshotBindings(providers, false)
	if err != nil {
		return err
	}

	size := p.Shader(shader.ShaderTypeCompute).WorkgroupSize()
	invocations := uint64(1)
	for i := range 3 {
		invocations *= uint64(workGroupCount[i]) * uint64(size[i])
	}

	b.dispatches = append(b.dispatches, hostDispatch{
		key:         p.PipelineKey(),
		kernel:      k,
		bindings:    bindings,
		invocations: invocations,
	})
	return nil
}

func (b *headlessRendererBackendImpl) EndComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.computeOpen {
		return errNoComputeFrame
	}
	b.computeOpen = false

	// Dispatches run in submission order, so a later one sees an earlier one's writes.
	for _, d := range b.dispatches {
		b.run(d)
	}
	b.dispatches = b.dispatches[:0]
	return nil
}

// run splits a dispatch into chunks on the worker pool and blocks until all of them finish.
func (b *headlessRendererBackendImpl) run(d hostDispatch) {
	if d.invocations == 0 {
		return
	}
	if b.pool == nil {
		for inv := range d.invocations {
			d.kernel.Invoke(uint32(inv), d.bindings)
		}
		return
	}
	chunks := uint64(b.workers * hostChunksPerWorker)
	chunkSize := max((d.invocations+chunks-1)/chunks, 1)

	var wg sync.WaitGroup
	id := 0
	for start := uint64(0); start < d.invocations; start += chunkSize {
		end := min(start+chunkSize, d.invocations)
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				for inv := start; inv < end; inv++ {
					d.kernel.Invoke(uint32(inv), d.bindings)
				}
				return nil, nil
			},
		})
		id++
	}
	wg.Wait()
	b.log.Debugf("dispatched %s: %d invocations in %d tasks", d.key, d.invocations, id)
}

func (b *headlessRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameOpen {
		return fmt.Errorf("previous frame not yet presented")
	}
	b.frameOpen = true
	b.draws = b.draws[:0]
	return nil
}

func (b *headlessRendererBackendImpl) DrawCallIndirect(p pipeline.Pipeline, meshProvider bind_group_provider.BindGroupProvider, indirectBuffer bind_group_provider.Buffer, bindGroups []bind_group_provider.BindGroupProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.frameOpen {
		return errNoRenderFrame
	}
	if err := validateIndirectDraw(meshProvider, indirectBuffer); err != nil {
		return err
	}
	if err := validateProviders(bindGroups); err != nil {
		return err
	}
	if _, err := hostData(indirectBuffer); err != nil {
		return err
	}

	b.draws = append(b.draws, hostDraw{
		key:        p.PipelineKey(),
		indexCount: meshProvider.IndexCount(),
		indirect:   indirectBuffer,
		bindGroups: append([]bind_group_provider.BindGroupProvider(nil), bindGroups...),
	})
	return nil
}

func (b *headlessRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.frameOpen {
		return errNoRenderFrame
	}
	b.frameOpen = false
	frame := b.frame
	b.frame++

	var errs []error
	for _, d := range b.draws {
		record, err := b.record(frame, d)
		if err != nil {
			errs = append(errs, fmt.Errorf("draw %q: %w", d.key, err))
			continue
		}
		b.records = append(b.records, record)
	}
	if over := len(b.records) - drawRecordLimit; over > 0 {
		b.records = append(b.records[:0], b.records[over:]...)
	}
	b.draws = b.draws[:0]
	return errors.Join(errs...)
}

// record reads the args of a queued draw, checks them against the mesh and snapshots its bindings.
func (b *headlessRendererBackendImpl) record(frame uint64, d hostDraw) (DrawRecord, error) {
	raw, err := hostData(d.indirect)
	if err != nil {
		return DrawRecord{}, err
	}
	args, err := kernel.UnmarshalIndirectArgs(raw)
	if err != nil {
		return DrawRecord{}, err
	}
	if uint64(args.FirstIndex)+uint64(args.IndexCount) > uint64(d.indexCount) {
		return DrawRecord{}, fmt.Errorf("indices [%d, %d) exceed index buffer of %d", args.FirstIndex, args.FirstIndex+args.IndexCount, d.indexCount)
	}
	bindings, err := snapshotBindings(d.bindGroups, true)
	if err != nil {
		return DrawRecord{}, err
	}
	return DrawRecord{
		Frame:       frame,
		PipelineKey: d.key,
		Args:        args,
		Bindings:    bindings,
	}, nil
}

func (b *headlessRendererBackendImpl) Present() {}

func (b *headlessRendererBackendImpl) DrawRecords() []DrawRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]DrawRecord(nil), b.records...)
}

func (b *headlessRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pool == nil {
		return
	}
	b.pool.Stop()
	b.pool = nil
	b.records = nil
}
