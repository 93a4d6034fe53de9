package buffer_manager

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-deform/engine/logging"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

// Handle identifies a buffer owned by a BufferManager. The zero Handle is never allocated.
type Handle uint64

// Device is the part of the renderer a BufferManager allocates and binds through.
// renderer.Renderer satisfies it.
type Device interface {
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (bind_group_provider.Buffer, error)
	WriteBuffer(buf bind_group_provider.Buffer, offset uint64, data []byte) error
	ReadBuffer(buf bind_group_provider.Buffer) ([]byte, error)
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error
}

// Info describes a live buffer.
type Info struct {
	Label  string
	Count  uint32
	Stride uint32
	Usage  wgpu.BufferUsage
}

// Size returns the buffer size in bytes.
func (i Info) Size() uint64 {
	return uint64(i.Count) * uint64(i.Stride)
}

type entry struct {
	info   Info
	buffer bind_group_provider.Buffer
}

// bufferManager is the implementation of the BufferManager interface.
type bufferManager struct {
	mu     sync.Mutex
	device Device
	log    *logrus.Entry

	next    Handle
	entries map[Handle]*entry

	// bindings records the non-owning bindings per pipeline key until Commit.
	bindings map[string]map[pipeline.Slot]Handle
	// providers holds the committed bind groups per pipeline key.
	providers map[string][]bind_group_provider.BindGroupProvider
}

// BufferManager exclusively owns the device buffers of a deformation pipeline.
//
// Buffers are addressed by Handle. Binding a handle to a kernel or program resolves a
// WGSL variable name to a pipeline.Slot once and records a non-owning reference; Commit
// turns the recorded references into bind groups. Release is idempotent and never fails.
type BufferManager interface {
	// Allocate creates a buffer of count elements of stride bytes.
	// CopyDst and CopySrc are always added to usage so Upload and Read work.
	//
	// Parameters:
	//   - label: a debug label
	//   - count: the number of elements, must be non-zero
	//   - stride: the element size in bytes, must be non-zero
	//   - usage: the buffer usage flags
	//
	// Returns:
	//   - Handle: the handle of the new buffer
	//   - error: ErrAllocation if count or stride is zero or the device refuses the allocation
	Allocate(label string, count, stride uint32, usage wgpu.BufferUsage) (Handle, error)

	// Upload writes data into the whole buffer.
	//
	// Parameters:
	//   - h: the buffer handle
	//   - data: exactly count*stride bytes
	//
	// Returns:
	//   - error: ErrUnknownHandle or ErrSizeMismatch
	Upload(h Handle, data []byte) error

	// BindToKernel binds a buffer to a named slot of a compute pipeline.
	//
	// Parameters:
	//   - h: the buffer handle
	//   - kernel: a compute pipeline
	//   - slotName: the WGSL variable name of the slot
	//
	// Returns:
	//   - pipeline.Slot: the resolved group and binding
	//   - error: ErrUnknownHandle, ErrPipelineType, ErrSlotNotFound, ErrUsageMismatch or ErrStrideMismatch
	BindToKernel(h Handle, kernel pipeline.Pipeline, slotName string) (pipeline.Slot, error)

	// BindToProgram binds a buffer to a named slot of a render pipeline. Slots are resolved
	// against the merged vertex and fragment layout.
	//
	// Parameters:
	//   - h: the buffer handle
	//   - program: a render pipeline
	//   - slotName: the WGSL variable name of the slot
	//
	// Returns:
	//   - pipeline.Slot: the resolved group and binding
	//   - error: the same errors as BindToKernel
	BindToProgram(h Handle, program pipeline.Pipeline, slotName string) (pipeline.Slot, error)

	// Commit builds a bind group for every group the pipeline declares from the recorded
	// bindings. Slots nobody bound get a buffer owned by their provider. Committing the same
	// pipeline again releases the previous bind groups.
	//
	// Parameters:
	//   - p: the pipeline to commit
	//
	// Returns:
	//   - []bind_group_provider.BindGroupProvider: the providers, indexed by group
	//   - error: if a bind group cannot be built
	Commit(p pipeline.Pipeline) ([]bind_group_provider.BindGroupProvider, error)

	// Buffer returns the device buffer behind a handle.
	//
	// Parameters:
	//   - h: the buffer handle
	//
	// Returns:
	//   - bind_group_provider.Buffer: the buffer
	//   - error: ErrUnknownHandle
	Buffer(h Handle) (bind_group_provider.Buffer, error)

	// Info returns the element count, stride and usage of a buffer.
	//
	// Parameters:
	//   - h: the buffer handle
	//
	// Returns:
	//   - Info: the buffer description
	//   - error: ErrUnknownHandle
	Info(h Handle) (Info, error)

	// Read copies the device contents of a buffer back to the host.
	//
	// Parameters:
	//   - h: the buffer handle
	//
	// Returns:
	//   - []byte: count*stride bytes
	//   - error: ErrUnknownHandle or a readback failure
	Read(h Handle) ([]byte, error)

	// Release frees a buffer. Unknown, zero and already released handles are ignored.
	//
	// Parameters:
	//   - h: the buffer handle
	Release(h Handle)

	// ReleaseAll releases every committed bind group and every live buffer.
	ReleaseAll()

	// Live returns the number of buffers allocated and not yet released.
	//
	// Returns:
	//   - int: the live buffer count
	Live() int
}

var _ BufferManager = &bufferManager{}

// NewBufferManager creates a BufferManager allocating through device.
//
// Parameters:
//   - device: the renderer to allocate and bind through
//   - options: variadic list of BufferManagerOption functions
//
// Returns:
//   - BufferManager: the new manager
func NewBufferManager(device Device, options ...BufferManagerOption) BufferManager {
	m := &bufferManager{
		device:    device,
		log:       logging.WithComponent("buffer_manager"),
		entries:   make(map[Handle]*entry),
		bindings:  make(map[string]map[pipeline.Slot]Handle),
		providers: make(map[string][]bind_group_provider.BindGroupProvider),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *bufferManager) Allocate(label string, count, stride uint32, usage wgpu.BufferUsage) (Handle, error) {
	if count == 0 || stride == 0 {
		return 0, fmt.Errorf("%w: %q has %d elements of %d bytes", ErrAllocation, label, count, stride)
	}

	info := Info{
		Label:  label,
		Count:  count,
		Stride: stride,
		Usage:  usage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	}
	buf, err := m.device.CreateBuffer(label, info.Size(), info.Usage)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrAllocation, label, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	h := m.next
	m.entries[h] = &entry{info: info, buffer: buf}
	m.log.WithFields(logrus.Fields{"handle": h, "label": label, "bytes": info.Size()}).Debug("allocated buffer")
	return h, nil
}

func (m *bufferManager) lookup(h Handle) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return e, nil
}

func (m *bufferManager) Upload(h Handle, data []byte) error {
	e, err := m.lookup(h)
	if err != nil {
		return err
	}
	if uint64(len(data)) != e.info.Size() {
		return fmt.Errorf("%w: %q needs %d bytes, got %d", ErrSizeMismatch, e.info.Label, e.info.Size(), len(data))
	}
	return m.device.WriteBuffer(e.buffer, 0, data)
}

func (m *bufferManager) BindToKernel(h Handle, kernel pipeline.Pipeline, slotName string) (pipeline.Slot, error) {
	if kernel.Type() != pipeline.PipelineTypeCompute {
		return pipeline.Slot{}, fmt.Errorf("%w: %q is not a compute pipeline", ErrPipelineType, kernel.PipelineKey())
	}
	return m.bind(h, kernel, slotName)
}

func (m *bufferManager) BindToProgram(h Handle, program pipeline.Pipeline, slotName string) (pipeline.Slot, error) {
	if program.Type() != pipeline.PipelineTypeRender {
		return pipeline.Slot{}, fmt.Errorf("%w: %q is not a render pipeline", ErrPipelineType, program.PipelineKey())
	}
	return m.bind(h, program, slotName)
}

func (m *bufferManager) bind(h Handle, p pipeline.Pipeline, slotName string) (pipeline.Slot, error) {
	e, err := m.lookup(h)
	if err != nil {
		return pipeline.Slot{}, err
	}
	info, ok := p.ResolveSlot(slotName)
	if !ok {
		return pipeline.Slot{}, fmt.Errorf("%w: %q in %q", ErrSlotNotFound, slotName, p.PipelineKey())
	}

	switch info.Type {
	case wgpu.BufferBindingTypeUniform:
		if e.info.Usage&wgpu.BufferUsageUniform == 0 {
			return pipeline.Slot{}, fmt.Errorf("%w: %q is a uniform, %q has no uniform usage", ErrUsageMismatch, slotName, e.info.Label)
		}
	case wgpu.BufferBindingTypeStorage, wgpu.BufferBindingTypeReadOnlyStorage:
		if e.info.Usage&wgpu.BufferUsageStorage == 0 {
			return pipeline.Slot{}, fmt.Errorf("%w: %q is storage, %q has no storage usage", ErrUsageMismatch, slotName, e.info.Label)
		}
	default:
		return pipeline.Slot{}, fmt.Errorf("%w: %q is not a buffer binding", ErrUsageMismatch, slotName)
	}

	// Runtime arrays compare element stride; fixed-size types compare the whole element.
	want := info.Stride
	if want == 0 {
		want = info.Size
	}
	if want != 0 && want != uint64(e.info.Stride) {
		return pipeline.Slot{}, fmt.Errorf("%w: %q expects %d bytes per element, %q has %d",
			ErrStrideMismatch, slotName, want, e.info.Label, e.info.Stride)
	}

	slot := pipeline.Slot{Group: info.Group, Binding: info.Binding}
	m.mu.Lock()
	defer m.mu.Unlock()
	byKey, ok := m.bindings[p.PipelineKey()]
	if !ok {
		byKey = make(map[pipeline.Slot]Handle)
		m.bindings[p.PipelineKey()] = byKey
	}
	byKey[slot] = h
	m.log.WithFields(logrus.Fields{
		"handle": h, "pipeline": p.PipelineKey(), "slot": slotName, "group": slot.Group, "binding": slot.Binding,
	}).Debug("bound buffer")
	return slot, nil
}

func (m *bufferManager) Commit(p pipeline.Pipeline) ([]bind_group_provider.BindGroupProvider, error) {
	key := p.PipelineKey()
	descriptors := p.BindGroupLayoutDescriptors()
	groups := make([]int, 0, len(descriptors))
	for g := range descriptors {
		groups = append(groups, g)
	}
	sort.Ints(groups)
	groupCount := 0
	if len(groups) > 0 {
		groupCount = groups[len(groups)-1] + 1
	}

	m.mu.Lock()
	bound := make(map[pipeline.Slot]bind_group_provider.Buffer)
	for slot, h := range m.bindings[key] {
		e, ok := m.entries[h]
		if !ok {
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: %d bound at group %d binding %d of %q", ErrUnknownHandle, h, slot.Group, slot.Binding, key)
		}
		bound[slot] = e.buffer
	}
	previous := m.providers[key]
	delete(m.providers, key)
	m.mu.Unlock()

	for _, provider := range previous {
		provider.Release()
	}

	providers := make([]bind_group_provider.BindGroupProvider, groupCount)
	for g := range providers {
		provider := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("%s group %d", key, g))
		for slot, buf := range bound {
			if slot.Group == g {
				provider.BindBuffer(slot.Binding, buf)
			}
		}
		if err := m.device.InitBindGroup(provider, descriptors[g]); err != nil {
			provider.Release()
			for _, done := range providers[:g] {
				done.Release()
			}
			return nil, fmt.Errorf("committing group %d of %q: %w", g, key, err)
		}
		providers[g] = provider
	}

	m.mu.Lock()
	m.providers[key] = providers
	m.mu.Unlock()
	m.log.WithFields(logrus.Fields{"pipeline": key, "groups": groupCount}).Debug("committed bind groups")
	return providers, nil
}

func (m *bufferManager) Buffer(h Handle) (bind_group_provider.Buffer, error) {
	e, err := m.lookup(h)
	if err != nil {
		return nil, err
	}
	return e.buffer, nil
}

func (m *bufferManager) Info(h Handle) (Info, error) {
	e, err := m.lookup(h)
	if err != nil {
		return Info{}, err
	}
	return e.info, nil
}

func (m *bufferManager) Read(h Handle) ([]byte, error) {
	e, err := m.lookup(h)
	if err != nil {
		return nil, err
	}
	return m.device.ReadBuffer(e.buffer)
}

func (m *bufferManager) Release(h Handle) {
	m.mu.Lock()
	e, ok := m.entries[h]
	if ok {
		delete(m.entries, h)
		for _, byKey := range m.bindings {
			for slot, bound := range byKey {
				if bound == h {
					delete(byKey, slot)
				}
			}
		}
	}
	m.mu.Unlock()

	if !ok {
		m.log.WithField("handle", h).Debug("release of unknown handle ignored")
		return
	}
	e.buffer.Release()
	m.log.WithFields(logrus.Fields{"handle": h, "label": e.info.Label}).Debug("released buffer")
}

func (m *bufferManager) ReleaseAll() {
	m.mu.Lock()
	providers := m.providers
	m.providers = make(map[string][]bind_group_provider.BindGroupProvider)
	handles := make([]Handle, 0, len(m.entries))
	for h := range m.entries {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	// Bind groups go first, they reference the buffers below.
	for _, group := range providers {
		for _, provider := range group {
			provider.Release()
		}
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	for _, h := range handles {
		m.Release(h)
	}
}

func (m *bufferManager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
