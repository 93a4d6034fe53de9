package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-deform/engine/deform"
	"github.com/Carmen-Shannon/oxy-deform/engine/model"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, options ...EngineBuilderOption) (Engine, renderer.Renderer) {
	t.Helper()
	r := renderer.NewRenderer(renderer.BackendTypeHeadless, nil, renderer.WithHostWorkers(2))
	t.Cleanup(r.Release)
	return NewEngine(append([]EngineBuilderOption{WithRenderer(r)}, options...)...), r
}

func addDeformer(t *testing.T, e Engine, key int, mesh model.Mesh, label string) deform.Deformer {
	t.Helper()
	// Deformers on one renderer share the registered pipelines.
	k, p := e.Renderer().Pipeline(deform.KernelKey), e.Renderer().Pipeline(deform.ProgramKey)
	if k == nil || p == nil {
		var err error
		k, err = deform.NewDeformKernel()
		require.NoError(t, err)
		p, err = deform.NewDeformProgram()
		require.NoError(t, err)
	}

	d := deform.NewDeformer(e.Renderer(), mesh, k, p, deform.WithLabel(label))
	t.Cleanup(d.Teardown)
	require.NoError(t, d.Setup())
	e.AddDeformer(key, d)
	return d
}

func TestNewEngineRequiresRenderer(t *testing.T) {
	assert.Panics(t, func() { NewEngine() })
}

func TestRenderFrameWithoutDeformers(t *testing.T) {
	e, r := newTestEngine(t)
	require.NoError(t, e.RenderFrame())
	assert.Zero(t, e.Frames())
	assert.Empty(t, r.DrawRecords())
}

func TestRenderFrameDeformsThenDraws(t *testing.T) {
	params := deform.Params{Time: 1.25, Radius: 0.3, Velocity: 2}
	e, r := newTestEngine(t, WithParamsSource(func() *deform.Params { return &params }))
	mesh := model.NewGridPlane(4, 2)
	d := addDeformer(t, e, 0, mesh, "plane")

	require.NoError(t, e.RenderFrame())
	assert.Equal(t, uint64(1), e.Frames())

	initial, err := model.ExtractVertices(mesh)
	require.NoError(t, err)
	got, err := d.DeformedVertices()
	require.NoError(t, err)
	want := model.MarshalVertexRecords(params.ApplyAll(initial))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("deformed vertices mismatch (-want +got):\n%s", diff)
	}

	records := r.DrawRecords()
	require.Len(t, records, 1)
	assert.Equal(t, deform.ProgramKey, records[0].PipelineKey)
	assert.Equal(t, uint32(mesh.IndexCount()), records[0].Args.IndexCount)
}

func TestRenderFrameOrdersAndSkipsDeformers(t *testing.T) {
	e, r := newTestEngine(t)
	quad := model.NewQuad()
	plane := model.NewGridPlane(2, 1)
	addDeformer(t, e, 2, plane, "plane")
	addDeformer(t, e, 1, quad, "quad")

	torn := addDeformer(t, e, 3, model.NewGridPlane(3, 1), "torn")
	torn.Teardown()

	require.NoError(t, e.RenderFrame())

	records := r.DrawRecords()
	require.Len(t, records, 2)
	assert.Equal(t, uint32(quad.IndexCount()), records[0].Args.IndexCount)
	assert.Equal(t, uint32(plane.IndexCount()), records[1].Args.IndexCount)
	assert.Len(t, e.Deformers(), 3)

	e.RemoveDeformer(3)
	assert.Nil(t, e.Deformer(3))
	assert.Len(t, e.Deformers(), 2)
}

func TestRunAndQuitHeadless(t *testing.T) {
	var rendered atomic.Int64
	reached := make(chan struct{})
	e, _ := newTestEngine(t, WithTickRate(240))
	d := addDeformer(t, e, 0, model.NewQuad(), "quad")

	e.SetRenderCallback(func(float32) {
		if rendered.Add(1) == 3 {
			close(reached)
		}
	})

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	select {
	case <-reached:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not render three frames")
	}
	e.Quit()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Quit")
	}
	assert.GreaterOrEqual(t, e.Frames(), uint64(3))
	assert.Equal(t, deform.StateReleased, d.State())

	// A second Quit is a no-op.
	e.Quit()
}

func TestTickCallbackRuns(t *testing.T) {
	ticked := make(chan struct{})
	var once atomic.Bool
	e, _ := newTestEngine(t, WithTickRate(500), WithRenderFrameLimit(120))
	e.SetTickCallback(func(dt float32) {
		if dt >= 0 && once.CompareAndSwap(false, true) {
			close(ticked)
		}
	})

	go e.Run()
	t.Cleanup(e.Quit)

	select {
	case <-ticked:
	case <-time.After(5 * time.Second):
		t.Fatal("tick callback never ran")
	}
}
