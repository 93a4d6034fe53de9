package commands

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-deform/common"
	"github.com/Carmen-Shannon/oxy-deform/engine"
	"github.com/Carmen-Shannon/oxy-deform/engine/camera"
	"github.com/Carmen-Shannon/oxy-deform/engine/config"
	"github.com/Carmen-Shannon/oxy-deform/engine/deform"
	"github.com/Carmen-Shannon/oxy-deform/engine/logging"
	"github.com/Carmen-Shannon/oxy-deform/engine/model"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deform/engine/window"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	radiusStep   = 0.01
	velocityStep = 0.25

	titleInterval = 250 * time.Millisecond
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Deform a mesh in a window",
	Long: `Open a window and deform the configured mesh every frame.

Controls:
  Up/Down     radius
  Left/Right  velocity
  Space       pause
  R           restart the wave
  P           toggle frame stats
  Drag        orbit
  Scroll      zoom
  Escape      quit`,
	RunE: runWindowed,
}

func init() {
	runCmd.Flags().Bool("profile", false, "log frame stats every second")
	rootCmd.AddCommand(runCmd)
}

func runWindowed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.WithComponent("cli")

	mesh, err := newMesh(cfg.Deform)
	if err != nil {
		return err
	}
	opts, err := cfg.RendererOptions()
	if err != nil {
		return err
	}

	win := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
		window.WithSizeLimits(cfg.Window.MinWidth, cfg.Window.MinHeight, cfg.Window.MaxWidth, cfg.Window.MaxHeight),
	)
	r := renderer.NewRenderer(renderer.BackendTypeWGPU, win, opts...)
	defer r.Release()

	cam := camera.NewCamera(append(cfg.CameraOptions(),
		camera.WithAspect(float32(win.Width())/float32(win.Height())),
		camera.WithClipPlanes(0.01, 1000),
		camera.WithController(camera.NewOrbitController(
			camera.WithRadius(cfg.Deform.Size*1.5+2),
			camera.WithElevation(0.5),
			camera.WithRadiusBounds(0.5, 200),
		)),
	)...)
	cam.Update()

	d, err := newDeformer(r, mesh, cfg, deform.WithCamera(cam))
	if err != nil {
		return err
	}

	clock := newWaveClock(cfg.Deform.Radius, cfg.Deform.Velocity)
	profile, _ := cmd.Flags().GetBool("profile")

	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithCamera(cam),
		engine.WithDeformer(0, d),
		engine.WithParamsSource(clock.snapshot),
		engine.WithProfiling(profile),
		engine.WithRenderFrameLimit(float64(cfg.Renderer.MaxFPS)),
	)
	bindControls(eng, cam, clock, profile)

	log.WithFields(logrus.Fields{
		"mesh":     mesh.Name(),
		"vertices": mesh.VertexCount(),
		"indices":  mesh.IndexCount(),
	}).Info("starting")
	eng.Run()
	log.WithField("frames", eng.Frames()).Info("stopped")
	return nil
}

// newDeformer builds and sets up a deformer over the default deformation pipelines.
func newDeformer(r renderer.Renderer, mesh model.Mesh, cfg *config.Config, options ...deform.DeformerBuilderOption) (deform.Deformer, error) {
	k, err := deform.NewDeformKernel()
	if err != nil {
		return nil, err
	}
	programOpts, err := cfg.ProgramOptions()
	if err != nil {
		return nil, err
	}
	p, err := deform.NewDeformProgram(programOpts...)
	if err != nil {
		return nil, err
	}

	options = append([]deform.DeformerBuilderOption{
		deform.WithLabel(mesh.Name()),
		deform.WithSlots(cfg.Deform.Slots),
	}, options...)
	d := deform.NewDeformer(r, mesh, k, p, options...)
	if err := d.Setup(); err != nil {
		return nil, fmt.Errorf("setting up %s: %w", mesh.Name(), err)
	}
	return d, nil
}

// bindControls wires keyboard and mouse input to the wave and the camera.
// Window calls stay on the message loop thread.
func bindControls(eng engine.Engine, cam camera.Camera, clock *waveClock, profiling bool) {
	win := eng.Window()
	title := func() {
		win.SetTitle(fmt.Sprintf("oxy-deform | %s", clock))
	}

	win.SetKeyDownCallback(func(keyCode uint32) {
		switch keyCode {
		case common.KeyUp:
			clock.adjust(radiusStep, 0)
		case common.KeyDown:
			clock.adjust(-radiusStep, 0)
		case common.KeyRight:
			clock.adjust(0, velocityStep)
		case common.KeyLeft:
			clock.adjust(0, -velocityStep)
		case common.KeySpace:
			clock.togglePause()
		case common.KeyR:
			clock.reset()
		case common.KeyP:
			profiling = !profiling
			if profiling {
				eng.EnableProfiler()
			} else {
				eng.DisableProfiler()
			}
		default:
			return
		}
		title()
	})

	win.SetDragCallback(func(dx, dy float32) {
		cam.Controller().Orbit(dx, -dy)
		cam.Update()
	})
	win.SetScrollCallback(func(delta float32) {
		cam.Controller().Zoom(delta)
		cam.Update()
	})

	eng.SetTickCallback(clock.advance)

	lastTitle := time.Now()
	win.SetUpdateCallback(func() {
		if time.Since(lastTitle) >= titleInterval {
			lastTitle = time.Now()
			title()
		}
	})
	title()
}
