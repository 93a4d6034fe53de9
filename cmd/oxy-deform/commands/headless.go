package commands

import (
	"fmt"
	"hash/fnv"

	"github.com/Carmen-Shannon/oxy-deform/engine"
	"github.com/Carmen-Shannon/oxy-deform/engine/config"
	"github.com/Carmen-Shannon/oxy-deform/engine/deform"
	"github.com/Carmen-Shannon/oxy-deform/engine/logging"
	"github.com/Carmen-Shannon/oxy-deform/engine/model"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer"
	"github.com/chewxy/math32"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// headlessStep is the simulated time between headless frames.
const headlessStep = float32(1) / 60

var headlessCmd = &cobra.Command{
	Use:   "headless",
	Short: "Render frames without a window",
	Long: `Deform and draw the configured mesh for a fixed number of frames without
presenting them, then log a checksum of the final deformed vertex buffer.

Time advances by 1/60s per frame, so the checksum is reproducible.`,
	RunE: runHeadless,
}

func init() {
	headlessCmd.Flags().Int("frames", 120, "frames to render")
	headlessCmd.Flags().String("backend", "headless", "renderer backend (headless, wgpu)")
	headlessCmd.Flags().Int("workers", 0, "host kernel workers, 0 derives the count from the CPUs")
	headlessCmd.Flags().Bool("progress", true, "show a progress bar")

	settings.BindPFlag("deform.frames", headlessCmd.Flags().Lookup("frames"))
	settings.BindPFlag("deform.workers", headlessCmd.Flags().Lookup("workers"))
	rootCmd.AddCommand(headlessCmd)
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	backendName, _ := cmd.Flags().GetString("backend")
	progress, _ := cmd.Flags().GetBool("progress")

	summary, err := renderHeadless(cfg, backendName, progress)
	if err != nil {
		return err
	}
	logging.WithComponent("cli").WithFields(logrus.Fields{
		"frames":           summary.Frames,
		"vertices":         summary.Vertices,
		"checksum":         fmt.Sprintf("%016x", summary.Checksum),
		"max_displacement": summary.MaxDisplacement,
	}).Info("headless run complete")
	return nil
}

// headlessSummary describes the deformed vertex buffer after the last frame.
type headlessSummary struct {
	Frames          uint64
	Vertices        int
	Checksum        uint64
	MaxDisplacement float32
}

// renderHeadless renders cfg.Deform.Frames frames offscreen and summarizes the result.
func renderHeadless(cfg *config.Config, backendName string, progress bool) (headlessSummary, error) {
	backend, err := config.ParseBackend(backendName)
	if err != nil {
		return headlessSummary{}, err
	}
	mesh, err := newMesh(cfg.Deform)
	if err != nil {
		return headlessSummary{}, err
	}
	opts, err := cfg.RendererOptions()
	if err != nil {
		return headlessSummary{}, err
	}

	r := renderer.NewRenderer(backend, nil, opts...)
	defer r.Release()

	d, err := newDeformer(r, mesh, cfg)
	if err != nil {
		return headlessSummary{}, err
	}
	defer d.Teardown()

	var frame int
	eng := engine.NewEngine(
		engine.WithRenderer(r),
		engine.WithDeformer(0, d),
		engine.WithParamsSource(func() *deform.Params {
			return &deform.Params{
				Time:     float32(frame) * headlessStep,
				Radius:   cfg.Deform.Radius,
				Velocity: cfg.Deform.Velocity,
			}
		}),
	)

	var bar *progressbar.ProgressBar
	if progress {
		bar = progressbar.Default(int64(cfg.Deform.Frames), "rendering")
		defer bar.Close()
	}
	for frame = 0; frame < cfg.Deform.Frames; frame++ {
		if err := eng.RenderFrame(); err != nil {
			return headlessSummary{}, fmt.Errorf("frame %d: %w", frame, err)
		}
		if bar != nil {
			if err := bar.Add(1); err != nil {
				logging.WithComponent("cli").Debugf("progress bar: %v", err)
			}
		}
	}

	return summarize(d, eng.Frames())
}

func summarize(d deform.Deformer, frames uint64) (headlessSummary, error) {
	initialData, err := d.InitialVertices()
	if err != nil {
		return headlessSummary{}, err
	}
	deformedData, err := d.DeformedVertices()
	if err != nil {
		return headlessSummary{}, err
	}

	h := fnv.New64a()
	h.Write(deformedData)

	initial, err := model.UnmarshalVertexRecords(initialData)
	if err != nil {
		return headlessSummary{}, err
	}
	deformed, err := model.UnmarshalVertexRecords(deformedData)
	if err != nil {
		return headlessSummary{}, err
	}

	var maxDisp float32
	for i := range initial {
		var sq float32
		for c := 0; c < 3; c++ {
			delta := deformed[i].Position[c] - initial[i].Position[c]
			sq += delta * delta
		}
		maxDisp = max(maxDisp, math32.Sqrt(sq))
	}

	return headlessSummary{
		Frames:          frames,
		Vertices:        len(deformed),
		Checksum:        h.Sum64(),
		MaxDisplacement: maxDisp,
	}, nil
}
