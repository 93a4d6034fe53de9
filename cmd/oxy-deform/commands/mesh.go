package commands

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deform/engine/config"
	"github.com/Carmen-Shannon/oxy-deform/engine/model"
)

// newMesh builds the configured primitive.
func newMesh(cfg config.DeformConfig) (model.Mesh, error) {
	switch cfg.Mesh {
	case "quad":
		return model.NewQuad(), nil
	case "plane":
		return model.NewGridPlane(cfg.Subdivisions, cfg.Size), nil
	case "sphere":
		return model.NewUVSphere(cfg.Subdivisions, cfg.Subdivisions*2, cfg.Size/2), nil
	default:
		return nil, fmt.Errorf("unknown mesh %q", cfg.Mesh)
	}
}
