package deform

import "github.com/Carmen-Shannon/oxy-deform/common"

// DefaultBoundsSize is the edge length of the default culling box.
const DefaultBoundsSize float32 = 1000

// Bounds is an axis-aligned box used only as a culling hint for the indirect draw.
type Bounds struct {
	Center  [3]float32
	Extents [3]float32
}

// DefaultBounds returns a box centered on the origin with edge DefaultBoundsSize. It is far
// larger than any mesh the deformer is given, so deformed vertices never leave it.
//
// Returns:
//   - Bounds: the default culling box
func DefaultBounds() Bounds {
	half := DefaultBoundsSize / 2
	return Bounds{Extents: [3]float32{half, half, half}}
}

// Visible reports whether the box intersects the frustum.
func (b Bounds) Visible(f common.Frustum) bool {
	return f.IntersectsAABB(b.Center, b.Extents)
}
