package sim

import "math"

// Vec3 is a point in world space. Simulation movement happens on the XZ
// plane; Y is glued to terrain height by the height provider.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PlanarDistance returns the XZ-plane distance between two points.
// All range, engagement and territory checks use planar distance so that
// terrain height never affects behavior decisions.
func (v Vec3) PlanarDistance(o Vec3) float64 {
	dx := o.X - v.X
	dz := o.Z - v.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// Distance returns the full 3D distance between two points.
func (v Vec3) Distance(o Vec3) float64 {
	dx := o.X - v.X
	dy := o.Y - v.Y
	dz := o.Z - v.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
