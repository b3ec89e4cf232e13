// Package types defines the vector primitives shared by the model and the
// text encoder.
package types

import "golang.org/x/image/math/f32"

type Vec2 f32.Vec2
type Vec3 f32.Vec3
type Vec4 f32.Vec4

// Define a 2 component vector.
func XY(x, y float32) Vec2 {
	return Vec2{x, y}
}

// Define a 3 component vector.
func XYZ(x, y, z float32) Vec3 {
	return Vec3{x, y, z}
}

// Define a 4 component vector.
func XYZW(x, y, z, w float32) Vec4 {
	return Vec4{x, y, z, w}
}

// Identity rotation quaternion.
var IdentityQuat = Vec4{0, 0, 0, 1}

// IsZero reports whether every component is zero.
func (v Vec3) IsZero() bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

// IsOne reports whether every component is one.
func (v Vec3) IsOne() bool {
	return v[0] == 1 && v[1] == 1 && v[2] == 1
}

// XY returns the leading two components.
func (v Vec4) XY() Vec2 {
	return Vec2{v[0], v[1]}
}

// XYZ returns the leading three components.
func (v Vec4) XYZ() Vec3 {
	return Vec3{v[0], v[1], v[2]}
}
