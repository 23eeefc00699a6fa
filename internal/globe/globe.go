// Package globe holds the pin-placement and camera-focus math for the 3D
// origin globe: spherical-to-Cartesian conversion, the focus-on-point
// quaternion, and rim fading for pins on the far side of the sphere. The
// browser scene consumes these values; nothing here touches rendering.
package globe

import "math"

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Length() float64 { return math.Sqrt(v.Dot(v)) }

func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// LatLonToVec3 places a geographic coordinate on a sphere of the given
// radius. Axis convention matches the scene: +Y through the north pole,
// longitude offset by 180° with a negated X so pins line up with the texture.
func LatLonToVec3(lat, lon, radius float64) Vec3 {
	phi := (90 - lat) * math.Pi / 180
	theta := (lon + 180) * math.Pi / 180
	return Vec3{
		X: -radius * math.Sin(phi) * math.Cos(theta),
		Y: radius * math.Cos(phi),
		Z: radius * math.Sin(phi) * math.Sin(theta),
	}
}

// FocusPosition is where the camera moves to look straight down at a pin:
// along the pin's surface normal at the given orbit distance.
func FocusPosition(pin Vec3, distance float64) Vec3 {
	return pin.Normalize().Scale(distance)
}

// Quaternion is a rotation; W is the scalar part.
type Quaternion struct {
	X, Y, Z, W float64
}

func IdentityQuaternion() Quaternion { return Quaternion{W: 1} }

func (q Quaternion) Length() float64 {
	return math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

func (q Quaternion) Normalize() Quaternion {
	l := q.Length()
	if l == 0 {
		return IdentityQuaternion()
	}
	return Quaternion{q.X / l, q.Y / l, q.Z / l, q.W / l}
}

// Apply rotates a vector by the quaternion.
func (q Quaternion) Apply(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	s := q.W
	// v' = 2(u·v)u + (s²-u·u)v + 2s(u×v)
	return u.Scale(2 * u.Dot(v)).
		Add(v.Scale(s*s - u.Dot(u))).
		Add(u.Cross(v).Scale(2 * s))
}

// RotationBetween returns the quaternion rotating unit direction a onto unit
// direction b.
func RotationBetween(a, b Vec3) Quaternion {
	a = a.Normalize()
	b = b.Normalize()
	d := a.Dot(b)
	if d < -0.999999 {
		// Antiparallel: rotate 180° around any axis orthogonal to a.
		axis := Vec3{1, 0, 0}.Cross(a)
		if axis.Length() < 1e-6 {
			axis = Vec3{0, 1, 0}.Cross(a)
		}
		axis = axis.Normalize()
		return Quaternion{axis.X, axis.Y, axis.Z, 0}
	}
	c := a.Cross(b)
	return Quaternion{c.X, c.Y, c.Z, 1 + d}.Normalize()
}

// FocusRotation rotates the globe so the pin faces the camera axis (+Z).
func FocusRotation(pin Vec3) Quaternion {
	return RotationBetween(pin, Vec3{0, 0, 1})
}

// Slerp interpolates between two rotations; t is clamped to [0,1]. Used to
// animate the camera focus instead of snapping.
func Slerp(a, b Quaternion, t float64) Quaternion {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}

	cosHalf := a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W
	if cosHalf < 0 {
		b = Quaternion{-b.X, -b.Y, -b.Z, -b.W}
		cosHalf = -cosHalf
	}
	if cosHalf > 0.9995 {
		// Nearly identical rotations: lerp and renormalize.
		return Quaternion{
			a.X + (b.X-a.X)*t,
			a.Y + (b.Y-a.Y)*t,
			a.Z + (b.Z-a.Z)*t,
			a.W + (b.W-a.W)*t,
		}.Normalize()
	}

	halfTheta := math.Acos(cosHalf)
	sinHalf := math.Sin(halfTheta)
	ra := math.Sin((1-t)*halfTheta) / sinHalf
	rb := math.Sin(t*halfTheta) / sinHalf
	return Quaternion{
		a.X*ra + b.X*rb,
		a.Y*ra + b.Y*rb,
		a.Z*ra + b.Z*rb,
		a.W*ra + b.W*rb,
	}
}

// Rim fade band: pins fade out as their surface normal turns away from the
// camera, reaching zero before they slip behind the horizon.
const (
	rimFadeStart = 0.25
	rimFadeEnd   = 0.0
)

// RimFade returns the pin opacity in [0,1] for the given camera position.
// Pins facing the camera are fully opaque; pins on the far hemisphere are
// invisible; the band in between gets a smoothstep falloff.
func RimFade(pin, camera Vec3) float64 {
	facing := pin.Normalize().Dot(camera.Normalize())
	if facing >= rimFadeStart {
		return 1
	}
	if facing <= rimFadeEnd {
		return 0
	}
	t := (facing - rimFadeEnd) / (rimFadeStart - rimFadeEnd)
	return t * t * (3 - 2*t)
}
