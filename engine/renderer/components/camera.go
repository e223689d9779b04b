package components

import (
	"github.com/chewxy/math32"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/math"
)

const (
	minNearZ      float32 = 0.01
	minDepthRange float32 = 0.1
	degenerateEps float32 = 1e-6
)

/**
 * @brief A left-handed camera described by a position and an orthonormal
 * basis. Matrices are rebuilt on demand: mutate the camera, then call
 * UpdateViewMatrix / UpdateProjectionMatrix before reading View / Proj.
 */
type Camera struct {
	position math.Vec3
	right    math.Vec3
	up       math.Vec3
	forward  math.Vec3

	nearZ            float32
	farZ             float32
	aspect           float32
	fovY             float32
	nearWindowHeight float32
	farWindowHeight  float32

	orthographic bool
	orthoSize    float32

	// orbit parameters: radius, azimuth theta and polar angle phi
	radius float32
	theta  float32
	phi    float32

	viewDirty bool
	view      math.Mat4
	proj      math.Mat4
}

func NewCamera() *Camera {
	c := &Camera{
		right:     math.NewVec3Right(),
		up:        math.NewVec3Up(),
		forward:   math.NewVec3Forward(),
		aspect:    1,
		orthoSize: 5,
		radius:    5,
		theta:     1.5 * math.K_PI,
		phi:       0.25 * math.K_PI,
		viewDirty: true,
		view:      math.NewMat4Identity(),
	}
	c.SetLens(0.25*math.K_PI, 1.0, 1000.0)
	c.UpdateProjectionMatrix()
	return c
}

/**
 * @brief Caches the frustum properties and the near/far window heights.
 *
 * @param fovY The vertical field of view in radians.
 * @param zn The near plane distance.
 * @param zf The far plane distance.
 */
func (c *Camera) SetLens(fovY, zn, zf float32) {
	c.fovY = fovY
	c.nearZ = zn
	c.farZ = zf
	c.updateWindows()
}

func (c *Camera) updateWindows() {
	half := math32.Tan(0.5 * c.fovY)
	c.nearWindowHeight = 2.0 * c.nearZ * half
	c.farWindowHeight = 2.0 * c.farZ * half
}

func (c *Camera) SetAspect(aspect float32) {
	c.aspect = aspect
}

func (c *Camera) NearZ() float32  { return c.nearZ }
func (c *Camera) FarZ() float32   { return c.farZ }
func (c *Camera) Aspect() float32 { return c.aspect }
func (c *Camera) FovY() float32   { return c.fovY }

func (c *Camera) FovX() float32 {
	halfWidth := 0.5 * c.NearWindowWidth()
	return 2.0 * math32.Atan(halfWidth/c.nearZ)
}

func (c *Camera) NearWindowWidth() float32  { return c.aspect * c.nearWindowHeight }
func (c *Camera) NearWindowHeight() float32 { return c.nearWindowHeight }
func (c *Camera) FarWindowWidth() float32   { return c.aspect * c.farWindowHeight }
func (c *Camera) FarWindowHeight() float32  { return c.farWindowHeight }

func (c *Camera) SetOrthographic(enabled bool) {
	c.orthographic = enabled
}

func (c *Camera) Orthographic() bool {
	return c.orthographic
}

func (c *Camera) SetOrthoSize(size float32) {
	c.orthoSize = size
}

func (c *Camera) Position() math.Vec3 { return c.position }
func (c *Camera) Right() math.Vec3    { return c.right }
func (c *Camera) Up() math.Vec3       { return c.up }
func (c *Camera) Forward() math.Vec3  { return c.forward }

func (c *Camera) SetPosition(position math.Vec3) {
	c.position = position
	c.viewDirty = true
}

/**
 * @brief Points the camera from eye at target. Fails with
 * core.ErrDegenerateBasis, leaving the camera untouched, when worldUp is
 * parallel to the view direction or eye equals target.
 */
func (c *Camera) LookAt(eye, target, worldUp math.Vec3) error {
	dir := target.Sub(eye)
	if dir.LengthSquared() < degenerateEps {
		return core.ErrDegenerateBasis
	}
	forward := dir.Normalize()
	right := worldUp.Cross(forward)
	if right.LengthSquared() < degenerateEps {
		return core.ErrDegenerateBasis
	}
	right = right.Normalize()
	up := forward.Cross(right)

	c.position = eye
	c.forward = forward
	c.right = right
	c.up = up
	c.viewDirty = true
	return nil
}

// Strafe moves the camera by d along its right vector.
func (c *Camera) Strafe(d float32) {
	c.position = c.position.Add(c.right.MulScalar(d))
	c.viewDirty = true
}

// Walk moves the camera by d along its forward vector.
func (c *Camera) Walk(d float32) {
	c.position = c.position.Add(c.forward.MulScalar(d))
	c.viewDirty = true
}

// Pitch rotates up and forward about the right vector.
func (c *Camera) Pitch(angle float32) {
	r := math.NewMat4RotationAxis(c.right, angle)
	c.up = c.up.TransformNormal(r)
	c.forward = c.forward.TransformNormal(r)
	c.viewDirty = true
}

// RotateY rotates the whole basis about the world Y axis.
func (c *Camera) RotateY(angle float32) {
	r := math.NewMat4RotationY(angle)
	c.right = c.right.TransformNormal(r)
	c.up = c.up.TransformNormal(r)
	c.forward = c.forward.TransformNormal(r)
	c.viewDirty = true
}

/**
 * @brief Re-orthonormalizes the basis and rebuilds the view matrix if the
 * camera moved since the last call.
 */
func (c *Camera) UpdateViewMatrix() {
	if !c.viewDirty {
		return
	}
	c.forward = c.forward.Normalize()
	c.up = c.forward.Cross(c.right).Normalize()
	c.right = c.up.Cross(c.forward)

	p := c.position
	r, u, l := c.right, c.up, c.forward
	c.view = math.Mat4{Data: [16]float32{
		r.X, u.X, l.X, 0,
		r.Y, u.Y, l.Y, 0,
		r.Z, u.Z, l.Z, 0,
		-p.Dot(r), -p.Dot(u), -p.Dot(l), 1,
	}}
	c.viewDirty = false
}

// UpdateProjectionMatrix rebuilds the perspective or orthographic projection.
func (c *Camera) UpdateProjectionMatrix() {
	if c.orthographic {
		c.farZ = math.Max(c.farZ, c.nearZ+minDepthRange)
		c.updateWindows()
		c.proj = math.NewMat4OrthographicLH(c.orthoSize, c.orthoSize, c.nearZ, c.farZ)
		return
	}
	c.nearZ = math.Max(c.nearZ, minNearZ)
	c.farZ = math.Max(c.farZ, c.nearZ+minDepthRange)
	c.updateWindows()
	c.proj = math.NewMat4PerspectiveLH(c.fovY, c.aspect, c.nearZ, c.farZ)
}

func (c *Camera) View() math.Mat4 { return c.view }
func (c *Camera) Proj() math.Mat4 { return c.proj }

// SetOrbit stores the orbit parameters. The polar angle phi is measured from
// the world up axis and theta is the azimuth measured from +Z towards +X.
func (c *Camera) SetOrbit(radius, theta, phi float32) {
	c.radius = radius
	c.theta = theta
	c.phi = phi
}

func (c *Camera) Orbit() (radius, theta, phi float32) {
	return c.radius, c.theta, c.phi
}

// OrbitPosition converts the orbit parameters to a cartesian position.
func (c *Camera) OrbitPosition() math.Vec3 {
	sinPhi, cosPhi := math32.Sincos(c.phi)
	sinTheta, cosTheta := math32.Sincos(c.theta)
	return math.NewVec3(
		c.radius*sinPhi*sinTheta,
		c.radius*cosPhi,
		c.radius*sinPhi*cosTheta,
	)
}
