package components

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/math"
)

const tol = 1e-4

func assertVec3(t *testing.T, want, got math.Vec3) {
	t.Helper()
	assertVec3Within(t, want, got, tol)
}

func assertVec3Within(t *testing.T, want, got math.Vec3, delta float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, "x of %v", got)
	assert.InDelta(t, want.Y, got.Y, delta, "y of %v", got)
	assert.InDelta(t, want.Z, got.Z, delta, "z of %v", got)
}

func assertOrthonormal(t *testing.T, c *Camera) {
	t.Helper()
	r, u, f := c.Right(), c.Up(), c.Forward()
	assert.InDelta(t, 1, r.Length(), tol)
	assert.InDelta(t, 1, u.Length(), tol)
	assert.InDelta(t, 1, f.Length(), tol)
	assert.InDelta(t, 0, r.Dot(u), tol)
	assert.InDelta(t, 0, r.Dot(f), tol)
	assert.InDelta(t, 0, u.Dot(f), tol)
	// left-handed: right x up = forward
	assertVec3(t, f, r.Cross(u))
}

func TestDefaultLensWidescreen(t *testing.T) {
	c := NewCamera()
	c.SetAspect(16.0 / 9.0)
	want := 2 * 1 * math32.Tan(math.K_PI/8) * (16.0 / 9.0)
	assert.InDelta(t, want, c.NearWindowWidth(), 1e-5)
	assert.InDelta(t, float32(1), c.NearZ(), 0)
	assert.InDelta(t, float32(1000), c.FarZ(), 0)
	assert.InDelta(t, 2*math32.Atan(0.5*c.NearWindowWidth()), c.FovX(), 1e-5)
}

func TestOrbitLooksAtOrigin(t *testing.T) {
	c := NewCamera()
	c.SetOrbit(10, 0, math.K_HALF_PI)
	pos := c.OrbitPosition()
	assertVec3(t, math.NewVec3(0, 0, 10), pos)

	require.NoError(t, c.LookAt(pos, math.NewVec3Zero(), math.NewVec3Up()))
	assertVec3(t, math.NewVec3(0, 0, -1), c.Forward())
	c.UpdateViewMatrix()
	assertOrthonormal(t, c)
}

func TestNearFarWindowsAreSimilarTriangles(t *testing.T) {
	c := NewCamera()
	c.SetLens(0.3*math.K_PI, 2, 500)
	c.SetAspect(1.5)
	assert.InDelta(t, c.NearZ()/c.FarZ(), c.NearWindowHeight()/c.FarWindowHeight(), 1e-6)
	assert.InDelta(t, c.NearZ()/c.FarZ(), c.NearWindowWidth()/c.FarWindowWidth(), 1e-6)
}

func TestBasisStaysOrthonormal(t *testing.T) {
	c := NewCamera()
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		angle := (rng.Float32() - 0.5) * math.K_PI
		switch rng.Intn(4) {
		case 0:
			c.Pitch(angle)
		case 1:
			c.RotateY(angle)
		case 2:
			c.Walk(angle)
		default:
			c.Strafe(angle)
		}
		if i%10 == 0 {
			c.UpdateViewMatrix()
			assertOrthonormal(t, c)
		}
	}
	c.UpdateViewMatrix()
	assertOrthonormal(t, c)
}

func TestInverseViewRecoversOrbitPosition(t *testing.T) {
	cases := []struct{ radius, theta, phi float32 }{
		{5, 1.5 * math.K_PI, 0.25 * math.K_PI},
		{10, 0, math.K_HALF_PI},
		{150, 2.1, 0.1},
		{0.1, -0.7, math.K_PI - 0.1},
	}
	for _, tc := range cases {
		c := NewCamera()
		c.SetOrbit(tc.radius, tc.theta, tc.phi)
		pos := c.OrbitPosition()
		require.NoError(t, c.LookAt(pos, math.NewVec3Zero(), math.NewVec3Up()))
		c.UpdateViewMatrix()

		view := c.View()
		data := make([]float64, 16)
		for i, v := range view.Data {
			data[i] = float64(v)
		}
		var inv mat.Dense
		require.NoError(t, inv.Inverse(mat.NewDense(4, 4, data)))
		delta := 1e-4 * float64(math.Max(tc.radius, 1))
		assert.InDelta(t, pos.X, inv.At(3, 0), delta)
		assert.InDelta(t, pos.Y, inv.At(3, 1), delta)
		assert.InDelta(t, pos.Z, inv.At(3, 2), delta)

		// the view maps the eye to the origin and the target onto +z
		assertVec3Within(t, math.NewVec3Zero(), pos.Transform(view), delta)
		origin := math.NewVec3Zero().Transform(view)
		assert.InDelta(t, tc.radius, origin.Z, delta)
	}
}

func TestLookAtRejectsParallelUp(t *testing.T) {
	c := NewCamera()
	c.SetPosition(math.NewVec3(1, 2, 3))
	before := *c

	err := c.LookAt(math.NewVec3(0, 5, 0), math.NewVec3Zero(), math.NewVec3Up())
	assert.ErrorIs(t, err, core.ErrDegenerateBasis)
	assert.Equal(t, before, *c)

	err = c.LookAt(math.NewVec3(1, 1, 1), math.NewVec3(1, 1, 1), math.NewVec3Up())
	assert.ErrorIs(t, err, core.ErrDegenerateBasis)
}

func TestProjectionClampsDepthRange(t *testing.T) {
	c := NewCamera()
	c.SetLens(0.25*math.K_PI, 0, 0)
	c.UpdateProjectionMatrix()
	assert.InDelta(t, float32(0.01), c.NearZ(), 1e-7)
	assert.InDelta(t, float32(0.11), c.FarZ(), 1e-6)

	c.SetOrthographic(true)
	c.SetLens(0.25*math.K_PI, 1, 1)
	c.UpdateProjectionMatrix()
	assert.InDelta(t, float32(1.1), c.FarZ(), 1e-6)
	assert.InDelta(t, 2.0/5.0, c.Proj().Data[0], 1e-6)
}

func TestFreeFlyMovesAlongBasis(t *testing.T) {
	c := NewCamera()
	c.Walk(2)
	c.Strafe(-1)
	assertVec3(t, math.NewVec3(-1, 0, 2), c.Position())

	c.RotateY(math.K_HALF_PI)
	c.UpdateViewMatrix()
	assertVec3(t, math.NewVec3(1, 0, 0), c.Forward())
	assertVec3(t, math.NewVec3(0, 0, -1), c.Right())

	c.Pitch(math.K_HALF_PI)
	c.UpdateViewMatrix()
	assertVec3(t, math.NewVec3(0, -1, 0), c.Forward())
}
