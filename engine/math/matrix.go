package math

import "github.com/chewxy/math32"

/**
 * @brief Creates and returns an identity matrix:
 *
 * {
 *   {1, 0, 0, 0},
 *   {0, 1, 0, 0},
 *   {0, 0, 1, 0},
 *   {0, 0, 0, 1}
 * }
 */
func NewMat4Identity() Mat4 {
	out := Mat4{}
	out.Data[0] = 1.0
	out.Data[5] = 1.0
	out.Data[10] = 1.0
	out.Data[15] = 1.0
	return out
}

/**
 * @brief Returns the result of multiplying mt and other. With row vectors,
 * p * (A.Mul(B)) applies A first and then B.
 */
func (mt Mat4) Mul(other Mat4) Mat4 {
	out := Mat4{}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			sum := float32(0)
			for i := 0; i < 4; i++ {
				sum += mt.Data[row*4+i] * other.Data[i*4+col]
			}
			out.Data[row*4+col] = sum
		}
	}
	return out
}

// Row returns row i of the matrix.
func (mt Mat4) Row(i int) Vec4 {
	return Vec4{mt.Data[i*4], mt.Data[i*4+1], mt.Data[i*4+2], mt.Data[i*4+3]}
}

/**
 * @brief Returns a transposed copy of the matrix (rows->columns). Shader
 * constant buffers receive transposed matrices.
 */
func (mt Mat4) Transposed() Mat4 {
	out := Mat4{}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			out.Data[col*4+row] = mt.Data[row*4+col]
		}
	}
	return out
}

/**
 * @brief Creates and returns a left-handed perspective projection mapping
 * view-space depth [near, far] to [0, 1].
 *
 * @param fovY The vertical field of view in radians.
 * @param aspect The aspect ratio (width / height).
 * @param near The near clipping plane distance.
 * @param far The far clipping plane distance.
 */
func NewMat4PerspectiveLH(fovY, aspect, near, far float32) Mat4 {
	yScale := 1.0 / math32.Tan(fovY*0.5)
	xScale := yScale / aspect
	rangeInv := far / (far - near)

	out := Mat4{}
	out.Data[0] = xScale
	out.Data[5] = yScale
	out.Data[10] = rangeInv
	out.Data[11] = 1.0
	out.Data[14] = -near * rangeInv
	return out
}

/**
 * @brief Creates and returns a left-handed orthographic projection of a
 * width x height view volume centred on the view axis.
 */
func NewMat4OrthographicLH(width, height, near, far float32) Mat4 {
	rangeInv := 1.0 / (far - near)

	out := NewMat4Identity()
	out.Data[0] = 2.0 / width
	out.Data[5] = 2.0 / height
	out.Data[10] = rangeInv
	out.Data[14] = -near * rangeInv
	return out
}

/**
 * @brief Creates and returns a translation matrix from the given position.
 */
func NewMat4Translation(position Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[12] = position.X
	out.Data[13] = position.Y
	out.Data[14] = position.Z
	return out
}

/**
 * @brief Returns a scale matrix using the provided scale.
 */
func NewMat4Scale(scale Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[0] = scale.X
	out.Data[5] = scale.Y
	out.Data[10] = scale.Z
	return out
}

// NewMat4UniformScale returns a matrix scaling all three axes by s.
func NewMat4UniformScale(s float32) Mat4 {
	return NewMat4Scale(Vec3{s, s, s})
}

/**
 * @brief Creates a rotation matrix about the world Y axis.
 */
func NewMat4RotationY(angleRadians float32) Mat4 {
	return NewMat4RotationAxis(NewVec3Up(), angleRadians)
}

/**
 * @brief Creates a rotation matrix of angleRadians about an arbitrary axis.
 * The axis does not need to be normalized.
 */
func NewMat4RotationAxis(axis Vec3, angleRadians float32) Mat4 {
	a := axis.Normalize()
	s, c := math32.Sincos(angleRadians)
	t := 1 - c

	out := NewMat4Identity()
	out.Data[0] = t*a.X*a.X + c
	out.Data[1] = t*a.X*a.Y + s*a.Z
	out.Data[2] = t*a.X*a.Z - s*a.Y

	out.Data[4] = t*a.X*a.Y - s*a.Z
	out.Data[5] = t*a.Y*a.Y + c
	out.Data[6] = t*a.Y*a.Z + s*a.X

	out.Data[8] = t*a.X*a.Z + s*a.Y
	out.Data[9] = t*a.Y*a.Z - s*a.X
	out.Data[10] = t*a.Z*a.Z + c
	return out
}

// Determinant returns the determinant of the matrix.
func (mt Mat4) Determinant() float32 {
	m := &mt.Data
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[6] - m[4]*m[2]
	s2 := m[0]*m[7] - m[4]*m[3]
	s3 := m[1]*m[6] - m[5]*m[2]
	s4 := m[1]*m[7] - m[5]*m[3]
	s5 := m[2]*m[7] - m[6]*m[3]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[9]*m[15] - m[13]*m[11]
	c3 := m[9]*m[14] - m[13]*m[10]
	c2 := m[8]*m[15] - m[12]*m[11]
	c1 := m[8]*m[14] - m[12]*m[10]
	c0 := m[8]*m[13] - m[12]*m[9]

	return s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
}

/**
 * @brief Creates and returns an inverse of the matrix. A singular matrix
 * yields the zero matrix.
 */
func (mt Mat4) Inverse() Mat4 {
	m := &mt.Data
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[6] - m[4]*m[2]
	s2 := m[0]*m[7] - m[4]*m[3]
	s3 := m[1]*m[6] - m[5]*m[2]
	s4 := m[1]*m[7] - m[5]*m[3]
	s5 := m[2]*m[7] - m[6]*m[3]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[9]*m[15] - m[13]*m[11]
	c3 := m[9]*m[14] - m[13]*m[10]
	c2 := m[8]*m[15] - m[12]*m[11]
	c1 := m[8]*m[14] - m[12]*m[10]
	c0 := m[8]*m[13] - m[12]*m[9]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	out := Mat4{}
	if det == 0 {
		return out
	}
	d := 1.0 / det
	o := &out.Data

	o[0] = (m[5]*c5 - m[6]*c4 + m[7]*c3) * d
	o[1] = (-m[1]*c5 + m[2]*c4 - m[3]*c3) * d
	o[2] = (m[13]*s5 - m[14]*s4 + m[15]*s3) * d
	o[3] = (-m[9]*s5 + m[10]*s4 - m[11]*s3) * d

	o[4] = (-m[4]*c5 + m[6]*c2 - m[7]*c1) * d
	o[5] = (m[0]*c5 - m[2]*c2 + m[3]*c1) * d
	o[6] = (-m[12]*s5 + m[14]*s2 - m[15]*s1) * d
	o[7] = (m[8]*s5 - m[10]*s2 + m[11]*s1) * d

	o[8] = (m[4]*c4 - m[5]*c2 + m[7]*c0) * d
	o[9] = (-m[0]*c4 + m[1]*c2 - m[3]*c0) * d
	o[10] = (m[12]*s4 - m[13]*s2 + m[15]*s0) * d
	o[11] = (-m[8]*s4 + m[9]*s2 - m[11]*s0) * d

	o[12] = (-m[4]*c3 + m[5]*c1 - m[6]*c0) * d
	o[13] = (m[0]*c3 - m[1]*c1 + m[2]*c0) * d
	o[14] = (-m[12]*s3 + m[13]*s1 - m[14]*s0) * d
	o[15] = (m[8]*s3 - m[9]*s1 + m[10]*s0) * d

	return out
}
