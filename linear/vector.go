// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package linear implements the matrix/vector math a draw callback's
// projection and modelview parameters use (spec §6). It carries only
// the 4x4/4-vector types that role needs; the teacher's broader 3D
// math library (M3, V3, Cross/Norm/Transpose, ...) has no caller here
// and was trimmed rather than kept unexercised.
package linear

// V4 is a 4-component vector of float32.
type V4 [4]float32

// Mul sets v to contain m ⋅ w.
func (v *V4) Mul(m *M4, w *V4) {
	*v = V4{}
	for i := range v {
		for j := range v {
			v[i] += m[j][i] * w[j]
		}
	}
}
