// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import "testing"

func TestV4Mul(t *testing.T) {
	var m M4
	m.I()
	m[3] = V4{1, 2, 3, 1} // translation
	v := V4{0, 0, 0, 1}
	var u V4
	u.Mul(&m, &v)
	if u != (V4{1, 2, 3, 1}) {
		t.Fatalf("V4.Mul\nhave %v\nwant [1 2 3 1]", u)
	}
}

func TestM4Identity(t *testing.T) {
	var m M4
	m.I()
	v := V4{1, 2, 3, 1}
	var u V4
	u.Mul(&m, &v)
	if u != v {
		t.Fatalf("M4.I/V4.Mul\nhave %v\nwant %v", u, v)
	}
}

func TestM4InvertRoundTrip(t *testing.T) {
	// A translation by (2, -3, 5): applying it then its
	// inverse must yield the original point.
	m := M4{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {2, -3, 5, 1}}
	var inv M4
	inv.Invert(&m)
	var id M4
	id.Mul(&m, &inv)
	var want M4
	want.I()
	const eps = 1e-4
	for i := range id {
		for j := range id[i] {
			if d := id[i][j] - want[i][j]; d > eps || d < -eps {
				t.Fatalf("M4.Mul(m, inv)\nhave %v\nwant %v", id, want)
			}
		}
	}
}
