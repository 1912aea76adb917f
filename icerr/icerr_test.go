// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package icerr

import "testing"

func TestLastError(t *testing.T) {
	ClearLastError()
	if e := LastError(); e != nil {
		t.Fatalf("LastError\nhave %v\nwant nil", e)
	}
	err := New(SanityCheckFail, "image.Decompress", "bad magic")
	if e := LastError(); e != err {
		t.Fatalf("LastError\nhave %v\nwant %v", e, err)
	}
	if err.Kind.String() != "sanity_check_fail" {
		t.Fatalf("Kind.String\nhave %q\nwant %q", err.Kind.String(), "sanity_check_fail")
	}
	ClearLastError()
	if e := LastError(); e != nil {
		t.Fatalf("LastError after clear\nhave %v\nwant nil", e)
	}
}
