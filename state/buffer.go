// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package state

import "github.com/gviegas/compose/icerr"

var scratchSlots = [...]Slot{StrategyBuffer0, StrategyBuffer1, StrategyBuffer2, StrategyBuffer3}

func isScratchSlot(sl Slot) bool {
	for _, s := range scratchSlots {
		if sl == s {
			return true
		}
	}
	return false
}

// GetBuffer returns a byte arena of at least n bytes backing sl, one
// of the four StrategyBufferN slots (spec §4.2). The backing array is
// reallocated only when it is smaller than requested; callers must
// not retain the result across the next GetBuffer call on the same
// slot, since it may be reused or grown in place.
func (s *Store) GetBuffer(sl Slot, n int) ([]byte, error) {
	if !isScratchSlot(sl) {
		return nil, icerr.New(icerr.InvalidEnum, "state.Store.GetBuffer", "slot is not a strategy scratch buffer")
	}
	sp := &s.slots[sl]
	var cur []byte
	if sp.typ == Pointer && len(sp.ptr) == 1 {
		cur, _ = sp.ptr[0].([]byte)
	}
	if len(cur) < n {
		cur = make([]byte, n)
		*sp = slot{typ: Pointer, ptr: []any{cur}, time: s.tick()}
	}
	return cur[:n], nil
}
