// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package state

// identitySlots are preserved in the destination by Copy: process
// identity and group-ordering slots never travel with a state copy
// (spec §3's Context invariant).
var identitySlots = [...]Slot{Rank, NumProcesses, ReplicationGroup, CompositeOrder, ProcessOrder}

func isIdentitySlot(sl Slot) bool {
	for _, id := range identitySlots {
		if sl == id {
			return true
		}
	}
	return false
}

// Copy replaces dst's slots with src's, except for the identity
// slots (Rank, NumProcesses, ReplicationGroup, CompositeOrder,
// ProcessOrder), which dst retains unchanged (spec §8 property 6).
func Copy(dst, src *Store) {
	for i := range dst.slots {
		sl := Slot(i)
		if isIdentitySlot(sl) {
			continue
		}
		if sl >= enableBegin && sl < enableEnd {
			bit := int(sl - enableBegin)
			if src.enable.IsSet(bit) {
				dst.enable.Set(bit)
			} else {
				dst.enable.Unset(bit)
			}
			dst.slots[i].time = src.slots[i].time
			continue
		}
		dst.slots[i] = cloneSlot(src.slots[i])
	}
}

// cloneSlot copies a slot's active backing array so that dst and src
// never share a numeric or bool array after Copy. For a Pointer slot
// only the []any holder is copied: the values it holds (a callback, a
// strategy scratch buffer) are shared by dst and src.
func cloneSlot(sp slot) slot {
	switch sp.typ {
	case I16:
		sp.i16 = append([]int16(nil), sp.i16...)
	case I32:
		sp.i32 = append([]int32(nil), sp.i32...)
	case F32:
		sp.f32 = append([]float32(nil), sp.f32...)
	case F64:
		sp.f64 = append([]float64(nil), sp.f64...)
	case Bool:
		sp.b = append([]bool(nil), sp.b...)
	case Pointer:
		sp.ptr = append([]any(nil), sp.ptr...)
	}
	return sp
}
