// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package state

import (
	"time"

	"github.com/gviegas/compose/icerr"
	"github.com/gviegas/compose/internal/bitvec"
)

// slot is one entry of the table: a tagged variant plus the
// modification timestamp. Only the field matching typ is meaningful.
type slot struct {
	typ  Type
	i16  []int16
	i32  []int32
	f32  []float32
	f64  []float64
	b    []bool
	ptr  []any
	time uint32
}

func (s *slot) size() int {
	switch s.typ {
	case I16:
		return len(s.i16)
	case I32:
		return len(s.i32)
	case F32:
		return len(s.f32)
	case F64:
		return len(s.f64)
	case Bool:
		return len(s.b)
	case Pointer:
		return len(s.ptr)
	default:
		return 0
	}
}

// Store is a fixed-capacity, typed key→value table scoped to one
// Context (spec §4.2).
type Store struct {
	slots []slot
	enable bitvec.V[uint64]
	now    uint32
}

// New creates an empty store with every slot unset.
func New() *Store {
	s := &Store{slots: make([]slot, numSlots)}
	s.enable.Grow(1) // 64 bits covers the handful of enable slots.
	return s
}

func checkGeneric(sl Slot) error {
	if sl < 0 || sl >= numSlots {
		return icerr.New(icerr.InvalidEnum, "state", "unknown slot")
	}
	if sl >= enableBegin && sl < enableEnd {
		return icerr.New(icerr.InvalidEnum, "state", "slot is in the enable-bit sub-range; use Enable/Disable/IsEnabled")
	}
	return nil
}

func (s *Store) tick() uint32 { s.now++; return s.now }

// Query returns a slot's current type, element count, and
// modification timestamp.
func (s *Store) Query(sl Slot) (Type, int, uint32, error) {
	if sl < 0 || sl >= numSlots {
		return None, 0, 0, icerr.New(icerr.InvalidEnum, "state.Store.Query", "unknown slot")
	}
	sp := &s.slots[sl]
	return sp.typ, sp.size(), sp.time, nil
}

// --- Enable-bit sub-range ---

func checkEnable(sl Slot) error {
	if sl < enableBegin || sl >= enableEnd {
		return icerr.New(icerr.InvalidEnum, "state", "slot is not in the enable-bit sub-range")
	}
	return nil
}

// Enable sets a boolean slot within the reserved enable sub-range.
func (s *Store) Enable(sl Slot) error {
	if err := checkEnable(sl); err != nil {
		return err
	}
	s.enable.Set(int(sl - enableBegin))
	s.slots[sl].time = s.tick()
	return nil
}

// Disable clears a boolean slot within the reserved enable sub-range.
func (s *Store) Disable(sl Slot) error {
	if err := checkEnable(sl); err != nil {
		return err
	}
	s.enable.Unset(int(sl - enableBegin))
	s.slots[sl].time = s.tick()
	return nil
}

// IsEnabled reports a boolean slot's current value.
func (s *Store) IsEnabled(sl Slot) (bool, error) {
	if err := checkEnable(sl); err != nil {
		return false, err
	}
	return s.enable.IsSet(int(sl - enableBegin)), nil
}

// --- Scalar setters/getters ---

func (s *Store) SetI16(sl Slot, v int16) error { return s.setI16(sl, []int16{v}) }
func (s *Store) SetI32(sl Slot, v int32) error { return s.setI32(sl, []int32{v}) }
func (s *Store) SetF32(sl Slot, v float32) error { return s.setF32(sl, []float32{v}) }
func (s *Store) SetF64(sl Slot, v float64) error { return s.setF64(sl, []float64{v}) }

// SetBool sets a general-purpose boolean slot. Slots in the
// enable-bit sub-range must use Enable/Disable instead.
func (s *Store) SetBool(sl Slot, v bool) error { return s.setBool(sl, []bool{v}) }

// SetPointer sets an opaque, non-numeric value (e.g. a callback or a
// scratch buffer).
func (s *Store) SetPointer(sl Slot, v any) error { return s.setPointer(sl, []any{v}) }

func (s *Store) GetI16(sl Slot) (int16, error) { return scalar(s.GetI16Vec(sl)) }
func (s *Store) GetI32(sl Slot) (int32, error) { return scalar(s.GetI32Vec(sl)) }
func (s *Store) GetF32(sl Slot) (float32, error) { return scalar(s.GetF32Vec(sl)) }
func (s *Store) GetF64(sl Slot) (float64, error) { return scalar(s.GetF64Vec(sl)) }

func (s *Store) GetBool(sl Slot) (bool, error) {
	v, err := s.getBool(sl)
	if err != nil {
		return false, err
	}
	if len(v) == 0 {
		return false, icerr.New(icerr.InvalidValue, "state.Store.GetBool", "slot is unset")
	}
	return v[0], nil
}

func (s *Store) GetPointer(sl Slot) (any, error) {
	v, err := s.getPointer(sl)
	if err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, icerr.New(icerr.InvalidValue, "state.Store.GetPointer", "slot is unset")
	}
	return v[0], nil
}

func scalar[T any](v []T, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if len(v) == 0 {
		return zero, icerr.New(icerr.InvalidValue, "state", "slot is unset")
	}
	return v[0], nil
}

// --- Vector setters/getters ---

func (s *Store) SetI16Vec(sl Slot, v []int16) error { return s.setI16(sl, v) }
func (s *Store) SetI32Vec(sl Slot, v []int32) error { return s.setI32(sl, v) }
func (s *Store) SetF32Vec(sl Slot, v []float32) error { return s.setF32(sl, v) }
func (s *Store) SetF64Vec(sl Slot, v []float64) error { return s.setF64(sl, v) }

// isEnumSlot reports whether sl holds an enumerated identifier
// (a ColorFmt/DepthFmt/CompositeMode value) rather than an arithmetic
// quantity. These slots are always written as I32 by this module, but
// the store itself must still refuse a float-typed read of one should
// a caller ever have stored it that way (spec §4.2/§9: "bad_cast" on a
// floating-point read of an enumerated slot).
func isEnumSlot(sl Slot) bool {
	switch sl {
	case ColorFmt, DepthFmt, CompositeMode:
		return true
	default:
		return false
	}
}

// GetI16Vec, and the analogous GetI32Vec/GetF32Vec/GetF64Vec, perform
// safe numeric coercion when the slot holds a different numeric type
// (spec §4.2): f64/f32/i32/i16 convert to one another, and a Bool slot
// reads as 0 or 1. Pointer slots refuse any conversion, and an
// enumerated slot (ColorFmt/DepthFmt/CompositeMode) refuses a read of
// a float-typed value. GetBool does not coerce: it reads Bool slots
// only.
func (s *Store) GetI16Vec(sl Slot) ([]int16, error) {
	raw, typ, err := s.raw(sl)
	if err != nil {
		return nil, err
	}
	if isEnumSlot(sl) && (typ == F32 || typ == F64) {
		return nil, icerr.New(icerr.BadCast, "state.Store.GetI16Vec", "enumerated slot holds a floating-point value")
	}
	out := make([]int16, len(raw))
	for i, f := range raw {
		out[i] = int16(f)
	}
	return out, nil
}

func (s *Store) GetI32Vec(sl Slot) ([]int32, error) {
	raw, typ, err := s.raw(sl)
	if err != nil {
		return nil, err
	}
	if isEnumSlot(sl) && (typ == F32 || typ == F64) {
		return nil, icerr.New(icerr.BadCast, "state.Store.GetI32Vec", "enumerated slot holds a floating-point value")
	}
	out := make([]int32, len(raw))
	for i, f := range raw {
		out[i] = int32(f)
	}
	return out, nil
}

func (s *Store) GetF32Vec(sl Slot) ([]float32, error) {
	raw, _, err := s.raw(sl)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(raw))
	for i, f := range raw {
		out[i] = float32(f)
	}
	return out, nil
}

func (s *Store) GetF64Vec(sl Slot) ([]float64, error) {
	raw, _, err := s.raw(sl)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// raw extracts a numeric slot's contents as []float64, the common
// coercion space for every arithmetic variant; bool reads coerce 0/1,
// and Pointer/None refuse.
func (s *Store) raw(sl Slot) ([]float64, Type, error) {
	if err := checkGeneric(sl); err != nil {
		return nil, None, err
	}
	sp := &s.slots[sl]
	switch sp.typ {
	case None:
		return nil, sp.typ, nil
	case I16:
		out := make([]float64, len(sp.i16))
		for i, v := range sp.i16 {
			out[i] = float64(v)
		}
		return out, sp.typ, nil
	case I32:
		out := make([]float64, len(sp.i32))
		for i, v := range sp.i32 {
			out[i] = float64(v)
		}
		return out, sp.typ, nil
	case F32:
		out := make([]float64, len(sp.f32))
		for i, v := range sp.f32 {
			out[i] = float64(v)
		}
		return out, sp.typ, nil
	case F64:
		return append([]float64(nil), sp.f64...), sp.typ, nil
	case Bool:
		out := make([]float64, len(sp.b))
		for i, v := range sp.b {
			if v {
				out[i] = 1
			}
		}
		return out, sp.typ, nil
	default:
		return nil, sp.typ, icerr.New(icerr.BadCast, "state.Store", "slot holds a pointer; numeric conversion refused")
	}
}

func (s *Store) getBool(sl Slot) ([]bool, error) {
	if err := checkGeneric(sl); err != nil {
		return nil, err
	}
	sp := &s.slots[sl]
	switch sp.typ {
	case None:
		return nil, nil
	case Bool:
		return sp.b, nil
	default:
		return nil, icerr.New(icerr.BadCast, "state.Store.getBool", "slot does not hold a bool")
	}
}

func (s *Store) getPointer(sl Slot) ([]any, error) {
	if err := checkGeneric(sl); err != nil {
		return nil, err
	}
	sp := &s.slots[sl]
	switch sp.typ {
	case None:
		return nil, nil
	case Pointer:
		return sp.ptr, nil
	default:
		return nil, icerr.New(icerr.BadCast, "state.Store.getPointer", "slot does not hold a pointer")
	}
}

// setI16, and likewise setI32/setF32/setF64/setBool/setPointer below,
// overwrites the slot in place when (typ,size) match the current
// contents, and reallocates (simulating free+realloc) otherwise;
// either way it stamps the new modification time.
func (s *Store) setI16(sl Slot, v []int16) error {
	if err := checkGeneric(sl); err != nil {
		return err
	}
	sp := &s.slots[sl]
	if sp.typ == I16 && len(sp.i16) == len(v) {
		copy(sp.i16, v)
	} else {
		*sp = slot{typ: I16, i16: append([]int16(nil), v...)}
	}
	sp.time = s.tick()
	return nil
}

func (s *Store) setI32(sl Slot, v []int32) error {
	if err := checkGeneric(sl); err != nil {
		return err
	}
	sp := &s.slots[sl]
	if sp.typ == I32 && len(sp.i32) == len(v) {
		copy(sp.i32, v)
	} else {
		*sp = slot{typ: I32, i32: append([]int32(nil), v...)}
	}
	sp.time = s.tick()
	return nil
}

func (s *Store) setF32(sl Slot, v []float32) error {
	if err := checkGeneric(sl); err != nil {
		return err
	}
	sp := &s.slots[sl]
	if sp.typ == F32 && len(sp.f32) == len(v) {
		copy(sp.f32, v)
	} else {
		*sp = slot{typ: F32, f32: append([]float32(nil), v...)}
	}
	sp.time = s.tick()
	return nil
}

func (s *Store) setF64(sl Slot, v []float64) error {
	if err := checkGeneric(sl); err != nil {
		return err
	}
	sp := &s.slots[sl]
	if sp.typ == F64 && len(sp.f64) == len(v) {
		copy(sp.f64, v)
	} else {
		*sp = slot{typ: F64, f64: append([]float64(nil), v...)}
	}
	sp.time = s.tick()
	return nil
}

func (s *Store) setBool(sl Slot, v []bool) error {
	if err := checkGeneric(sl); err != nil {
		return err
	}
	sp := &s.slots[sl]
	if sp.typ == Bool && len(sp.b) == len(v) {
		copy(sp.b, v)
	} else {
		*sp = slot{typ: Bool, b: append([]bool(nil), v...)}
	}
	sp.time = s.tick()
	return nil
}

func (s *Store) setPointer(sl Slot, v []any) error {
	if err := checkGeneric(sl); err != nil {
		return err
	}
	sp := &s.slots[sl]
	if sp.typ == Pointer && len(sp.ptr) == len(v) {
		copy(sp.ptr, v)
	} else {
		*sp = slot{typ: Pointer, ptr: append([]any(nil), v...)}
	}
	sp.time = s.tick()
	return nil
}

// AddTiming accumulates d into a TimeXxx counter slot.
func (s *Store) AddTiming(sl Slot, d time.Duration) error {
	cur, err := s.GetF64(sl)
	if err != nil {
		if e, ok := err.(*icerr.Error); !ok || e.Kind != icerr.InvalidValue {
			return err
		}
		cur = 0
	}
	return s.SetF64(sl, cur+d.Seconds())
}

// AddBytesSent accumulates n into the BytesSent counter slot.
func (s *Store) AddBytesSent(n int) error {
	cur, err := s.GetF64(BytesSent)
	if err != nil {
		if e, ok := err.(*icerr.Error); !ok || e.Kind != icerr.InvalidValue {
			return err
		}
		cur = 0
	}
	return s.SetF64(BytesSent, cur+float64(n))
}
