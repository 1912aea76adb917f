// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package compose

import (
	"testing"

	"github.com/gviegas/compose/comm/local"
	"github.com/gviegas/compose/state"
)

func TestCreateInstallsDefaults(t *testing.T) {
	cm := local.NewWorld(1)[0]
	ctx, err := Create(cm)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !ctx.Valid() {
		t.Fatal("Valid: want true for a freshly created context")
	}
	if r, err := ctx.State().GetI32(state.Rank); err != nil || r != 0 {
		t.Errorf("Rank default: got (%d, %v), want (0, nil)", r, err)
	}
	if n, err := ctx.State().GetI32(state.NumProcesses); err != nil || n != 1 {
		t.Errorf("NumProcesses default: got (%d, %v), want (1, nil)", n, err)
	}
}

func TestSetCurrentGetCurrent(t *testing.T) {
	cm := local.NewWorld(1)[0]
	ctx, _ := Create(cm)
	defer Destroy(ctx)

	prev, err := SetCurrent(ctx)
	if err != nil {
		t.Fatalf("SetCurrent: %v", err)
	}
	_ = prev
	if GetCurrent() != ctx {
		t.Error("GetCurrent: want the context just installed")
	}
}

func TestSetCurrentRejectsInvalidHandle(t *testing.T) {
	cm := local.NewWorld(1)[0]
	ctx, _ := Create(cm)
	SetCurrent(nil)

	if err := Destroy(ctx); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	before := GetCurrent()
	if _, err := SetCurrent(ctx); err == nil {
		t.Fatal("SetCurrent(destroyed ctx): want error, got nil")
	}
	if GetCurrent() != before {
		t.Error("SetCurrent(destroyed ctx): current context must not change")
	}
}

func TestDestroyInvalidatesAndRestoresCurrent(t *testing.T) {
	cmA := local.NewWorld(1)[0]
	cmB := local.NewWorld(1)[0]
	a, _ := Create(cmA)
	b, _ := Create(cmB)

	SetCurrent(a)
	if err := Destroy(b); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if GetCurrent() != a {
		t.Error("Destroy of a non-current context must not disturb the current one")
	}
	if b.Valid() {
		t.Error("Valid: want false after Destroy")
	}

	if err := Destroy(a); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if GetCurrent() != nil {
		t.Error("Destroy of the current context must clear GetCurrent")
	}
}

func TestDestroyInvokesDestructor(t *testing.T) {
	cm := local.NewWorld(1)[0]
	ctx, _ := Create(cm)

	called := false
	ctx.State().SetPointer(state.Destructor, func(c *Context) { called = true })

	if err := Destroy(ctx); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if !called {
		t.Error("Destroy: destructor was not invoked")
	}
}

func TestCreateRejectsNilCommunicator(t *testing.T) {
	if _, err := Create(nil); err == nil {
		t.Fatal("Create(nil): want error, got nil")
	}
}
