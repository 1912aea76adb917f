// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package compose implements a sort-last parallel image-compositing
// core: the pixel data model and sparse encoding (package image), the
// per-process state store (package state), the direct-send strategy
// (package directsend), and the Context that ties a duplicated group
// communicator to one state store. The communicator and the render
// callback invoked by a strategy remain external collaborators,
// specified only at their interface (package comm).
package compose

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gviegas/compose/comm"
	"github.com/gviegas/compose/icerr"
	"github.com/gviegas/compose/state"
)

// magic marks a Context as having been produced by Create and not yet
// destroyed; it is checked by every operation that takes a *Context.
const magic uint32 = 0x49435421 // "ICE!"

// Context owns one state store and one duplicated Communicator. It
// carries the id used to tell contexts apart in diagnostics, and a
// magic sentinel validating the handle (spec §4.3).
type Context struct {
	valid uint32
	id    uuid.UUID
	store *state.Store
	cm    comm.Communicator
}

var (
	curMu sync.Mutex
	cur   *Context
)

// Create duplicates cm, creates a state store, installs defaults under
// the new Context (temporarily making it current so default
// installation sees the rank/size it just queried), and returns the
// handle.
func Create(cm comm.Communicator) (*Context, error) {
	if cm == nil {
		return nil, icerr.New(icerr.InvalidValue, "compose.Create", "nil communicator")
	}
	dup, err := cm.Duplicate()
	if err != nil {
		return nil, err
	}
	ctx := &Context{
		valid: magic,
		id:    uuid.New(),
		store: state.New(),
		cm:    dup,
	}

	prev, _ := SetCurrent(ctx)
	state.SetDefaults(ctx.store, int32(dup.Rank()), int32(dup.Size()))
	SetCurrent(prev)
	return ctx, nil
}

// check validates ctx's magic sentinel.
func check(ctx *Context) error {
	if ctx == nil || ctx.valid != magic {
		return icerr.New(icerr.InvalidValue, "compose", "invalid or destroyed context")
	}
	return nil
}

// Valid reports whether ctx is a live handle produced by Create and
// not yet destroyed.
func (ctx *Context) Valid() bool { return check(ctx) == nil }

// ID returns ctx's debug identifier (spec §3/DOMAIN STACK: stamped so
// multi-context test scenarios can be told apart in diagnostics
// without adding a second wire-visible sentinel field).
func (ctx *Context) ID() uuid.UUID { return ctx.id }

// State returns ctx's state store.
func (ctx *Context) State() *state.Store { return ctx.store }

// Comm returns ctx's duplicated Communicator.
func (ctx *Context) Comm() comm.Communicator { return ctx.cm }

// SetCurrent installs ctx as the process-wide current context and
// returns the context that was current beforehand (nil if none). ctx
// may be nil, to clear the current context. An invalid or destroyed
// ctx raises invalid_value, leaves the current context unchanged, and
// returns the error alongside the (unchanged) current context (spec
// §4.3 Failure).
func SetCurrent(ctx *Context) (*Context, error) {
	if ctx != nil {
		if err := check(ctx); err != nil {
			return GetCurrent(), err
		}
	}
	curMu.Lock()
	defer curMu.Unlock()
	prev := cur
	cur = ctx
	return prev, nil
}

// GetCurrent returns the process-wide current context, or nil if none
// has been set.
func GetCurrent() *Context {
	curMu.Lock()
	defer curMu.Unlock()
	return cur
}

// Destroy makes ctx temporarily current, invokes any registered
// render-layer destructor (the Destructor slot in state), invalidates
// the magic sentinel, tears down the state store, destroys the
// communicator copy, and restores (or clears, if ctx was current) the
// prior current context.
func Destroy(ctx *Context) error {
	if err := check(ctx); err != nil {
		return err
	}

	wasCurrent := GetCurrent() == ctx
	prev, _ := SetCurrent(ctx)

	if fn, err := ctx.store.GetPointer(state.Destructor); err == nil && fn != nil {
		if destructor, ok := fn.(func(*Context)); ok {
			destructor(ctx)
		}
	}

	ctx.valid = 0
	ctx.store = nil
	ctx.cm.Destroy()
	ctx.cm = nil

	if wasCurrent {
		SetCurrent(nil)
	} else {
		SetCurrent(prev)
	}
	return nil
}
