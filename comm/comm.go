// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package comm defines the group communicator that the compositing
// core uses as its sole means of inter-process transfer, plus the
// registry through which a process obtains one. The network stack
// backing a Communicator is an external collaborator: this package
// specifies only the interface, never an implementation that talks to
// real hardware.
package comm

import (
	"errors"
	"log"
	"strings"
	"sync"
)

// Request identifies an outstanding non-blocking send or receive
// started by Isend/Irecv, to be completed later by Waitany.
type Request interface {
	// Done reports whether the operation has completed. Implementations
	// may treat this as advisory; Waitany is the only method callers
	// must rely on to learn completion.
	Done() bool
}

// Communicator is the group communication contract the core relies on
// (spec §6): point-to-point send/recv, collective size/rank, and
// duplicate/destroy for scoping a handle to one Context's lifetime.
// The core assumes tags in a private range are available for its own
// use and never fragments a message on the caller's behalf.
type Communicator interface {
	// Duplicate returns an independent handle with the same process
	// group. The core calls this once per Context, so that destroying
	// a Context never invalidates the host's original handle.
	Duplicate() (Communicator, error)

	// Destroy releases the resources held by this handle. Destroying
	// a handle obtained from Duplicate must not affect the handle it
	// was duplicated from.
	Destroy()

	// Size returns the number of processes in the group.
	Size() int

	// Rank returns this process's index within the group, in
	// [0, Size()).
	Rank() int

	// Send blocks until buf has been handed off to dest under tag.
	Send(buf []byte, dest, tag int) error

	// Recv blocks until a message matching src and tag has been
	// received into buf, and returns the number of bytes written.
	// A src of -1 matches any sender.
	Recv(buf []byte, src, tag int) (int, error)

	// Isend starts a non-blocking send and returns a Request that
	// Waitany can complete. The caller must not mutate buf until the
	// request completes.
	Isend(buf []byte, dest, tag int) (Request, error)

	// Irecv starts a non-blocking receive into buf and returns a
	// Request that Waitany can complete. The caller must not inspect
	// buf until the request completes.
	Irecv(buf []byte, src, tag int) (Request, error)

	// Waitany blocks until at least one of reqs has completed, and
	// returns its index into reqs.
	Waitany(reqs []Request) (int, error)
}

// ErrNoDriver means no registered Driver matched the requested name,
// or none is registered at all.
var ErrNoDriver = errors.New("comm: no matching driver")

// Driver is the interface that provides methods for obtaining a group
// Communicator from an underlying transport.
type Driver interface {
	// Open initializes the driver and returns the process's
	// Communicator handle for its group. Further calls with the same
	// receiver have no effect and must return the same handle.
	Open() (Communicator, error)

	// Name returns the name of the driver. It must not cause the
	// driver to be opened.
	Name() string

	// Close deinitializes the driver. Closing a driver that is not
	// open has no effect.
	Close()
}

var (
	mu      sync.Mutex
	drivers []Driver = make([]Driver, 0, 1)
)

// Register registers a Driver. Driver implementations are expected to
// call Register exactly once, from an init function. If a driver with
// the same name has already been registered, it is replaced by drv.
func Register(drv Driver) {
	mu.Lock()
	defer mu.Unlock()
	for i := range drivers {
		if drivers[i].Name() == drv.Name() {
			drivers[i] = drv
			log.Printf("[!] comm driver '%s' replaced", drv.Name())
			return
		}
	}
	drivers = append(drivers, drv)
	log.Printf("comm driver '%s' registered", drv.Name())
}

// Drivers returns the registered Drivers.
func Drivers() []Driver {
	mu.Lock()
	defer mu.Unlock()
	drv := make([]Driver, len(drivers))
	copy(drv, drivers)
	return drv
}

// Open opens the first registered driver whose name contains the
// given substring (case-sensitive); an empty name matches the first
// registered driver.
func Open(name string) (Communicator, error) {
	for _, drv := range Drivers() {
		if name == "" || strings.Contains(drv.Name(), name) {
			return drv.Open()
		}
	}
	return nil, ErrNoDriver
}
