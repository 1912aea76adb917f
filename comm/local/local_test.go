// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package local

import (
	"sync"
	"testing"

	"github.com/gviegas/compose/comm"
)

func TestSendRecv(t *testing.T) {
	world := NewWorld(2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := world[0].Send([]byte("hello"), 1, 7); err != nil {
			t.Errorf("Send: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		buf := make([]byte, 5)
		n, err := world[1].Recv(buf, 0, 7)
		if err != nil {
			t.Errorf("Recv: %v", err)
		}
		if string(buf[:n]) != "hello" {
			t.Errorf("Recv: got %q, want %q", buf[:n], "hello")
		}
	}()
	wg.Wait()
}

func TestRecvMatchesAnySource(t *testing.T) {
	world := NewWorld(3)
	go world[1].Send([]byte("a"), 0, 1)
	buf := make([]byte, 1)
	n, err := world[0].Recv(buf, -1, 1)
	if err != nil || string(buf[:n]) != "a" {
		t.Errorf("Recv(any src): got (%q, %v), want (\"a\", nil)", buf[:n], err)
	}
}

func TestIsendIrecvWaitany(t *testing.T) {
	world := NewWorld(2)
	buf := make([]byte, 3)
	rreq, err := world[1].Irecv(buf, 0, 9)
	if err != nil {
		t.Fatalf("Irecv: %v", err)
	}
	sreq, err := world[0].Isend([]byte("abc"), 1, 9)
	if err != nil {
		t.Fatalf("Isend: %v", err)
	}
	reqs := []comm.Request{sreq, rreq}
	i, err := world[1].Waitany(reqs)
	if err != nil {
		t.Fatalf("Waitany: %v", err)
	}
	if reqs[i] != rreq && reqs[i] != sreq {
		t.Fatalf("Waitany: returned index %d out of range", i)
	}
	// Whichever completes first, wait for the receive to actually land.
	for !rreq.Done() {
	}
	if string(buf) != "abc" {
		t.Errorf("Irecv buffer: got %q, want %q", buf, "abc")
	}
}

func TestDuplicateSharesWorld(t *testing.T) {
	world := NewWorld(2)
	dup, err := world[0].Duplicate()
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if dup.Rank() != world[0].Rank() || dup.Size() != world[0].Size() {
		t.Error("Duplicate: rank/size mismatch with original")
	}
	done := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		world[1].Recv(buf, 0, 3)
		close(done)
	}()
	if err := dup.Send([]byte("x"), 1, 3); err != nil {
		t.Fatalf("Send via duplicate: %v", err)
	}
	<-done
}
