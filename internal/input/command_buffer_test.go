package input

import "testing"

func TestCommandBufferWraparound(t *testing.T) {
	buffer := NewCommandBuffer(3, nil)
	cmds := []Command{
		{UserID: "a"},
		{UserID: "b"},
		{UserID: "c"},
	}
	for _, cmd := range cmds {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed for %+v", cmd)
		}
	}
	if buffer.Push(Command{UserID: "overflow"}) {
		t.Fatalf("expected push to fail when buffer full")
	}
	drained := buffer.Drain()
	if len(drained) != len(cmds) {
		t.Fatalf("expected %d commands, got %d", len(cmds), len(drained))
	}
	for i, cmd := range drained {
		if cmd.UserID != cmds[i].UserID {
			t.Fatalf("expected drain order %v, got %v", cmds[i].UserID, cmd.UserID)
		}
	}
	// Push again to ensure the indices wrap correctly.
	for _, cmd := range []Command{{UserID: "d"}, {UserID: "e"}} {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed after drain for %+v", cmd)
		}
	}
	wrapped := buffer.Drain()
	if len(wrapped) != 2 {
		t.Fatalf("expected 2 commands after wraparound, got %d", len(wrapped))
	}
	if wrapped[0].UserID != "d" || wrapped[1].UserID != "e" {
		t.Fatalf("unexpected order after wraparound: %+v", wrapped)
	}
}

func TestCommandBufferOverflow(t *testing.T) {
	buffer := NewCommandBuffer(1, nil)
	if !buffer.Push(Command{UserID: "one"}) {
		t.Fatalf("expected initial push to succeed")
	}
	if buffer.Push(Command{UserID: "two"}) {
		t.Fatalf("expected push to fail when capacity exceeded")
	}
	drained := buffer.Drain()
	if len(drained) != 1 || drained[0].UserID != "one" {
		t.Fatalf("unexpected drained commands: %+v", drained)
	}
}

func TestCommandBufferEmptyDrain(t *testing.T) {
	buffer := NewCommandBuffer(4, nil)
	if drained := buffer.Drain(); drained != nil {
		t.Fatalf("expected nil drain on empty buffer, got %+v", drained)
	}
	if buffer.Len() != 0 || buffer.Capacity() != 4 {
		t.Fatalf("unexpected buffer state: len=%d cap=%d", buffer.Len(), buffer.Capacity())
	}
}
