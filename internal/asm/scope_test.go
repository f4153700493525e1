package asm

import "testing"

func TestAllocChildPop(t *testing.T) {
	a := NewAllocator()
	root := a.Child()

	first, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if first != 0 {
		t.Fatalf("want address 0, got %d", first)
	}

	child := a.Child()
	second, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if second != 1 {
		t.Fatalf("want address 1, got %d", second)
	}

	if err := a.Pop(child); err != nil {
		t.Fatalf("Pop(child): %v", err)
	}

	// The child scope's address is reclaimed, so a fresh alloc in the
	// root scope reuses it.
	third, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if third != 1 {
		t.Fatalf("want reclaimed address 1, got %d", third)
	}

	if err := a.Pop(root); err != nil {
		t.Fatalf("Pop(root): %v", err)
	}
}

func TestAllocatorFrameSizeIsHighWaterMark(t *testing.T) {
	a := NewAllocator()
	root := a.Child()

	if _, err := a.Alloc(); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	inner := a.Child()
	if _, err := a.Alloc(); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if _, err := a.Alloc(); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := a.Pop(inner); err != nil {
		t.Fatalf("Pop: %v", err)
	}

	// Even though the inner scope's two addresses were reclaimed, the
	// frame size must reflect the peak of 3 simultaneously-live
	// addresses, not the 1 currently live after Pop.
	if got := a.FrameSize(); got != 3 {
		t.Fatalf("FrameSize() = %d, want 3", got)
	}

	if err := a.Pop(root); err != nil {
		t.Fatalf("Pop: %v", err)
	}
}

func TestPopWrongScopeFails(t *testing.T) {
	a := NewAllocator()
	root := a.Child()
	child := a.Child()
	_ = child

	if err := a.Pop(root); err == nil {
		t.Fatalf("Pop(root) with child current: want error, got nil")
	}
}

func TestDefineGetTake(t *testing.T) {
	a := NewAllocator()
	root := a.Child()
	addr, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := a.Define("x", addr); err != nil {
		t.Fatalf("Define: %v", err)
	}

	v, err := a.Get("x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.Address != addr {
		t.Fatalf("Get address = %d, want %d", v.Address, addr)
	}

	if _, err := a.Take("x"); err != nil {
		t.Fatalf("Take: %v", err)
	}
	if _, err := a.Get("x"); err == nil {
		t.Fatalf("Get after Take: want VariableMoved error, got nil")
	}

	if _, err := a.Get("nonexistent"); err == nil {
		t.Fatalf("Get of unbound name: want error, got nil")
	}

	_ = a.Pop(root)
}

func TestReorderComputesSwapSequence(t *testing.T) {
	current := []string{"a", "b", "c"}
	desired := []string{"c", "a", "b"}

	swaps := Reorder(current, desired)

	pos := make([]string, len(current))
	copy(pos, current)
	for _, sw := range swaps {
		pos[sw.I], pos[sw.J] = pos[sw.J], pos[sw.I]
	}
	for i, want := range desired {
		if pos[i] != want {
			t.Fatalf("after applying swaps, position %d = %s, want %s", i, pos[i], want)
		}
	}
}

func TestNeedsTryAllocAddress(t *testing.T) {
	a := NewAllocator()
	root := a.Child()

	none := NeedsDiscard()
	if _, ok, _ := none.TryAllocAddress(a); ok {
		t.Fatalf("NeedsDiscard TryAllocAddress: want ok=false")
	}

	alloc := NeedsAlloc(root)
	addr, ok, err := alloc.TryAllocAddress(a)
	if err != nil || !ok {
		t.Fatalf("NeedsAlloc TryAllocAddress: ok=%v err=%v", ok, err)
	}
	// Calling again must return the same address now that it settled.
	addr2, ok2, err2 := alloc.TryAllocAddress(a)
	if err2 != nil || !ok2 || addr2 != addr {
		t.Fatalf("second TryAllocAddress = (%d, %v, %v), want (%d, true, nil)", addr2, ok2, err2, addr)
	}

	local := NeedsLocal(Address(5))
	dest, copyNeeded := local.AssignAddress(Address(5))
	if copyNeeded || dest != 5 {
		t.Fatalf("AssignAddress same address: want (5, false), got (%d, %v)", dest, copyNeeded)
	}
	dest, copyNeeded = local.AssignAddress(Address(6))
	if !copyNeeded || dest != 5 {
		t.Fatalf("AssignAddress different address: want (5, true), got (%d, %v)", dest, copyNeeded)
	}

	_ = a.Pop(root)
}
