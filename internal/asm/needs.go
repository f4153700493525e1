package asm

// NeedsKind tags the three states a producer's output sink can be in.
type NeedsKind int

const (
	// NeedsNone: the producer's value may be elided; side effects must
	// still execute.
	NeedsNone NeedsKind = iota
	// NeedsAllocatable: not yet bound to an address; the producer may
	// materialize one via the allocator on first demand.
	NeedsAllocatable
	// NeedsAssigned: already bound to a specific address; the producer
	// must write exactly there (or copy from elsewhere to there).
	NeedsAssigned
)

// Needs is the "where does this value go" sink threaded through every
// expression-lowering routine. It starts life as None, Allocatable, or
// (via NeedsLocal) Assigned; an Allocatable needs, once a producer calls
// TryAllocAddress/AllocOutput/AssignAddress, settles into Assigned so
// repeated use always targets the same slot.
type Needs struct {
	kind  NeedsKind
	scope ScopeID
	addr  Address
}

// NeedsDiscard builds a None needs: the value may be dropped.
func NeedsDiscard() Needs { return Needs{kind: NeedsNone} }

// NeedsAlloc builds an Allocatable needs bound to scope.
func NeedsAlloc(scope ScopeID) Needs { return Needs{kind: NeedsAllocatable, scope: scope} }

// NeedsLocal builds an Assigned needs already bound to addr.
func NeedsLocal(addr Address) Needs { return Needs{kind: NeedsAssigned, addr: addr} }

// HasValue reports whether a value is required at all (i.e. not None).
func (n Needs) HasValue() bool { return n.kind != NeedsNone }

// AsAddress peeks at the bound address without allocating one.
func (n Needs) AsAddress() (Address, bool) {
	if n.kind == NeedsAssigned {
		return n.addr, true
	}
	return InvalidAddress, false
}

// TryAllocAddress allocates (for Allocatable) or returns the already
// bound address (for Local); it returns ok=false for None.
func (n *Needs) TryAllocAddress(a *Allocator) (Address, bool, error) {
	switch n.kind {
	case NeedsNone:
		return InvalidAddress, false, nil
	case NeedsAssigned:
		return n.addr, true, nil
	case NeedsAllocatable:
		addr, err := a.Alloc()
		if err != nil {
			return InvalidAddress, false, err
		}
		n.kind = NeedsAssigned
		n.addr = addr
		return addr, true, nil
	}
	return InvalidAddress, false, nil
}

// AllocOutput is like TryAllocAddress but treats None as an error:
// callers that must produce a value (because the producer decided
// elision is not permitted) use this instead.
func (n *Needs) AllocOutput(a *Allocator) (Address, error) {
	addr, ok, err := n.TryAllocAddress(a)
	if err != nil {
		return InvalidAddress, err
	}
	if !ok {
		return InvalidAddress, newErr(ErrOutOfScope, "needs has no value slot")
	}
	return addr, nil
}

// TryAllocAddressOrTransient behaves like AllocOutput, except when
// needs is None it allocates an ordinary transient address instead of
// failing: calls and similar value-producing instructions always need
// somewhere to write their result, even when that result will be
// discarded, since the underlying operation (the call) must still run.
func (n *Needs) TryAllocAddressOrTransient(a *Allocator) (Address, error) {
	if addr, ok, err := n.TryAllocAddress(a); err != nil {
		return InvalidAddress, err
	} else if ok {
		return addr, nil
	}
	return a.Alloc()
}

// AssignAddress ensures the needs is Local and reports whether a copy
// from src to the (possibly different) destination is required. When
// Allocatable, the source address is simply adopted (no copy). When
// already Assigned to a different address than src, a copy is
// required; the caller is responsible for emitting that copy
// instruction (this package does not depend on the instruction set).
func (n *Needs) AssignAddress(src Address) (dest Address, copyNeeded bool) {
	switch n.kind {
	case NeedsNone:
		return InvalidAddress, false
	case NeedsAllocatable:
		n.kind = NeedsAssigned
		n.addr = src
		return src, false
	case NeedsAssigned:
		if n.addr == src {
			return n.addr, false
		}
		return n.addr, true
	}
	return InvalidAddress, false
}
