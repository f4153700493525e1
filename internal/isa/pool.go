package isa

import (
	"sort"

	"github.com/VorpalBlade/rune/hir"
)

// Unit is the minimal stand-in for the "metadata/query layer" spec.md
// §6 describes as an external collaborator: it owns the unit-global
// static pools (strings, byte-strings, object key sets) and the
// constant-value/const-fn lookup tables. Real embedders would back
// this with a richer module/item system; this module only needs the
// slot-interning and constant-lookup contract that internal/lower and
// internal/pattern consume.
type Unit struct {
	strings     []string
	stringIdx   map[string]hir.Slot
	byteStrs    [][]byte
	byteStrsIdx map[string]hir.Slot
	objectKeys  [][]string
	keysIdx     map[string]hir.Slot

	constValues map[hir.Hash]ConstValue
	constFns    map[hir.Hash]*hir.ConstFn
}

// NewUnit creates an empty metadata collaborator.
func NewUnit() *Unit {
	return &Unit{
		stringIdx:   make(map[string]hir.Slot),
		byteStrsIdx: make(map[string]hir.Slot),
		keysIdx:     make(map[string]hir.Slot),
		constValues: make(map[hir.Hash]ConstValue),
		constFns:    make(map[hir.Hash]*hir.ConstFn),
	}
}

// NewStaticString interns s, returning a deterministic slot id; equal
// strings yield equal slots.
func (u *Unit) NewStaticString(s string) hir.Slot {
	if slot, ok := u.stringIdx[s]; ok {
		return slot
	}
	slot := hir.Slot(len(u.strings))
	u.strings = append(u.strings, s)
	u.stringIdx[s] = slot
	return slot
}

// NewStaticBytes interns b the same way NewStaticString interns strings;
// equal byte strings yield equal slots.
func (u *Unit) NewStaticBytes(b []byte) hir.Slot {
	key := string(b)
	if slot, ok := u.byteStrsIdx[key]; ok {
		return slot
	}
	slot := hir.Slot(len(u.byteStrs))
	u.byteStrs = append(u.byteStrs, append([]byte(nil), b...))
	u.byteStrsIdx[key] = slot
	return slot
}

// StaticString returns the string previously interned at slot.
func (u *Unit) StaticString(slot hir.Slot) string { return u.strings[slot] }

// StaticBytes returns the byte string previously interned at slot.
func (u *Unit) StaticBytes(slot hir.Slot) []byte { return u.byteStrs[slot] }

// NewStaticObjectKeysIter sorts and deduplicates keys and returns the
// slot for that key set; identical sets (after sort+dedup) share a slot.
func (u *Unit) NewStaticObjectKeysIter(keys []string) hir.Slot {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	deduped := sorted[:0]
	for i, k := range sorted {
		if i == 0 || k != sorted[i-1] {
			deduped = append(deduped, k)
		}
	}
	id := ""
	for _, k := range deduped {
		id += k + "\x00"
	}
	if slot, ok := u.keysIdx[id]; ok {
		return slot
	}
	slot := hir.Slot(len(u.objectKeys))
	u.objectKeys = append(u.objectKeys, deduped)
	u.keysIdx[id] = slot
	return slot
}

// ObjectKeys returns the sorted, deduplicated key set at slot.
func (u *Unit) ObjectKeys(slot hir.Slot) []string { return u.objectKeys[slot] }

// GetConstValue retrieves a previously-registered constant by hash.
func (u *Unit) GetConstValue(h hir.Hash) (ConstValue, bool) {
	v, ok := u.constValues[h]
	return v, ok
}

// SetConstValue registers a constant value under hash (used by callers
// that pre-evaluate top-level `const` items before compiling functions
// that reference them).
func (u *Unit) SetConstValue(h hir.Hash, v ConstValue) { u.constValues[h] = v }

// ConstFnFor retrieves the const-fn body/parameter-list registered
// under id.
func (u *Unit) ConstFnFor(id hir.Hash) (*hir.ConstFn, bool) {
	fn, ok := u.constFns[id]
	return fn, ok
}

// DefineConstFn registers a const fn under id.
func (u *Unit) DefineConstFn(id hir.Hash, fn *hir.ConstFn) { u.constFns[id] = fn }

// Diagnostic is a single non-fatal compilation notice.
type Diagnostic struct {
	Span    hir.Span
	Message string
}

// Diagnostics collects non-fatal compiler notices (not_used,
// let_pattern_might_panic, template_without_expansions, ...).
type Diagnostics struct {
	Notes []Diagnostic
}

func (d *Diagnostics) Report(span hir.Span, message string) {
	d.Notes = append(d.Notes, Diagnostic{Span: span, Message: message})
}
