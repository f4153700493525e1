package asm

import "github.com/VorpalBlade/rune/hir"

// Entry pairs a single emitted instruction with the span it inherited
// from the HIR node that produced it.
type Entry[I any] struct {
	Span hir.Span
	Inst I
}

// Assembly is the ordered, append-only list of (span, instruction)
// pairs plus the label table, generic over the concrete instruction
// type so this package stays independent of internal/isa (avoiding an
// import cycle, since isa depends on asm for Address/Label).
//
// Grounded on compiler.Compiler's currentInstructions()/addInstruction/
// changeOperand idiom, generalized from "one flat byte stream per
// compiler scope" to "one entry list with symbolic, finalize-time label
// resolution" since this backend's jumps target labels rather than
// eagerly-backpatched raw offsets.
type Assembly[I any] struct {
	entries []Entry[I]
	labels  []*Label
}

// New creates an empty assembly buffer.
func New[I any]() *Assembly[I] {
	return &Assembly[I]{}
}

// Push appends inst with span; the returned offset is its position.
func (as *Assembly[I]) Push(inst I, span hir.Span) int {
	as.entries = append(as.entries, Entry[I]{Span: span, Inst: inst})
	return len(as.entries) - 1
}

// Len returns the number of instructions appended so far.
func (as *Assembly[I]) Len() int { return len(as.entries) }

// Entries exposes the finalized instruction stream.
func (as *Assembly[I]) Entries() []Entry[I] { return as.entries }

// NewLabel reserves a fresh label id with a diagnostic name.
func (as *Assembly[I]) NewLabel(name string) *Label {
	l := &Label{id: len(as.labels), name: name}
	as.labels = append(as.labels, l)
	return l
}

// PlaceLabel pins l to the current instruction offset. It fails if l was
// already placed.
func (as *Assembly[I]) PlaceLabel(l *Label) error {
	if l.placed {
		return newErr(ErrScopeMismatch, "label already placed: "+l.name)
	}
	l.placed = true
	l.offset = len(as.entries)
	return nil
}

// Finalize asserts every label created by NewLabel has in fact been
// placed, whether or not any jump references it; callers resolve jump targets by reading Label.offset after
// this succeeds (instructions hold *Label pointers directly, so no
// rewriting pass over raw bytes is required).
func (as *Assembly[I]) Finalize() error {
	for _, l := range as.labels {
		if !l.placed {
			return newErr(ErrScopeMismatch, "label never placed: "+l.name)
		}
	}
	return nil
}

// Offset returns a label's resolved offset; callers must only call
// this after Finalize succeeds.
func (l *Label) Offset() int { return l.offset }
