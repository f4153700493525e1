package asm

import "fmt"

// Label is a mutable symbolic forward reference: NewLabel reserves an id
// with a diagnostic name, PlaceLabel pins it to the current instruction
// offset. Any number of jump instructions may reference a label before
// or after it is placed; resolution happens once at Finalize.
type Label struct {
	id     int
	name   string
	placed bool
	offset int
}

func (l *Label) String() string {
	if l.placed {
		return fmt.Sprintf("%s#%d@%d", l.name, l.id, l.offset)
	}
	return fmt.Sprintf("%s#%d@?", l.name, l.id)
}
