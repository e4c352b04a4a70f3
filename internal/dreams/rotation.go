package dreams

import (
	"iter"

	"github.com/julianstephens/constancia/internal/models"
)

// Names yields dream names in order, wrapping around forever. It yields
// nothing for an empty board. The list is captured when the sequence is
// created, and every range over it starts again from the first dream.
func Names(dreams []models.Dream) iter.Seq[string] {
	names := make([]string, len(dreams))
	for i, d := range dreams {
		names[i] = d.Name
	}
	return func(yield func(string) bool) {
		if len(names) == 0 {
			return
		}
		for i := 0; ; i = (i + 1) % len(names) {
			if !yield(names[i]) {
				return
			}
		}
	}
}

// Rotation is Names over the current board.
func (s *Store) Rotation() iter.Seq[string] {
	return Names(s.List())
}

// Cursor steps through a rotation one name at a time.
type Cursor struct {
	seq  iter.Seq[string]
	next func() (string, bool)
	stop func()
}

func NewCursor(seq iter.Seq[string]) *Cursor {
	return &Cursor{seq: seq}
}

// Next returns the next name, or false when the rotation is empty.
func (c *Cursor) Next() (string, bool) {
	if c.next == nil {
		c.next, c.stop = iter.Pull(c.seq)
	}
	return c.next()
}

// Reset rewinds to the first name, optionally over a new sequence.
func (c *Cursor) Reset(seq iter.Seq[string]) {
	c.Stop()
	if seq != nil {
		c.seq = seq
	}
}

// Stop releases the underlying iterator.
func (c *Cursor) Stop() {
	if c.stop != nil {
		c.stop()
	}
	c.next, c.stop = nil, nil
}
