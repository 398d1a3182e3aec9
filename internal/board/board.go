// Package board holds the client-side copy of the device's 3x3 grid.
package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/verte-zerg/tictac/internal/model"
)

// Size is the board edge length.
const Size = 3

// SnapshotLen is the number of cells in a serialized board.
const SnapshotLen = Size * Size

// ErrSnapshotLength is returned when a snapshot is not exactly SnapshotLen bytes.
var ErrSnapshotLength = errors.New("snapshot must be 9 characters")

// Board is a 3x3 grid. Cells change only through Reconcile and Reset.
type Board struct {
	cells [Size][Size]model.Cell
}

// New returns an empty board.
func New() *Board {
	b := &Board{}
	b.Reset()
	return b
}

// Reconcile overwrites the whole grid from a row-major snapshot.
func (b *Board) Reconcile(snapshot string) error {
	if len(snapshot) != SnapshotLen {
		return fmt.Errorf("%w: got %d", ErrSnapshotLength, len(snapshot))
	}
	for k := 0; k < SnapshotLen; k++ {
		b.cells[k/Size][k%Size] = model.Cell(snapshot[k])
	}
	return nil
}

// Reset clears every cell.
func (b *Board) Reset() {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			b.cells[r][c] = model.CellEmpty
		}
	}
}

// Cell returns the value at row r, column c.
func (b *Board) Cell(r, c int) model.Cell {
	return b.cells[r][c]
}

// Rows returns a copy of the grid.
func (b *Board) Rows() [Size][Size]model.Cell {
	return b.cells
}

// Snapshot serializes the grid in row-major order.
func (b *Board) Snapshot() string {
	var sb strings.Builder
	sb.Grow(SnapshotLen)
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			sb.WriteByte(byte(b.cells[r][c]))
		}
	}
	return sb.String()
}

// Empty reports whether no cell holds a mark.
func (b *Board) Empty() bool {
	return b.Marks() == 0
}

// Marks counts the cells holding X or O.
func (b *Board) Marks() int {
	n := 0
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b.cells[r][c].IsMark() {
				n++
			}
		}
	}
	return n
}

// InBounds reports whether (r, c) addresses a cell.
func InBounds(r, c int) bool {
	return r >= 0 && r < Size && c >= 0 && c < Size
}
