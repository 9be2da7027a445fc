package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// BoardSize is the width and height of the grid
const BoardSize = 4

// ErrInvalidBoard is returned when a board holds a value that is not a tile
var ErrInvalidBoard = errors.New("invalid board")

// Board represents a 4x4 game board. 0 is an empty cell.
type Board [BoardSize][BoardSize]int

// Cell is a row/column position on the board
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// NewBoard creates a new empty board
func NewBoard() Board {
	return Board{}
}

// IsEmpty checks if a cell is empty
func (b *Board) IsEmpty(row, col int) bool {
	return b[row][col] == 0
}

// EmptyCells returns all empty cell positions in row-major order
func (b *Board) EmptyCells() []Cell {
	var empty []Cell
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			if b.IsEmpty(row, col) {
				empty = append(empty, Cell{Row: row, Col: col})
			}
		}
	}
	return empty
}

// TileCount returns the number of non-empty cells
func (b *Board) TileCount() int {
	return BoardSize*BoardSize - len(b.EmptyCells())
}

// IsFull checks if the board is full
func (b *Board) IsFull() bool {
	return len(b.EmptyCells()) == 0
}

// HasMergeablePair reports whether any cell has an equal neighbour
// above, below, left or right of it.
func (b *Board) HasMergeablePair() bool {
	offsets := [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			v := b[row][col]
			if v == 0 {
				continue
			}
			for _, off := range offsets {
				r, c := row+off[0], col+off[1]
				if r < 0 || r >= BoardSize || c < 0 || c >= BoardSize {
					continue
				}
				if b[r][c] == v {
					return true
				}
			}
		}
	}
	return false
}

// IsStuck reports the terminal condition: no empty cell and no mergeable pair
func (b *Board) IsStuck() bool {
	return b.IsFull() && !b.HasMergeablePair()
}

// MaxTile returns the highest tile on the board
func (b *Board) MaxTile() int {
	maxVal := 0
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			if b[row][col] > maxVal {
				maxVal = b[row][col]
			}
		}
	}
	return maxVal
}

// Validate checks that every cell is empty or a power of two >= 2
func (b *Board) Validate() error {
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			v := b[row][col]
			if v == 0 {
				continue
			}
			if v < 2 || v&(v-1) != 0 {
				return fmt.Errorf("%w: cell (%d,%d) holds %d", ErrInvalidBoard, row, col, v)
			}
		}
	}
	return nil
}

// String renders the board as four space-separated rows, "." for empty cells
func (b Board) String() string {
	var sb strings.Builder
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			if col > 0 {
				sb.WriteByte(' ')
			}
			if b[row][col] == 0 {
				sb.WriteString(".")
			} else {
				sb.WriteString(strconv.Itoa(b[row][col]))
			}
		}
		if row < BoardSize-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
