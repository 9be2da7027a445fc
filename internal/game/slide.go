package game

import "board2048/pkg/models"

// line is one row or column ordered so that tiles move toward index 0
type line [models.BoardSize]int

// mergeResult represents the result of merging a line
type mergeResult struct {
	line  line
	score int
}

// mergeLine compresses a line toward the front and merges equal
// neighbours. A single forward pass looks one tile ahead: a pair merges,
// and the scan continues after both tiles, so no tile merges twice.
func mergeLine(in line) mergeResult {
	var tiles []int
	for _, v := range in {
		if v != 0 {
			tiles = append(tiles, v)
		}
	}

	var result mergeResult
	pos := 0
	for i := 0; i < len(tiles); i++ {
		v := tiles[i]
		if i+1 < len(tiles) && tiles[i+1] == v {
			v *= 2
			result.score += v
			i++
		}
		result.line[pos] = v
		pos++
	}
	return result
}

// lineCells returns the board positions of line i for a direction,
// ordered front (the edge tiles move toward) to back.
func lineCells(direction models.Direction, i int) [models.BoardSize]models.Cell {
	var cells [models.BoardSize]models.Cell
	last := models.BoardSize - 1
	for k := 0; k < models.BoardSize; k++ {
		switch direction {
		case models.DirectionLeft:
			cells[k] = models.Cell{Row: i, Col: k}
		case models.DirectionRight:
			cells[k] = models.Cell{Row: i, Col: last - k}
		case models.DirectionUp:
			cells[k] = models.Cell{Row: k, Col: i}
		case models.DirectionDown:
			cells[k] = models.Cell{Row: last - k, Col: i}
		}
	}
	return cells
}

// slide applies a move to every line of the board. It returns the new
// board, the total of all merged values and whether any line changed.
func slide(board models.Board, direction models.Direction) (models.Board, int, bool) {
	next := board
	scoreGained := 0
	changed := false

	for i := 0; i < models.BoardSize; i++ {
		cells := lineCells(direction, i)

		var original line
		for k, c := range cells {
			original[k] = board[c.Row][c.Col]
		}

		merged := mergeLine(original)
		scoreGained += merged.score
		if merged.line != original {
			changed = true
		}

		for k, c := range cells {
			next[c.Row][c.Col] = merged.line[k]
		}
	}

	return next, scoreGained, changed
}

// Slide reports what a move would do to board without spawning a tile
func Slide(board models.Board, direction models.Direction) (models.Board, int, bool, error) {
	if !direction.Valid() {
		return board, 0, false, ErrInvalidDirection
	}
	next, gained, changed := slide(board, direction)
	return next, gained, changed, nil
}
