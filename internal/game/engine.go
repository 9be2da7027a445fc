// Package game implements the 2048 board engine: sliding and merging
// tiles, spawning new ones, detecting the end of the game and a single
// level of undo. The engine performs no I/O.
package game

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"board2048/pkg/models"
)

var (
	// ErrInvalidDirection is returned by Move for an unknown direction
	ErrInvalidDirection = models.ErrInvalidDirection
	// ErrInvalidTileCount is returned by Restart for a seed count outside the rules
	ErrInvalidTileCount = errors.New("invalid initial tile count")
	// ErrInvalidBoard is returned by Load for a state that cannot be resumed
	ErrInvalidBoard = models.ErrInvalidBoard
)

// Engine handles the core 2048 game logic for a single game.
// It is not safe for concurrent use; callers serialize access.
type Engine struct {
	rng   *rand.Rand
	rules Rules

	board    models.Board
	score    int
	prev     *models.Snapshot
	gameOver bool
}

// Option configures an Engine
type Option func(*Engine)

// WithSeed makes the engine's random choices reproducible
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewSource(seed))
	}
}

// WithRand uses r for every random choice
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = r
	}
}

// WithRules overrides the default spawn rules
func WithRules(rules Rules) Option {
	return func(e *Engine) {
		e.rules = rules
	}
}

// NewEngine creates an engine holding an empty board. Call NewGame or
// Restart to seed it.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{rules: DefaultRules()}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return e
}

// Rules returns the rules the engine plays by
func (e *Engine) Rules() Rules {
	return e.rules
}

// NewGame restarts with a random number of initial tiles drawn from the
// rules' range and returns that number. Rules that fail Validate leave
// the engine untouched and return the validation error.
func (e *Engine) NewGame() (int, error) {
	if err := e.rules.Validate(); err != nil {
		return 0, err
	}
	n := e.rules.InitialTilesMin
	if span := e.rules.InitialTilesMax - e.rules.InitialTilesMin + 1; span > 1 {
		n += e.rng.Intn(span)
	}
	if err := e.Restart(n); err != nil {
		return 0, err
	}
	return n, nil
}

// Restart clears the board, score, undo snapshot and game-over flag, then
// places exactly n tiles on distinct random empty cells.
func (e *Engine) Restart(n int) error {
	if n < e.rules.InitialTilesMin || n > e.rules.InitialTilesMax {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidTileCount, n, e.rules.InitialTilesMin, e.rules.InitialTilesMax)
	}

	e.board = models.NewBoard()
	e.score = 0
	e.prev = nil
	e.gameOver = false

	for i := 0; i < n; i++ {
		e.placeRandomTile()
	}
	return nil
}

// Move slides the board in the given direction. It reports whether any
// tile moved or merged; a move that changes nothing leaves the engine
// untouched, as does any move after the game is over.
func (e *Engine) Move(direction models.Direction) (bool, error) {
	if !direction.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}
	if e.gameOver {
		return false, nil
	}

	before := e.board
	next, gained, changed := slide(e.board, direction)
	if !changed {
		return false, nil
	}

	e.prev = &models.Snapshot{Board: before, Score: e.score}
	e.board = next
	e.score += gained
	e.spawn()

	if e.board.IsStuck() {
		e.gameOver = true
		e.prev = nil
	}
	return true, nil
}

// Undo restores the board and score saved by the last accepted move.
// Only one level is kept, so a second Undo in a row does nothing.
func (e *Engine) Undo() bool {
	if e.prev == nil || e.gameOver {
		return false
	}
	e.board = e.prev.Board
	e.score = e.prev.Score
	e.prev = nil
	return true
}

// Board returns a copy of the current board
func (e *Engine) Board() models.Board {
	return e.board
}

// Score returns the current score
func (e *Engine) Score() int {
	return e.score
}

// IsGameOver reports whether no move can change the board
func (e *Engine) IsGameOver() bool {
	return e.gameOver
}

// CanUndo reports whether Undo would succeed
func (e *Engine) CanUndo() bool {
	return e.prev != nil && !e.gameOver
}

// MaxTile returns the highest tile on the board
func (e *Engine) MaxTile() int {
	return e.board.MaxTile()
}

// State exports the engine state for persistence
func (e *Engine) State() models.EngineState {
	st := models.EngineState{
		Board:    e.board,
		Score:    e.score,
		GameOver: e.gameOver,
	}
	if e.prev != nil {
		snap := *e.prev
		st.Previous = &snap
	}
	return st
}

// Load replaces the engine state with a previously exported one.
// The game-over flag is recomputed from the board.
func (e *Engine) Load(st models.EngineState) error {
	if err := st.Board.Validate(); err != nil {
		return err
	}
	if st.Score < 0 {
		return fmt.Errorf("%w: negative score %d", ErrInvalidBoard, st.Score)
	}
	var prev *models.Snapshot
	if st.Previous != nil {
		if err := st.Previous.Board.Validate(); err != nil {
			return fmt.Errorf("undo snapshot: %w", err)
		}
		if st.Previous.Score < 0 || st.Previous.Score > st.Score {
			return fmt.Errorf("%w: undo snapshot score %d", ErrInvalidBoard, st.Previous.Score)
		}
		snap := *st.Previous
		prev = &snap
	}

	e.board = st.Board
	e.score = st.Score
	e.prev = prev
	e.gameOver = e.board.IsStuck()
	if e.gameOver {
		e.prev = nil
	}
	return nil
}

// spawn adds one tile, or two when the double-spawn draw succeeds and
// there is room for both. It returns the number of tiles placed.
func (e *Engine) spawn() int {
	empty := len(e.board.EmptyCells())
	if empty == 0 {
		return 0
	}
	count := 1
	if e.rng.Float64() < e.rules.DoubleSpawnChance && empty > 1 {
		count = 2
	}
	for i := 0; i < count; i++ {
		e.placeRandomTile()
	}
	return count
}

// placeRandomTile puts a 2 (or, with the rules' four chance, a 4) on a
// uniformly chosen empty cell.
func (e *Engine) placeRandomTile() bool {
	emptyCells := e.board.EmptyCells()
	if len(emptyCells) == 0 {
		return false
	}

	cell := emptyCells[e.rng.Intn(len(emptyCells))]

	value := 2
	if e.rng.Float64() < e.rules.FourChance {
		value = 4
	}

	e.board[cell.Row][cell.Col] = value
	return true
}
