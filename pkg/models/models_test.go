package models

import (
	"errors"
	"testing"
	"time"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input   string
		want    Direction
		wantErr bool
	}{
		{"up", DirectionUp, false},
		{" Down ", DirectionDown, false},
		{"LEFT", DirectionLeft, false},
		{"right", DirectionRight, false},
		{"", "", true},
		{"north", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDirection(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidDirection) {
				t.Errorf("ParseDirection(%q) error = %v, want ErrInvalidDirection", tt.input, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseDirection(%q) = %q, %v; want %q", tt.input, got, err, tt.want)
		}
	}
}

func TestBoardValidate(t *testing.T) {
	ok := Board{{2, 4, 8, 0}, {1024, 0, 0, 0}}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() on a legal board: %v", err)
	}
	for _, v := range []int{1, 3, 6, -2} {
		b := Board{{v}}
		if err := b.Validate(); !errors.Is(err, ErrInvalidBoard) {
			t.Errorf("Validate() with %d = %v, want ErrInvalidBoard", v, err)
		}
	}
}

func TestBoardHelpers(t *testing.T) {
	b := Board{
		{2, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 64, 0},
		{0, 0, 0, 4},
	}
	if got := b.TileCount(); got != 3 {
		t.Errorf("TileCount() = %d, want 3", got)
	}
	if got := len(b.EmptyCells()); got != 13 {
		t.Errorf("len(EmptyCells()) = %d, want 13", got)
	}
	if got := b.MaxTile(); got != 64 {
		t.Errorf("MaxTile() = %d, want 64", got)
	}
	if b.IsFull() || b.IsStuck() {
		t.Error("sparse board is neither full nor stuck")
	}

	want := "2 . . .\n. . . .\n. . 64 .\n. . . 4"
	if got := b.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestLeaderboardSince(t *testing.T) {
	// Thursday
	now := time.Date(2026, time.October, 15, 17, 30, 0, 0, time.UTC)

	tests := []struct {
		lb   LeaderboardType
		want time.Time
	}{
		{LeaderboardDaily, time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC)},
		{LeaderboardWeekly, time.Date(2026, time.October, 12, 0, 0, 0, 0, time.UTC)},
		{LeaderboardMonthly, time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)},
		{LeaderboardAll, time.Time{}},
	}
	for _, tt := range tests {
		if got := tt.lb.Since(now); !got.Equal(tt.want) {
			t.Errorf("%s.Since() = %v, want %v", tt.lb, got, tt.want)
		}
	}

	sunday := time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)
	if got := LeaderboardWeekly.Since(sunday); got.Day() != 12 {
		t.Errorf("week containing Sunday should start on Monday the 12th, got %v", got)
	}
}

func TestParseLeaderboardType(t *testing.T) {
	if got, err := ParseLeaderboardType(""); err != nil || got != LeaderboardAll {
		t.Errorf("ParseLeaderboardType(\"\") = %q, %v", got, err)
	}
	if got, err := ParseLeaderboardType("weekly"); err != nil || got != LeaderboardWeekly {
		t.Errorf("ParseLeaderboardType(weekly) = %q, %v", got, err)
	}
	if _, err := ParseLeaderboardType("yearly"); err == nil {
		t.Error("ParseLeaderboardType(yearly) should fail")
	}
}

func TestNewGameResponse(t *testing.T) {
	g := &GameState{
		Board:    Board{{2048, 2, 0, 0}},
		Score:    20000,
		Previous: &Snapshot{},
		Moves:    900,
	}
	resp := NewGameResponse(g, true, 2048)
	if !resp.Won || resp.MaxTile != 2048 || !resp.CanUndo || !resp.Changed {
		t.Errorf("unexpected response %+v", resp)
	}

	g.GameOver = true
	resp = NewGameResponse(g, false, 0)
	if resp.Won || resp.CanUndo {
		t.Errorf("finished game without target: %+v", resp)
	}
}
