package version

import (
	"strings"
	"testing"

	"board2048/internal/game"
)

func TestRulesFingerprint(t *testing.T) {
	a := Rules(game.DefaultRules())
	if len(a) != 9 || !strings.HasPrefix(a, "r") {
		t.Fatalf("fingerprint = %q", a)
	}
	if b := Rules(game.DefaultRules()); a != b {
		t.Errorf("fingerprint not stable: %q vs %q", a, b)
	}

	changed := game.DefaultRules()
	changed.FourChance = 0.5
	if Rules(changed) == a {
		t.Error("different rules share a fingerprint")
	}
}
