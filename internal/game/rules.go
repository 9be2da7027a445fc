package game

import "fmt"

// Rules holds the tunable parameters of the spawn rule
type Rules struct {
	InitialTilesMin   int     `yaml:"initial_tiles_min" json:"initial_tiles_min"`
	InitialTilesMax   int     `yaml:"initial_tiles_max" json:"initial_tiles_max"`
	DoubleSpawnChance float64 `yaml:"double_spawn_chance" json:"double_spawn_chance"`
	FourChance        float64 `yaml:"four_chance" json:"four_chance"`
	TargetTile        int     `yaml:"target_tile" json:"target_tile"`
}

// DefaultRules returns the classic rules: 1-3 starting tiles, a second
// spawned tile 20% of the time, a 4 instead of a 2 10% of the time.
func DefaultRules() Rules {
	return Rules{
		InitialTilesMin:   1,
		InitialTilesMax:   3,
		DoubleSpawnChance: 0.2,
		FourChance:        0.1,
		TargetTile:        2048,
	}
}

// Validate checks the rules for values the engine cannot honour
func (r Rules) Validate() error {
	if r.InitialTilesMin < 1 || r.InitialTilesMax < r.InitialTilesMin || r.InitialTilesMax > 3 {
		return fmt.Errorf("initial tiles range [%d, %d] must lie within [1, 3]", r.InitialTilesMin, r.InitialTilesMax)
	}
	if r.DoubleSpawnChance < 0 || r.DoubleSpawnChance > 1 {
		return fmt.Errorf("double spawn chance %v must be within [0, 1]", r.DoubleSpawnChance)
	}
	if r.FourChance < 0 || r.FourChance > 1 {
		return fmt.Errorf("four chance %v must be within [0, 1]", r.FourChance)
	}
	if r.TargetTile < 0 {
		return fmt.Errorf("target tile must not be negative")
	}
	return nil
}
