package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"board2048/internal/game"
)

const localRulesPath = "configs/rules.yaml"

//go:embed defaults/rules.yaml
var defaultRulesYAML []byte

// LoadRules loads the game rules.
// Search order: customPath -> ./configs/rules.yaml -> embedded default
func LoadRules(customPath string) (game.Rules, error) {
	// Try custom path first
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return game.Rules{}, fmt.Errorf("failed to read rules %s: %w", customPath, err)
		}
		return parseRules(data, customPath)
	}

	// Try local configs directory; a file that exists must be valid
	data, err := os.ReadFile(localRulesPath)
	switch {
	case err == nil:
		return parseRules(data, localRulesPath)
	case !errors.Is(err, fs.ErrNotExist):
		return game.Rules{}, fmt.Errorf("failed to read rules %s: %w", localRulesPath, err)
	}

	// Use embedded default YAML
	rules, err := parseRules(defaultRulesYAML, "embedded rules")
	if err != nil {
		return game.DefaultRules(), nil
	}
	return rules, nil
}

// parseRules decodes YAML over the default rules, so omitted keys keep
// their defaults, then validates the result.
func parseRules(data []byte, source string) (game.Rules, error) {
	rules := game.DefaultRules()
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return game.Rules{}, fmt.Errorf("failed to parse rules %s: %w", source, err)
	}
	if err := rules.Validate(); err != nil {
		return game.Rules{}, fmt.Errorf("invalid rules %s: %w", source, err)
	}
	return rules, nil
}
