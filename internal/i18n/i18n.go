package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

//go:embed locales/*.json
var localeFiles embed.FS

// Message keys shared by the HTTP, WebSocket and MCP surfaces
const (
	KeyGameOver              = "game.over"
	KeyGameWon               = "game.won"
	KeyNoActiveGame          = "game.no_active"
	KeyGameNotOver           = "game.not_over"
	KeyScoreSaved            = "game.score_saved"
	KeyScoreAlreadySubmitted = "game.score_already_submitted"
	KeyInvalidDirection      = "game.invalid_direction"
	KeyUndoUnavailable       = "game.undo_unavailable"
	KeyMoveIgnored           = "game.move_ignored"
	KeyAnonymous             = "leaderboard.anonymous"
	KeyInvalidLeaderboard    = "leaderboard.invalid_type"
	KeyLeaderboardCleared    = "leaderboard.cleared"
	KeyAuthRequired          = "auth.required"
	KeyInvalidToken          = "auth.invalid_token"
	KeyForbidden             = "auth.forbidden"
	KeyOAuth2Disabled        = "auth.oauth2_disabled"
	KeyBadRequest            = "error.bad_request"
	KeyInternal              = "error.internal"
)

// I18n represents the internationalization manager
type I18n struct {
	defaultLang string
	languages   map[string]map[string]string
	mu          sync.RWMutex
}

// New creates a new I18n instance with every embedded locale loaded
func New(defaultLang string) (*I18n, error) {
	i18n := &I18n{
		defaultLang: defaultLang,
		languages:   make(map[string]map[string]string),
	}

	entries, err := localeFiles.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("failed to list locales: %w", err)
	}
	for _, entry := range entries {
		lang := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		if err := i18n.LoadLanguage(lang); err != nil {
			return nil, err
		}
	}

	if _, ok := i18n.languages[defaultLang]; !ok {
		return nil, fmt.Errorf("default language %q has no locale file", defaultLang)
	}

	return i18n, nil
}

// LoadLanguage loads a specific language file
func (i *I18n) LoadLanguage(lang string) error {
	filename := fmt.Sprintf("locales/%s.json", lang)

	data, err := localeFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read language file %s: %w", filename, err)
	}

	var translations map[string]string
	if err := json.Unmarshal(data, &translations); err != nil {
		return fmt.Errorf("failed to parse language file %s: %w", filename, err)
	}

	i.mu.Lock()
	i.languages[lang] = translations
	i.mu.Unlock()
	return nil
}

// DefaultLanguage returns the fallback language
func (i *I18n) DefaultLanguage() string {
	return i.defaultLang
}

// T translates a key for the given language
func (i *I18n) T(lang, key string) string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	// Try the requested language first
	if translations, ok := i.languages[lang]; ok {
		if translation, exists := translations[key]; exists {
			return translation
		}
	}

	// Fallback to default language
	if lang != i.defaultLang {
		if translations, ok := i.languages[i.defaultLang]; ok {
			if translation, exists := translations[key]; exists {
				return translation
			}
		}
	}

	// Return the key itself if no translation found
	return key
}

// Tf translates a key with format arguments
func (i *I18n) Tf(lang, key string, args ...interface{}) string {
	translation := i.T(lang, key)
	return fmt.Sprintf(translation, args...)
}

// GetSupportedLanguages returns all supported languages, sorted
func (i *I18n) GetSupportedLanguages() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	langs := make([]string, 0, len(i.languages))
	for lang := range i.languages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// IsSupported reports whether a locale exists for lang
func (i *I18n) IsSupported(lang string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.languages[lang]
	return ok
}

// DetectLanguage detects language from Accept-Language header
func (i *I18n) DetectLanguage(acceptLang string) string {
	if acceptLang == "" {
		return i.defaultLang
	}

	supported := i.GetSupportedLanguages()

	// Find the first supported language
	for _, lang := range parseAcceptLanguage(acceptLang) {
		for _, s := range supported {
			if strings.EqualFold(s, lang) {
				return s
			}
		}

		// Try language without region (e.g., "zh" from "zh-TW")
		baseLang := strings.ToLower(strings.Split(lang, "-")[0])
		for _, s := range supported {
			if strings.ToLower(strings.Split(s, "-")[0]) == baseLang {
				return s
			}
		}
	}

	return i.defaultLang
}

// parseAcceptLanguage parses the Accept-Language header
func parseAcceptLanguage(acceptLang string) []string {
	var languages []string

	parts := strings.Split(acceptLang, ",")
	for _, part := range parts {
		lang := strings.TrimSpace(part)
		if idx := strings.Index(lang, ";"); idx != -1 {
			lang = lang[:idx]
		}
		lang = strings.TrimSpace(lang)
		if lang != "" && lang != "*" {
			languages = append(languages, lang)
		}
	}

	return languages
}
