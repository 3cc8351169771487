package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// SetAgent records the selected agent target.
func SetAgent(cfg *Config, agent string) error {
	agent = strings.ToLower(strings.TrimSpace(agent))
	if agent == "" {
		return fmt.Errorf("CFG_AGENT: empty agent id")
	}
	cfg.UI.Agent = agent
	return nil
}

// SetScope records the selected installation scope.
func SetScope(cfg *Config, scope string) error {
	s, err := ParseScope(strings.ToLower(strings.TrimSpace(scope)))
	if err != nil {
		return err
	}
	cfg.UI.Scope = string(s)
	return nil
}

// SetLanguage stores the canonical BCP-47 form of lang.
func SetLanguage(cfg *Config, lang string) error {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return fmt.Errorf("CFG_LANGUAGE: invalid language %q: %w", lang, err)
	}
	cfg.UI.Language = tag.String()
	return nil
}

// SetToken stores the API access token; an empty token clears it.
func SetToken(cfg *Config, token string) {
	cfg.GitHub.Token = strings.TrimSpace(token)
}
