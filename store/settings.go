package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/npillmayer/blocker/rule"
)

// Theme is the UI color theme.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ParseTheme accepts "light", "dark" and "system".
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	}
	return ThemeSystem, fmt.Errorf("unknown theme %q", s)
}

// Settings are the global switches and the UI theme.
type Settings struct {
	Enabled      bool // blocking switch
	StyleEnabled bool // styling switch
	Theme        Theme
}

// DefaultSettings are in effect for absent keys.
func DefaultSettings() Settings {
	return Settings{Enabled: true, StyleEnabled: true, Theme: ThemeSystem}
}

var settingKeys = [...]string{rule.KeyIsEnabled, rule.KeyIsStyleEnabled, rule.KeyTheme}

func isSettingKey(key string) bool {
	for _, k := range settingKeys {
		if k == key {
			return true
		}
	}
	return false
}

// apply decodes a stored value. Switches holding anything but a JSON
// boolean are treated as on, an unknown theme as "system".
func (st *Settings) apply(key string, raw []byte) {
	switch key {
	case rule.KeyIsEnabled:
		st.Enabled = decodeSwitch(raw)
	case rule.KeyIsStyleEnabled:
		st.StyleEnabled = decodeSwitch(raw)
	case rule.KeyTheme:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			st.Theme = ThemeSystem
			return
		}
		st.Theme, _ = ParseTheme(s)
	}
}

func (st *Settings) reset(key string) {
	d := DefaultSettings()
	switch key {
	case rule.KeyIsEnabled:
		st.Enabled = d.Enabled
	case rule.KeyIsStyleEnabled:
		st.StyleEnabled = d.StyleEnabled
	case rule.KeyTheme:
		st.Theme = d.Theme
	}
}

func decodeSwitch(raw []byte) bool {
	var on bool
	if err := json.Unmarshal(raw, &on); err != nil {
		return true
	}
	return on
}

// Settings returns the current settings.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Enabled returns the global switch for rules of kind.
func (s *Store) Enabled(kind rule.Kind) bool {
	st := s.Settings()
	if kind == rule.Styling {
		return st.StyleEnabled
	}
	return st.Enabled
}

// SetEnabled sets the global switch for rules of kind.
func (s *Store) SetEnabled(ctx context.Context, kind rule.Kind, on bool) error {
	s.mu.Lock()
	if kind == rule.Styling {
		s.settings.StyleEnabled = on
	} else {
		s.settings.Enabled = on
	}
	s.mu.Unlock()
	tracer().Infof("store: %s switched %v", kind, on)
	return s.commitSetting(ctx, kind.SwitchKey(), on)
}

// ToggleEnabled flips the global switch for rules of kind and returns the
// new state.
func (s *Store) ToggleEnabled(ctx context.Context, kind rule.Kind) (bool, error) {
	on := !s.Enabled(kind)
	return on, s.SetEnabled(ctx, kind, on)
}

// SetTheme persists the UI theme.
func (s *Store) SetTheme(ctx context.Context, t Theme) error {
	t, err := ParseTheme(string(t))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.settings.Theme = t
	s.mu.Unlock()
	return s.commitSetting(ctx, rule.KeyTheme, string(t))
}

func (s *Store) commitSetting(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return rule.Persistence("encode "+key, err)
	}
	err = s.writeRaw(ctx, key, raw)
	s.listeners.notify(Event{Key: key})
	return err
}
