package config

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	DefaultMaxHistoryItems = 500
	DefaultRetentionDays   = 30
)

// Preferences are the user-configurable limits the coordinator
// consumes at startup and on live updates. They persist as a small
// JSON file separate from the daemon config.
type Preferences struct {
	MaxHistoryItems int `json:"maxHistoryItems"`
	RetentionDays   int `json:"retentionDays"`
}

// DefaultPreferences returns the default preference set.
func DefaultPreferences() *Preferences {
	return &Preferences{
		MaxHistoryItems: DefaultMaxHistoryItems,
		RetentionDays:   DefaultRetentionDays,
	}
}

// Validate rejects non-positive limits without mutating state.
func (p *Preferences) Validate() error {
	if p.MaxHistoryItems <= 0 {
		return fmt.Errorf("maxHistoryItems must be positive, got %d", p.MaxHistoryItems)
	}
	if p.RetentionDays <= 0 {
		return fmt.Errorf("retentionDays must be positive, got %d", p.RetentionDays)
	}
	return nil
}

// LoadPreferences reads preferences from path, falling back to
// defaults when the file is absent.
func LoadPreferences(path string) (*Preferences, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPreferences(), nil
		}
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}

	prefs := DefaultPreferences()
	if err := json.Unmarshal(data, prefs); err != nil {
		return nil, fmt.Errorf("failed to parse preferences: %w", err)
	}
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	return prefs, nil
}

// Save writes the preferences to path as JSON.
func (p *Preferences) Save(path string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}
