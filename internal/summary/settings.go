package summary

import (
	"context"
	"errors"

	"github.com/jclarke67/voice-canvas-scribe/internal/storage"
)

// Settings is the persisted state of the summarization scheduler.
type Settings struct {
	Enabled           bool   `json:"enabled"`
	LastProcessedWeek string `json:"lastProcessedWeek"`
}

// SettingsStore persists Settings under the summary settings key.
type SettingsStore struct {
	gateway  *storage.Gateway
	defaults Settings
}

// NewSettingsStore constructs a SettingsStore that falls back to defaults when nothing is stored.
func NewSettingsStore(gateway *storage.Gateway, defaults Settings) *SettingsStore {
	return &SettingsStore{gateway: gateway, defaults: defaults}
}

// Load returns the stored settings, or the defaults when none are stored or they are unreadable.
func (s *SettingsStore) Load(ctx context.Context) (Settings, error) {
	settings := s.defaults
	_, err := s.gateway.LoadJSON(ctx, storage.SummarySettingsKey, &settings)
	if errors.Is(err, storage.ErrCorrupt) {
		return s.defaults, nil
	}
	if err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Save stores settings.
func (s *SettingsStore) Save(ctx context.Context, settings Settings) error {
	return s.gateway.SaveJSON(ctx, storage.SummarySettingsKey, settings)
}
