package services

import (
	"context"
	"encoding/json"
	"fmt"

	"tempo/internal/database"
)

const (
	prefKeyLastActive  = "last_active_session"
	prefKeyPreferences = "preferences"
)

// PreferenceStore хранит указатель на последнюю активную сессию и настройки.
type PreferenceStore interface {
	SetLastActiveSession(ctx context.Context, p database.LastActiveSession) error
	ClearLastActiveSession(ctx context.Context) error
	LastActiveSession(ctx context.Context) (*database.LastActiveSession, error)
	Preferences(ctx context.Context) (database.Preferences, error)
	SavePreferences(ctx context.Context, p database.Preferences) error
}

type PreferencesService struct {
	repository *database.Repository
}

func NewPreferencesService(repo *database.Repository) *PreferencesService {
	return &PreferencesService{repository: repo}
}

func (ps *PreferencesService) SetLastActiveSession(ctx context.Context, p database.LastActiveSession) error {
	return setJSON(ctx, ps.repository, prefKeyLastActive, p)
}

func (ps *PreferencesService) ClearLastActiveSession(ctx context.Context) error {
	return ps.repository.DeletePreference(ctx, prefKeyLastActive)
}

// LastActiveSession returns nil when no pointer is stored.
func (ps *PreferencesService) LastActiveSession(ctx context.Context) (*database.LastActiveSession, error) {
	var p database.LastActiveSession
	found, err := getJSON(ctx, ps.repository, prefKeyLastActive, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// Preferences returns the stored settings, or defaults when none were saved.
func (ps *PreferencesService) Preferences(ctx context.Context) (database.Preferences, error) {
	p := database.DefaultPreferences
	if _, err := getJSON(ctx, ps.repository, prefKeyPreferences, &p); err != nil {
		return database.DefaultPreferences, err
	}
	return p, nil
}

func (ps *PreferencesService) SavePreferences(ctx context.Context, p database.Preferences) error {
	return savePreferences(ctx, ps.repository, p)
}

func savePreferences(ctx context.Context, repo *database.Repository, p database.Preferences) error {
	return setJSON(ctx, repo, prefKeyPreferences, p)
}

func setJSON(ctx context.Context, repo *database.Repository, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return repo.SetPreference(ctx, key, string(data))
}

func getJSON(ctx context.Context, repo *database.Repository, key string, out any) (bool, error) {
	raw, found, err := repo.GetPreference(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
