package models

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/bcrypt"

	"github.com/Xczer/docsee-gui/internal/db"
)

const (
	keyJWTSecret   = "jwtSecret"
	keyAppSettings = "appSettings"
)

// SettingStore keeps small key/value records in the settings bucket and
// caches the decoded AppSettings.
type SettingStore struct {
	db  *bolt.DB
	now func() time.Time

	mu  sync.RWMutex
	app *AppSettings // nil until first load
}

func NewSettingStore(database *bolt.DB) *SettingStore {
	return &SettingStore{db: database, now: time.Now}
}

// Get retrieves a raw value by key. Returns "" if not found.
func (s *SettingStore) Get(key string) (string, error) {
	var val string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(db.BucketSettings).Get([]byte(key)); v != nil {
			val = string(v)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return val, nil
}

// Set stores a raw value (upsert).
func (s *SettingStore) Set(key, value string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(db.BucketSettings).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// App returns the stored AppSettings. Fields missing from the stored record
// keep their defaults; nothing stored yields DefaultAppSettings.
func (s *SettingStore) App() (AppSettings, error) {
	s.mu.RLock()
	if s.app != nil {
		out := *s.app
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	raw, err := s.Get(keyAppSettings)
	if err != nil {
		return AppSettings{}, err
	}

	settings := DefaultAppSettings()
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			return AppSettings{}, fmt.Errorf("decode app settings: %w", err)
		}
		if settings.Version == "" {
			settings.Version = SettingsVersion
		}
	}

	s.mu.Lock()
	s.app = &settings
	s.mu.Unlock()
	return settings, nil
}

// SaveApp validates and stores settings, stamping LastModified. The stored
// copy is returned.
func (s *SettingStore) SaveApp(settings AppSettings) (AppSettings, error) {
	if err := settings.Validate(); err != nil {
		return AppSettings{}, err
	}
	if settings.Version == "" {
		settings.Version = SettingsVersion
	}
	settings.LastModified = s.now().UnixMilli()

	data, err := json.Marshal(settings)
	if err != nil {
		return AppSettings{}, fmt.Errorf("encode app settings: %w", err)
	}
	if err := s.Set(keyAppSettings, string(data)); err != nil {
		return AppSettings{}, err
	}

	s.mu.Lock()
	s.app = &settings
	s.mu.Unlock()
	return settings, nil
}

// ResetApp replaces the stored settings with the defaults.
func (s *SettingStore) ResetApp() (AppSettings, error) {
	return s.SaveApp(DefaultAppSettings())
}

// EnsureJWTSecret creates the JWT signing secret on first run and returns it.
func (s *SettingStore) EnsureJWTSecret() (string, error) {
	secret, err := s.Get(keyJWTSecret)
	if err != nil {
		return "", err
	}
	if secret != "" {
		return secret, nil
	}

	raw, err := GenSecret(secretLength)
	if err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}

	secret = string(hash)
	if err := s.Set(keyJWTSecret, secret); err != nil {
		return "", err
	}

	slog.Info("generated new JWT secret")
	return secret, nil
}
