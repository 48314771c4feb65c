package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"voxlate/internal/domain"
)

const (
	keySource = "languages.source"
	keyTarget = "languages.target"
)

// Store persists the last used language pair in a YAML file.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the stored pair. A missing file yields the defaults.
func (s *Store) Load() (domain.LanguagePair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.newViper()
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) || isNotFound(err) {
			return defaultPair(), nil
		}
		return defaultPair(), fmt.Errorf("read preferences: %w", err)
	}

	pair := domain.LanguagePair{
		Source: v.GetString(keySource),
		Target: v.GetString(keyTarget),
	}
	if pair.Source == "" {
		pair.Source = domain.DefaultSourceLanguage
	}
	if pair.Target == "" {
		pair.Target = domain.DefaultTargetLanguage
	}
	return pair, nil
}

// Save writes pair, creating the parent directory when needed.
func (s *Store) Save(pair domain.LanguagePair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	v := s.newViper()
	v.Set(keySource, pair.Source)
	v.Set(keyTarget, pair.Target)
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}

func (s *Store) newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")
	v.SetDefault(keySource, domain.DefaultSourceLanguage)
	v.SetDefault(keyTarget, domain.DefaultTargetLanguage)
	return v
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound)
}

func defaultPair() domain.LanguagePair {
	return domain.DefaultLanguages()
}
