package tokenstore

import (
	"errors"
	"os"

	"github.com/rs/zerolog"

	"github.com/benmeehan/freebox-agent/pkg/encryption"
	"github.com/benmeehan/freebox-agent/pkg/file"
	"github.com/benmeehan/freebox-agent/pkg/freebox"
	"github.com/benmeehan/freebox-agent/pkg/identity"
)

// DefaultPath is the state file used when none is configured.
const DefaultPath = "free.conf"

// Configuration is the persisted application state.
type Configuration struct {
	AppID          string `json:"app_id"`
	AppToken       string `json:"app_token,omitempty"`
	AppTokenSealed string `json:"app_token_sealed,omitempty"`
}

// Store keeps the app id and app token in a JSON file. When a sealer is
// set, the token is stored encrypted.
type Store struct {
	path    string
	fileOps file.FileOperations
	sealer  encryption.EncryptionManagerInterface
	logger  zerolog.Logger
}

// NewStore returns a Store for path. sealer may be nil.
func NewStore(path string, fileOps file.FileOperations, sealer encryption.EncryptionManagerInterface, logger zerolog.Logger) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{
		path:    path,
		fileOps: fileOps,
		sealer:  sealer,
		logger:  logger,
	}
}

// Path returns the state file location.
func (s *Store) Path() string { return s.path }

// Load reads the state file. ok is true only when a usable token is present;
// cfg is still returned when the file exists without one, so a persisted
// app id can be reused. AppToken always holds the plaintext token.
func (s *Store) Load() (*Configuration, bool) {
	var cfg Configuration
	if err := s.fileOps.ReadJsonFile(s.path, &cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("Ignoring unreadable state file")
		}
		return nil, false
	}

	if cfg.AppTokenSealed != "" {
		if s.sealer == nil {
			s.logger.Warn().Str("path", s.path).Msg("State file holds a sealed token but no key is configured")
			cfg.AppToken = ""
			return &cfg, false
		}
		token, err := s.sealer.Unseal(cfg.AppTokenSealed)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("Failed to unseal app token, authorization will run again")
			cfg.AppToken = ""
			return &cfg, false
		}
		cfg.AppToken = token
	}

	return &cfg, cfg.AppToken != ""
}

// Token returns the persisted app token when it was issued to appID.
func (s *Store) Token(appID string) (string, bool) {
	cfg, ok := s.Load()
	if !ok {
		return "", false
	}
	if cfg.AppID != appID {
		s.logger.Warn().
			Str("path", s.path).
			Str("persisted_app_id", cfg.AppID).
			Str("app_id", appID).
			Msg("Persisted app token belongs to another app id, authorization will run again")
		return "", false
	}
	return cfg.AppToken, true
}

// AppID returns the persisted app id, or "" when there is none.
func (s *Store) AppID() string {
	cfg, _ := s.Load()
	if cfg == nil {
		return ""
	}
	return cfg.AppID
}

// Save durably writes the app id and token under an exclusive file lock.
func (s *Store) Save(id *identity.Identity, token string) error {
	cfg := Configuration{AppID: id.AppID}
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(token)
		if err != nil {
			return &freebox.PersistError{Path: s.path, Err: err}
		}
		cfg.AppTokenSealed = sealed
	} else {
		cfg.AppToken = token
	}

	err := s.fileOps.WithLock(s.path, func() error {
		return s.fileOps.WriteJsonFile(s.path, cfg)
	})
	if err != nil {
		return &freebox.PersistError{Path: s.path, Err: err}
	}
	return nil
}

var _ freebox.TokenStore = (*Store)(nil)
