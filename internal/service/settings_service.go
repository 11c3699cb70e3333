package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/repository"
)

// SettingOpenFIGIKey is the settings-table key for the identifier-lookup
// service API key.
const SettingOpenFIGIKey = "openfigi_api_key"

// SettingsService stores operator-provided secrets. Secret values are
// encrypted at rest with the configured fernet key; without one, storage
// is refused rather than writing the value in the clear.
type SettingsService struct {
	settingsRepo *repository.SettingsRepository
	fernetKey    string
	envFIGIKey   string
}

// NewSettingsService creates a new SettingsService. fernetKey is the
// base64 fernet key from the environment, envFIGIKey the OPENFIGI_API_KEY
// override; both may be empty.
func NewSettingsService(settingsRepo *repository.SettingsRepository, fernetKey, envFIGIKey string) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
		fernetKey:    fernetKey,
		envFIGIKey:   envFIGIKey,
	}
}

// StoreOpenFIGIKey encrypts and persists the lookup-service API key.
func (s *SettingsService) StoreOpenFIGIKey(value string) error {
	if value == "" {
		return fmt.Errorf("API key must not be empty")
	}
	if s.fernetKey == "" {
		return fmt.Errorf("secret storage requires FERNET_KEY to be configured")
	}
	keys, err := fernet.DecodeKeys(s.fernetKey)
	if err != nil {
		return fmt.Errorf("invalid FERNET_KEY: %w", err)
	}

	token, err := fernet.EncryptAndSign([]byte(value), keys[0])
	if err != nil {
		return fmt.Errorf("failed to encrypt API key: %w", err)
	}
	return s.settingsRepo.Set(SettingOpenFIGIKey, string(token), true, time.Now().UTC())
}

// OpenFIGIKey returns the lookup-service API key, or "" when none is
// configured. The environment variable wins over the stored setting;
// running unkeyed is valid, just slower.
func (s *SettingsService) OpenFIGIKey() (string, error) {
	if s.envFIGIKey != "" {
		return s.envFIGIKey, nil
	}

	value, encrypted, err := s.settingsRepo.Get(SettingOpenFIGIKey)
	if errors.Is(err, apperrors.ErrSettingNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !encrypted {
		return value, nil
	}

	if s.fernetKey == "" {
		return "", fmt.Errorf("stored API key is encrypted but FERNET_KEY is not configured")
	}
	keys, err := fernet.DecodeKeys(s.fernetKey)
	if err != nil {
		return "", fmt.Errorf("invalid FERNET_KEY: %w", err)
	}

	// VerifyAndDecrypt with zero TTL: stored keys do not expire.
	message := fernet.VerifyAndDecrypt([]byte(value), 0, keys)
	if message == nil {
		return "", fmt.Errorf("failed to decrypt stored API key; was FERNET_KEY rotated?")
	}
	return string(message), nil
}
