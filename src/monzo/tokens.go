package monzo

import (
	"fmt"

	"monzo-manager/src/apperrors"
	"monzo-manager/src/models"
	"monzo-manager/src/util"
)

// TokenStore persists the OAuth token pair as JSON on disk.
type TokenStore struct {
	path string
}

func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

func (s *TokenStore) Path() string {
	return s.path
}

// Load returns the stored tokens. A missing file yields empty tokens.
func (s *TokenStore) Load() (models.Tokens, error) {
	var tokens models.Tokens
	err := util.WithFileLock(s.path, func() error {
		return util.ReadJSON(s.path, &tokens)
	})
	if err != nil && !util.IsNotExist(err) {
		return models.Tokens{}, fmt.Errorf("loading tokens: %w", err)
	}
	return tokens, nil
}

// Save atomically replaces the stored token pair.
func (s *TokenStore) Save(tokens models.Tokens) error {
	err := util.WithFileLock(s.path, func() error {
		return util.WriteJSON(s.path, tokens, 0o600)
	})
	if err != nil {
		return fmt.Errorf("saving tokens: %w", err)
	}
	return nil
}

// LoadSecrets reads the OAuth client credentials.
func LoadSecrets(path string) (models.Secrets, error) {
	var secrets models.Secrets
	if err := util.ReadJSON(path, &secrets); err != nil {
		if util.IsNotExist(err) {
			return models.Secrets{}, apperrors.Configuration("secrets file %s not found", path)
		}
		return models.Secrets{}, apperrors.Configuration("reading secrets: %v", err)
	}
	if secrets.ClientID == "" || secrets.ClientSecret == "" {
		return models.Secrets{}, apperrors.Configuration("secrets file %s must set client_id and client_secret", path)
	}
	return secrets, nil
}
