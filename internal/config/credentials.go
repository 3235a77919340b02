package config

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// ServiceCredentials verifies the shared secret the orchestrating backend
// presents when requesting an API token. Only the bcrypt hash of the secret
// is held in the environment.
type ServiceCredentials struct {
	ClientID   string
	SecretHash string
}

// NewServiceCredentials reads SERVICE_CLIENT_ID and SERVICE_SECRET_HASH
// from the environment.
func NewServiceCredentials() (*ServiceCredentials, error) {
	clientID := os.Getenv("SERVICE_CLIENT_ID")
	if clientID == "" {
		return nil, fmt.Errorf("SERVICE_CLIENT_ID is required but not set")
	}
	hash := os.Getenv("SERVICE_SECRET_HASH")
	if hash == "" {
		return nil, fmt.Errorf("SERVICE_SECRET_HASH is required but not set")
	}
	return &ServiceCredentials{ClientID: clientID, SecretHash: hash}, nil
}

// Verify checks a presented client id and secret against the configured
// credentials.
func (c *ServiceCredentials) Verify(clientID, secret string) error {
	if clientID != c.ClientID {
		return fmt.Errorf("unknown client id")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.SecretHash), []byte(secret)); err != nil {
		return fmt.Errorf("invalid client secret")
	}
	return nil
}

// HashSecret hashes a client secret for storage in SERVICE_SECRET_HASH.
// Used by the credential bootstrap CLI path.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}
