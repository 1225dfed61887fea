package application

import (
	"encoding/json"
	"fmt"

	"github.com/bnema/we-quota-cli/internal/domain"
)

type SignInCommand struct {
	Number   string
	Password string
	// Name is optional; the service number is used when it is empty.
	Name string
}

// storedCredentials is the secret value written for an account.
type storedCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func encodeCredentials(creds domain.Credentials) (string, error) {
	data, err := json.Marshal(storedCredentials{Username: creds.Number, Password: creds.Password})
	if err != nil {
		return "", fmt.Errorf("encode credentials: %w", err)
	}

	return string(data), nil
}

func decodeCredentials(raw string) (domain.Credentials, error) {
	var stored storedCredentials
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return domain.Credentials{}, fmt.Errorf("decode credentials: %w", err)
	}
	if stored.Username == "" || stored.Password == "" {
		return domain.Credentials{}, fmt.Errorf("decode credentials: %w", ErrMissingCredentials)
	}

	return domain.NewCredentials(stored.Username, stored.Password), nil
}
