package client

import (
	"errors"
	"strings"

	"github.com/99designs/keyring"
)

const (
	keyringApp     = "listingchat"
	keyringService = "listingchat auth"
)

// Keyring keeps the bearer token in the OS credential store between CLI invocations, one token per API
// server so that switching servers never sends a token to the wrong one.
type Keyring struct {
	kr  keyring.Keyring
	key string
}

func OpenKeyring(serverURL string) (*Keyring, error) {
	kr, err := keyring.Open(keyring.Config{
		ServiceName:             keyringService,
		KeyCtlScope:             "user",
		LibSecretCollectionName: keyringApp,
		WinCredPrefix:           keyringApp,
	})
	if err != nil {
		return nil, err
	}
	return &Keyring{kr: kr, key: "token " + strings.TrimSuffix(serverURL, "/")}, nil
}

// SetAuthToken stores token, email only labels the item in the credential manager's UI
func (k *Keyring) SetAuthToken(email, token string) error {
	return k.kr.Set(keyring.Item{
		Key:         k.key,
		Data:        []byte(token),
		Label:       "listingchat " + email,
		Description: "listingchat bearer token",
	})
}

// RemoveAuthToken is a no-op when nothing is stored
func (k *Keyring) RemoveAuthToken() error {
	if err := k.kr.Remove(k.key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}

// AuthToken returns ErrNotLoggedIn when no token was stored
func (k *Keyring) AuthToken() (string, error) {
	item, err := k.kr.Get(k.key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotLoggedIn
	}
	if err != nil {
		return "", err
	}
	return string(item.Data), nil
}
