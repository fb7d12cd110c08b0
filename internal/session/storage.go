package session

import (
	"context"

	"golang.org/x/oauth2"
)

// Storage defines the token storage API.
// Implementations persist at most one token per key and return a nil token if none is stored.
type Storage interface {
	// Load retrieves the token stored under the given key
	Load(ctx context.Context, key string) (*oauth2.Token, error)

	// Save stores a token under the given key, replacing the previous one
	Save(ctx context.Context, key string, token *oauth2.Token) error

	// Delete removes the token stored under the given key
	Delete(ctx context.Context, key string) error
}
