// Package oauthutil wraps an oauth2 token source with single-writer
// refresh semantics and pluggable token persistence.
package oauthutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// TokenStorage loads and saves the oauth token so that refresh tokens
// survive process restarts. Implementations must be safe for concurrent
// use. A nil TokenStorage keeps the token in memory only.
type TokenStorage interface {
	Load() (*oauth2.Token, error)
	Save(token *oauth2.Token) error
}

// TokenSource deals with the token refresh lifecycle. It is an
// oauth2.TokenSource whose refresh is serialised: when several callers
// hit an expired token at once exactly one refresh request goes out and
// the rest wait for its result under the mutex.
type TokenSource struct {
	mu          sync.Mutex
	ctx         context.Context
	config      *oauth2.Config
	storage     TokenStorage
	token       *oauth2.Token
	tokenSource oauth2.TokenSource
}

// NewTokenSource creates a TokenSource from the initial token. The
// storage may be nil.
func NewTokenSource(ctx context.Context, config *oauth2.Config, token *oauth2.Token, storage TokenStorage) (*TokenSource, error) {
	if token == nil && storage != nil {
		var err error
		token, err = storage.Load()
		if err != nil {
			return nil, fmt.Errorf("couldn't load token: %w", err)
		}
	}
	if token == nil {
		return nil, errors.New("no token supplied and none stored")
	}
	return &TokenSource{
		ctx:     ctx,
		config:  config,
		storage: storage,
		token:   token,
	}, nil
}

// Token returns a valid token, refreshing the stored one first if it
// has expired. Safe for concurrent use; the returned token must not be
// modified.
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token.Valid() {
		return ts.token, nil
	}
	if ts.token.RefreshToken == "" {
		return nil, errors.New("token expired and there's no refresh token")
	}
	if ts.tokenSource == nil {
		ts.tokenSource = ts.config.TokenSource(ts.ctx, ts.token)
	}
	token, err := ts.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("couldn't fetch token: %w", err)
	}
	changed := token.AccessToken != ts.token.AccessToken ||
		token.RefreshToken != ts.token.RefreshToken ||
		!token.Expiry.Equal(ts.token.Expiry)
	ts.token = token
	if changed && ts.storage != nil {
		if err := ts.storage.Save(token); err != nil {
			return nil, fmt.Errorf("couldn't store token: %w", err)
		}
	}
	return token, nil
}

// Invalidate invalidates the token so the next Token() refreshes it.
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	ts.token.AccessToken = ""
	ts.mu.Unlock()
}

// Expire marks the token as expired. Used when the remote rejects a
// token the local expiry time still considers valid.
func (ts *TokenSource) Expire() {
	ts.mu.Lock()
	ts.token.Expiry = time.Now().Add(-time.Hour)
	ts.tokenSource = nil // invalidate since we changed the token
	ts.mu.Unlock()
}

// Check interface
var _ oauth2.TokenSource = (*TokenSource)(nil)

// NewClient returns an authenticated http.Client using ts for bearer
// tokens, along with the TokenSource so callers can expire it when the
// remote reports the credential stale.
func NewClient(ctx context.Context, config *oauth2.Config, token *oauth2.Token, storage TokenStorage) (*http.Client, *TokenSource, error) {
	ts, err := NewTokenSource(ctx, config, token, storage)
	if err != nil {
		return nil, nil, err
	}
	client := oauth2.NewClient(ctx, ts)
	return client, ts, nil
}
