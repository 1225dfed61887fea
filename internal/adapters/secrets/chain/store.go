package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bnema/we-quota-cli/internal/domain"
	"github.com/bnema/we-quota-cli/internal/ports"
)

// Store prefers the primary backend and uses the fallback only when the
// primary cannot serve a request. A secret lives in exactly one backend:
// a successful primary write removes any stale fallback copy.
type Store struct {
	primary  ports.SecretStore
	fallback ports.SecretStore
	logger   *slog.Logger
}

var _ ports.SecretStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary secret store is nil")
	errNilFallbackStore = errors.New("fallback secret store is nil")
)

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewStore(primary ports.SecretStore, fallback ports.SecretStore, opts ...Option) *Store {
	store, err := NewStoreChecked(primary, fallback, opts...)
	if err != nil {
		panic(err)
	}

	return store
}

func NewStoreChecked(primary ports.SecretStore, fallback ports.SecretStore, opts ...Option) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}

	store := &Store{primary: primary, fallback: fallback, logger: slog.Default()}
	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	err := s.primary.Put(ctx, key, value)
	if err == nil {
		if delErr := s.fallback.Delete(ctx, key); delErr != nil && !errors.Is(delErr, domain.ErrSecretNotFound) {
			s.logger.Warn("remove stale fallback secret", "key", key, "error", delErr)
		}
		return nil
	}
	if shouldSkipFallback(err) {
		return err
	}

	s.logger.Warn("primary secret backend failed, using fallback", "op", "put", "key", key, "error", err)
	fallbackErr := s.fallback.Put(ctx, key, value)
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("primary backend put failed: %w; fallback backend put failed: %w", err, fallbackErr)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if shouldSkipFallback(err) {
		return "", err
	}

	fallbackValue, fallbackErr := s.fallback.Get(ctx, key)
	if fallbackErr == nil {
		return fallbackValue, nil
	}
	if errors.Is(err, domain.ErrSecretNotFound) && errors.Is(fallbackErr, domain.ErrSecretNotFound) {
		return "", fmt.Errorf("secret %q: %w", key, domain.ErrSecretNotFound)
	}

	return "", fmt.Errorf("primary backend get failed: %w; fallback backend get failed: %w", err, fallbackErr)
}

// Delete removes the secret from both backends. It reports
// domain.ErrSecretNotFound only when neither backend held it.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.primary.Delete(ctx, key)
	if shouldSkipFallback(err) {
		return err
	}

	fallbackErr := s.fallback.Delete(ctx, key)

	primaryMissing := errors.Is(err, domain.ErrSecretNotFound)
	fallbackMissing := errors.Is(fallbackErr, domain.ErrSecretNotFound)
	switch {
	case primaryMissing && fallbackMissing:
		return fmt.Errorf("secret %q: %w", key, domain.ErrSecretNotFound)
	case err == nil || primaryMissing:
		if fallbackErr == nil || fallbackMissing {
			return nil
		}
		return fmt.Errorf("fallback backend delete failed: %w", fallbackErr)
	case fallbackErr == nil:
		// The primary backend may be unavailable; the secret can only have lived in the fallback.
		s.logger.Debug("primary secret backend delete failed", "key", key, "error", err)
		return nil
	default:
		return fmt.Errorf("primary backend delete failed: %w; fallback backend delete failed: %w", err, fallbackErr)
	}
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
