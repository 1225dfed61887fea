package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bnema/we-quota-cli/internal/domain"
	"github.com/bnema/we-quota-cli/internal/ports"
)

var ErrMissingCredentials = errors.New("service number and password are required")

// ProviderFactory builds a provider bound to a single account. Providers keep
// per-login state such as cookies, so accounts never share one.
type ProviderFactory func() (ports.QuotaProvider, error)

type Service struct {
	repo        ports.AccountRepository
	store       ports.SecretStore
	clock       ports.Clock
	newProvider ProviderFactory
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[domain.AccountID]*accountSession
}

type accountSession struct {
	mu       sync.Mutex
	provider ports.QuotaProvider
	session  *domain.Session
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(repo ports.AccountRepository, store ports.SecretStore, clock ports.Clock, newProvider ProviderFactory, opts ...Option) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	s := &Service{
		repo:        repo,
		store:       store,
		clock:       clock,
		newProvider: newProvider,
		logger:      slog.Default(),
		sessions:    map[domain.AccountID]*accountSession{},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SignIn verifies the credentials with a live login before anything is persisted.
func (s *Service) SignIn(ctx context.Context, cmd SignInCommand) (domain.Account, error) {
	creds := domain.NewCredentials(cmd.Number, cmd.Password)
	if creds.Number == "" || creds.Password == "" {
		return domain.Account{}, ErrMissingCredentials
	}
	id := creds.AccountID()

	entry, err := s.sessionFor(id)
	if err != nil {
		return domain.Account{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	session, err := entry.provider.Login(ctx, creds)
	if err != nil {
		entry.session = nil
		return domain.Account{}, fmt.Errorf("sign in: %w", err)
	}

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return domain.Account{}, fmt.Errorf("get account by id: %w", err)
		}
		account = domain.Account{ID: id, Name: string(id)}
	}
	if name := strings.TrimSpace(cmd.Name); name != "" {
		account.Name = name
	}

	previousSecretRefs := uniqueSecretRefs(account.Metadata.SecretRef, account.Auth.SecretRef)

	secretRef := domain.CredentialsSecretRef(id)
	secretValue, err := encodeCredentials(creds)
	if err != nil {
		return domain.Account{}, err
	}
	if err := s.store.Put(ctx, secretRef, secretValue); err != nil {
		return domain.Account{}, fmt.Errorf("store credentials: %w", err)
	}

	account.Metadata.Provider = domain.ProviderWE
	account.Metadata.SecretRef = secretRef
	account.Metadata.SubscriberID = session.SubscriberID
	account.Auth = domain.Auth{Method: domain.AuthMethodPassword, SecretRef: secretRef}

	if err := s.repo.Save(ctx, account); err != nil {
		if rollbackErr := s.store.Delete(ctx, secretRef); rollbackErr != nil {
			return domain.Account{}, fmt.Errorf("save account and rollback stored credentials: %w", errors.Join(err, rollbackErr))
		}

		return domain.Account{}, fmt.Errorf("save account: %w", err)
	}

	for _, previousSecretRef := range previousSecretRefs {
		if previousSecretRef == secretRef {
			continue
		}
		if err := s.store.Delete(ctx, previousSecretRef); err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
			s.logger.Warn("delete previous credentials", "account", id, "secret_ref", previousSecretRef, "error", err)
		}
	}

	entry.session = &session
	s.logger.Info("signed in", "account", id)

	return account, nil
}

// SignOut forgets the session, deletes the stored credentials and removes the account entry.
func (s *Service) SignOut(ctx context.Context, id domain.AccountID) error {
	s.dropSession(id)

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}

	for _, secretRef := range uniqueSecretRefs(account.Metadata.SecretRef, account.Auth.SecretRef) {
		if err := s.store.Delete(ctx, secretRef); err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
			return fmt.Errorf("delete credentials: %w", err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	s.logger.Info("signed out", "account", id)
	return nil
}

// RefreshQuota logs in once per account and process, fetches the quota and
// persists the snapshot. A failed refresh leaves the stored snapshot untouched.
func (s *Service) RefreshQuota(ctx context.Context, id domain.AccountID) (Status, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Status{}, fmt.Errorf("get account by id: %w", err)
	}

	entry, err := s.sessionFor(id)
	if err != nil {
		return Status{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.session == nil {
		session, err := s.login(ctx, entry.provider, account)
		if err != nil {
			return statusFromAccount(account), err
		}
		entry.session = &session
	}

	snapshot, err := entry.provider.FetchQuota(ctx, *entry.session)
	if err != nil {
		if errors.Is(err, domain.ErrQuotaRejected) {
			entry.session = nil
		}
		return statusFromAccount(account), fmt.Errorf("fetch quota: %w", err)
	}
	snapshot.CapturedAt = s.clock.Now()

	account.Quota = &snapshot
	account.Metadata.SubscriberID = entry.session.SubscriberID

	if err := s.repo.Save(ctx, account); err != nil {
		return statusFromAccount(account), fmt.Errorf("save account quota: %w", err)
	}

	s.logger.Debug("quota refreshed", "account", id, "remain", snapshot.Remain, "total", snapshot.Total)

	return statusFromAccount(account), nil
}

// RefreshAll refreshes every account. Statuses are returned for all accounts,
// fresh or not, and the errors of the failed ones are joined.
func (s *Service) RefreshAll(ctx context.Context) ([]Status, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	statuses := make([]Status, 0, len(accounts))
	var errs []error
	for _, account := range accounts {
		status, err := s.RefreshQuota(ctx, account.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("account %s: %w", account.ID, err))
			status = statusFromAccount(account)
		}
		statuses = append(statuses, status)
	}

	return statuses, errors.Join(errs...)
}

func (s *Service) GetStatus(ctx context.Context, id domain.AccountID) (Status, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Status{}, fmt.Errorf("get account by id: %w", err)
	}

	return statusFromAccount(account), nil
}

func (s *Service) GetStatusAll(ctx context.Context) ([]Status, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	statuses := make([]Status, 0, len(accounts))
	for _, account := range accounts {
		statuses = append(statuses, statusFromAccount(account))
	}

	return statuses, nil
}

func (s *Service) login(ctx context.Context, provider ports.QuotaProvider, account domain.Account) (domain.Session, error) {
	secretRef := account.Auth.SecretRef
	if secretRef == "" {
		secretRef = account.Metadata.SecretRef
	}
	if secretRef == "" {
		return domain.Session{}, fmt.Errorf("account %s: %w", account.ID, domain.ErrNotSignedIn)
	}

	raw, err := s.store.Get(ctx, secretRef)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return domain.Session{}, fmt.Errorf("account %s: %w", account.ID, domain.ErrNotSignedIn)
		}
		return domain.Session{}, fmt.Errorf("load credentials: %w", err)
	}

	creds, err := decodeCredentials(raw)
	if err != nil {
		return domain.Session{}, err
	}

	session, err := provider.Login(ctx, creds)
	if err != nil {
		return domain.Session{}, fmt.Errorf("login: %w", err)
	}

	s.logger.Debug("logged in", "account", account.ID)
	return session, nil
}

func (s *Service) sessionFor(id domain.AccountID) (*accountSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.sessions[id]; ok {
		return entry, nil
	}

	if s.newProvider == nil {
		return nil, errors.New("quota provider is not configured")
	}
	provider, err := s.newProvider()
	if err != nil {
		return nil, fmt.Errorf("create quota provider: %w", err)
	}

	entry := &accountSession{provider: provider}
	s.sessions[id] = entry
	return entry, nil
}

func (s *Service) dropSession(id domain.AccountID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
}

func uniqueSecretRefs(secretRefs ...string) []string {
	result := make([]string, 0, len(secretRefs))
	seen := make(map[string]struct{}, len(secretRefs))

	for _, secretRef := range secretRefs {
		if secretRef == "" {
			continue
		}
		if _, ok := seen[secretRef]; ok {
			continue
		}

		seen[secretRef] = struct{}{}
		result = append(result, secretRef)
	}

	return result
}

func statusFromAccount(account domain.Account) Status {
	return Status{
		Account:  account,
		Quota:    account.Quota,
		SignedIn: account.Auth.SecretRef != "" || account.Metadata.SecretRef != "",
	}
}
