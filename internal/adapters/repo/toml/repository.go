package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/we-quota-cli/internal/domain"
	"github.com/bnema/we-quota-cli/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	AccountsPathKey = "accounts.path"

	accountsFileMode   = 0o600
	accountsDirMode    = 0o700
	accountsConfigDir  = ".we-quota"
	accountsConfigFile = "accounts.toml"
	tempFilePattern    = ".accounts-*.toml.tmp"
)

type Repository struct {
	accountsPath string
	mu           *sync.RWMutex
}

var pathLocks sync.Map

var _ ports.AccountRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg.SetDefault(AccountsPathKey, DefaultAccountsPath(homeDir))

	accountsPath := cfg.GetString(AccountsPathKey)
	if accountsPath == "" {
		return nil, errors.New("accounts path is empty")
	}
	accountsPath, err = normalizeAccountsPath(accountsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{accountsPath: accountsPath, mu: lockForPath(accountsPath)}, nil
}

func DefaultAccountsPath(homeDir string) string {
	return filepath.Join(homeDir, accountsConfigDir, accountsConfigFile)
}

// Path is the accounts file backing the repository.
func (r *Repository) Path() string {
	return r.accountsPath
}

// Save inserts the account or replaces the entry with the same ID.
func (r *Repository) Save(ctx context.Context, account domain.Account) error {
	encoded := newAccountSchema(account)

	return r.update(ctx, func(file *fileSchema) bool {
		for i := range file.Accounts {
			if file.Accounts[i].ID == encoded.ID {
				file.Accounts[i] = encoded
				return true
			}
		}

		file.Accounts = append(file.Accounts, encoded)
		return true
	})
}

// Delete removes the account entry. Deleting an unknown account is not an error.
func (r *Repository) Delete(ctx context.Context, id domain.AccountID) error {
	return r.update(ctx, func(file *fileSchema) bool {
		for i := range file.Accounts {
			if file.Accounts[i].ID == string(id) {
				file.Accounts = append(file.Accounts[:i], file.Accounts[i+1:]...)
				return true
			}
		}
		return false
	})
}

func (r *Repository) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	file, err := r.read(ctx)
	if err != nil {
		return domain.Account{}, err
	}

	for _, entry := range file.Accounts {
		if entry.ID == string(id) {
			return entry.account(), nil
		}
	}

	return domain.Account{}, domain.ErrAccountNotFound
}

// List returns the accounts in file order, which is sign-in order.
func (r *Repository) List(ctx context.Context) ([]domain.Account, error) {
	file, err := r.read(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(file.Accounts))
	for _, entry := range file.Accounts {
		accounts = append(accounts, entry.account())
	}

	return accounts, nil
}

func (r *Repository) read(ctx context.Context) (fileSchema, error) {
	if err := ctx.Err(); err != nil {
		return fileSchema{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.load()
}

// update runs mutate under the write lock and persists the file when mutate reports a change.
func (r *Repository) update(ctx context.Context, mutate func(*fileSchema) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.load()
	if err != nil {
		return err
	}
	if !mutate(&file) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.persist(file)
}

func (r *Repository) load() (fileSchema, error) {
	data, err := os.ReadFile(r.accountsPath)
	if errors.Is(err, os.ErrNotExist) {
		file := fileSchema{}
		file.applyDefaults()
		return file, nil
	}
	if err != nil {
		return fileSchema{}, fmt.Errorf("read accounts file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode accounts file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

// persist replaces the accounts file through a synced temp file and a rename,
// so readers and the fsnotify watcher never observe a partial write.
func (r *Repository) persist(file fileSchema) error {
	file.applyDefaults()

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode accounts file: %w", err)
	}

	dir := filepath.Dir(r.accountsPath)
	if err := os.MkdirAll(dir, accountsDirMode); err != nil {
		return fmt.Errorf("create accounts directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp accounts file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	writeErr := tmp.Chmod(accountsFileMode)
	if writeErr == nil {
		_, writeErr = tmp.Write(data)
	}
	if writeErr == nil {
		writeErr = tmp.Sync()
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return fmt.Errorf("write temp accounts file: %w", writeErr)
	}

	if err := os.Rename(tmpPath, r.accountsPath); err != nil {
		return fmt.Errorf("replace accounts file: %w", err)
	}
	committed = true

	return nil
}

func normalizeAccountsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve accounts path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

// lockForPath shares one lock between repositories opened on the same file.
func lockForPath(path string) *sync.RWMutex {
	mu, _ := pathLocks.LoadOrStore(path, &sync.RWMutex{})
	return mu.(*sync.RWMutex)
}
