package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/bnema/we-quota-cli/internal/domain"
	"github.com/bnema/we-quota-cli/internal/ports"
)

var ErrUnavailable = errors.New("pass command unavailable")

// entryPrefix groups every entry under one folder of the password store.
const entryPrefix = "we-quota"

const notInStoreMarker = "is not in the password store"

type request struct {
	args  []string
	input string
	env   []string
}

type runFunc func(ctx context.Context, req request) (stdout string, stderr string, err error)

// Store keeps secrets in the pass password store, one entry per secret ref
// under "we-quota/we/<number>/credentials".
type Store struct {
	run      runFunc
	storeDir string
}

var _ ports.SecretStore = (*Store)(nil)

type Option func(*Store)

// WithStoreDir points pass at a password store other than ~/.password-store.
func WithStoreDir(dir string) Option {
	return func(s *Store) {
		s.storeDir = strings.TrimSpace(dir)
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{run: runPassCommand}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether the pass binary can be found on PATH.
func Available() bool {
	_, err := exec.LookPath("pass")
	return err == nil
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, stderr, err := s.run(ctx, s.request(value+"\n", "insert", "-m", "-f", s.entryName(key)))
	if err != nil {
		return formatError("put", key, err, stderr)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stdout, stderr, err := s.run(ctx, s.request("", "show", s.entryName(key)))
	if err != nil {
		if strings.Contains(stderr, notInStoreMarker) {
			return "", fmt.Errorf("pass get %q: %w", key, domain.ErrSecretNotFound)
		}
		return "", formatError("get", key, err, stderr)
	}

	stdout = strings.TrimSuffix(stdout, "\n")
	stdout = strings.TrimSuffix(stdout, "\r")

	return stdout, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, stderr, err := s.run(ctx, s.request("", "rm", "-f", s.entryName(key)))
	if err != nil {
		if strings.Contains(stderr, notInStoreMarker) {
			return fmt.Errorf("pass delete %q: %w", key, domain.ErrSecretNotFound)
		}
		return formatError("delete", key, err, stderr)
	}

	return nil
}

func (s *Store) entryName(key string) string {
	return entryPrefix + "/" + ports.SecretPath(key)
}

func (s *Store) request(input string, args ...string) request {
	req := request{args: args, input: input}
	if s.storeDir != "" {
		req.env = []string{"PASSWORD_STORE_DIR=" + s.storeDir}
	}
	return req
}

func runPassCommand(ctx context.Context, req request) (string, string, error) {
	path, err := exec.LookPath("pass")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", "", ErrUnavailable
		}
		return "", "", fmt.Errorf("locate pass command: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, req.args...)
	if req.input != "" {
		cmd.Stdin = strings.NewReader(req.input)
	}
	if len(req.env) > 0 {
		cmd.Env = append(os.Environ(), req.env...)
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}

func formatError(op string, key string, err error, stderr string) error {
	if stderr == "" {
		return fmt.Errorf("pass %s %q: %w", op, key, err)
	}

	return fmt.Errorf("pass %s %q: %w: %s", op, key, err, stderr)
}
