package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	statusadapter "github.com/bnema/we-quota-cli/internal/adapters/render/status"
	tomlrepo "github.com/bnema/we-quota-cli/internal/adapters/repo/toml"
	chainstore "github.com/bnema/we-quota-cli/internal/adapters/secrets/chain"
	filestore "github.com/bnema/we-quota-cli/internal/adapters/secrets/file"
	passstore "github.com/bnema/we-quota-cli/internal/adapters/secrets/pass"
	"github.com/bnema/we-quota-cli/internal/adapters/we"
	"github.com/bnema/we-quota-cli/internal/application"
	"github.com/bnema/we-quota-cli/internal/ports"
	"github.com/spf13/viper"
)

const (
	configDirName  = ".we-quota"
	configFileName = "config"
	envPrefix      = "WQ"

	keyAPIBaseURL        = "api.base_url"
	keyAPIRequestTimeout = "api.request_timeout"
	keyRefreshInterval   = "refresh.interval"
	keyStaleAfter        = "status.stale_after"
	keySecretsDir        = "secrets.dir"
	keySecretsBackend    = "secrets.backend"
	keySecretsPassDir    = "secrets.pass_store_dir"
	keyLogLevel          = "log.level"
)

type app struct {
	service         *application.Service
	accountsPath    string
	statusRenderer  func([]application.Status, statusadapter.RenderOptions) (string, error)
	logger          *slog.Logger
	logLevel        *slog.LevelVar
	configLogLevel  string
	refreshInterval time.Duration
	staleAfter      time.Duration
	now             func() time.Time
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg, err := loadConfig(homeDir)
	if err != nil {
		return nil, err
	}

	logLevel := &slog.LevelVar{}
	logLevel.Set(slog.LevelWarn)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	repo, err := tomlrepo.NewRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire account repository: %w", err)
	}

	secretStore, err := newSecretStore(cfg.GetString(keySecretsBackend), cfg.GetString(keySecretsDir),
		cfg.GetString(keySecretsPassDir), logger.With("component", "secrets"))
	if err != nil {
		return nil, fmt.Errorf("wire secret store: %w", err)
	}

	clientConfig := we.Config{
		BaseURL:        cfg.GetString(keyAPIBaseURL),
		Retry:          we.DefaultRetryPolicy(),
		RequestTimeout: cfg.GetDuration(keyAPIRequestTimeout),
		Logger:         logger.With("component", "we"),
	}
	// Validate the base URL up front so a bad value fails every command, not only network ones.
	if _, err := we.NewClient(clientConfig); err != nil {
		return nil, fmt.Errorf("wire WE client: %w", err)
	}
	newProvider := func() (ports.QuotaProvider, error) {
		return we.NewClient(clientConfig)
	}

	service := application.NewService(repo, secretStore, ports.SystemClock{}, newProvider,
		application.WithLogger(logger.With("component", "service")))

	return &app{
		service:         service,
		accountsPath:    repo.Path(),
		statusRenderer:  statusadapter.Render,
		logger:          logger,
		logLevel:        logLevel,
		configLogLevel:  cfg.GetString(keyLogLevel),
		refreshInterval: cfg.GetDuration(keyRefreshInterval),
		staleAfter:      cfg.GetDuration(keyStaleAfter),
		now:             time.Now,
	}, nil
}

// loadConfig reads ~/.we-quota/config.toml when present. WQ_* environment
// variables override file values, e.g. WQ_API_BASE_URL for api.base_url.
func loadConfig(homeDir string) (*viper.Viper, error) {
	cfg := viper.New()
	configDir := filepath.Join(homeDir, configDirName)

	cfg.SetDefault(tomlrepo.AccountsPathKey, tomlrepo.DefaultAccountsPath(homeDir))
	cfg.SetDefault(keyAPIBaseURL, we.DefaultBaseURL)
	cfg.SetDefault(keyAPIRequestTimeout, 30*time.Second)
	cfg.SetDefault(keyRefreshInterval, application.DefaultRefreshInterval)
	cfg.SetDefault(keyStaleAfter, 30*time.Minute)
	cfg.SetDefault(keySecretsDir, filepath.Join(configDir, "secrets"))
	cfg.SetDefault(keySecretsBackend, "auto")
	cfg.SetDefault(keySecretsPassDir, "")
	cfg.SetDefault(keyLogLevel, "warn")

	cfg.SetConfigName(configFileName)
	cfg.SetConfigType("toml")
	cfg.AddConfigPath(configDir)

	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return cfg, nil
}

// newSecretStore selects the credentials backend: "auto" uses pass with a
// plaintext file fallback, "pass" and "file" use a single backend.
func newSecretStore(backend, fileRoot, passStoreDir string, logger *slog.Logger) (ports.SecretStore, error) {
	files := filestore.NewStore(fileRoot, filestore.WithLogger(logger))
	passwords := passstore.NewStore(passstore.WithStoreDir(passStoreDir))

	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "auto":
		if !passstore.Available() {
			logger.Debug("pass not found, using plaintext secret files", "dir", fileRoot)
			return files, nil
		}
		return chainstore.NewStoreChecked(passwords, files, chainstore.WithLogger(logger))
	case "pass":
		return passwords, nil
	case "file":
		return files, nil
	default:
		return nil, fmt.Errorf("unknown secrets backend %q (want auto, pass or file)", backend)
	}
}

func parseLogLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", raw, err)
	}
	return level, nil
}
