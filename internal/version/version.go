package version

// Version is overridden at build time with -ldflags "-X github.com/bnema/we-quota-cli/internal/version.Version=...".
var Version = "dev"
