package ports

import (
	"context"

	"github.com/bnema/we-quota-cli/internal/domain"
)

// QuotaProvider is the self-service API as seen by the application layer.
type QuotaProvider interface {
	Login(ctx context.Context, creds domain.Credentials) (domain.Session, error)
	FetchQuota(ctx context.Context, session domain.Session) (domain.QuotaSnapshot, error)
}
