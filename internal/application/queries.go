package application

import (
	"time"

	"github.com/bnema/we-quota-cli/internal/domain"
)

type Status struct {
	Account  domain.Account
	Quota    *domain.QuotaSnapshot
	SignedIn bool
}

func (s Status) CapturedAt() time.Time {
	if s.Quota == nil {
		return time.Time{}
	}
	return s.Quota.CapturedAt
}

// Stale reports whether the status has no snapshot or one older than maxAge.
func (s Status) Stale(now time.Time, maxAge time.Duration) bool {
	if s.Quota == nil {
		return true
	}
	return s.Quota.IsStale(now, maxAge)
}
