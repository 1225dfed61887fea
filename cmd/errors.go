package cmd

import (
	"errors"
	"fmt"

	"github.com/bnema/we-quota-cli/internal/domain"
)

// describeError appends the next step a user can take to errors they can act on.
func describeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotSignedIn):
		return fmt.Errorf("%w, please sign in with `wq login`", err)
	case errors.Is(err, domain.ErrAccountNotFound):
		return fmt.Errorf("%w, run `wq account list` to see the configured accounts", err)
	case errors.Is(err, domain.ErrQuotaRejected):
		return fmt.Errorf("%w, the portal session expired, run the command again or re-login with `wq login`", err)
	default:
		return err
	}
}
