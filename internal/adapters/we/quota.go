package we

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bnema/we-quota-cli/internal/domain"
)

var ErrMissingCSRFToken = errors.New("session has no csrf token")

// RawQuotaPayload is the undecoded queryFreeUnit response.
type RawQuotaPayload struct {
	RetCode string
	ErrorNo string
	Body    json.RawMessage
}

type quotaRequest struct {
	SubscriberID string `json:"subscriberId"`
}

// Fetch queries the free units of the session's subscriber.
func (c *Client) Fetch(ctx context.Context, session domain.Session) (RawQuotaPayload, error) {
	if session.CSRFToken == "" {
		return RawQuotaPayload{}, ErrMissingCSRFToken
	}
	if session.SubscriberID == "" {
		return RawQuotaPayload{}, errors.New("session has no subscriber id")
	}

	payload, err := c.post(ctx, quotaPath, quotaRequest{SubscriberID: session.SubscriberID}, map[string]string{
		csrfHeader: session.CSRFToken,
	})
	if err != nil {
		return RawQuotaPayload{}, fmt.Errorf("query free units: %w", err)
	}

	return RawQuotaPayload{
		RetCode: payload.retCode(),
		ErrorNo: payload.errorNo(),
		Body:    payload.Body,
	}, nil
}
