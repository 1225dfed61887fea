package we

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/we-quota-cli/internal/domain"
)

const (
	errorNoInvalidCredentials = "60301023110815001"
	errorNoRateLimited        = "60301023110815002"

	accountPrefix = "FBB"
	appLocale     = "en-US"
)

type loginRequest struct {
	AcctID         string `json:"acctId"`
	Password       string `json:"password"`
	AppLocale      string `json:"appLocale"`
	IsSelfcare     string `json:"isSelfcare"`
	IsMobile       string `json:"isMobile"`
	RecaptchaToken string `json:"recaptchaToken"`
}

type loginBody struct {
	UToken     flexString       `json:"utoken"`
	Token      flexString       `json:"token"`
	Subscriber *loginSubscriber `json:"subscriber"`
}

type loginSubscriber struct {
	SubscriberID flexString `json:"subscriberId"`
}

// Login authenticates the service number. It replaces any session cookies held by the client.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	number := domain.NormalizeServiceNumber(creds.Number)
	if number == "" {
		return domain.Session{}, errors.New("service number is required")
	}
	if creds.Password == "" {
		return domain.Session{}, errors.New("password is required")
	}

	if err := c.resetSession(); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}

	payload, err := c.post(ctx, loginPath, loginRequest{
		AcctID:         accountPrefix + number,
		Password:       creds.Password,
		AppLocale:      appLocale,
		IsSelfcare:     "Y",
		IsMobile:       "N",
		RecaptchaToken: "",
	}, nil)
	if err != nil {
		return domain.Session{}, fmt.Errorf("authenticate: %w", err)
	}

	if !payload.succeeded() {
		return domain.Session{}, authError(payload.errorNo())
	}

	session, err := decodeSession(payload.Body)
	if err != nil {
		return domain.Session{}, fmt.Errorf("decode login response: %w", err)
	}

	c.logger.Debug("authenticated", "subscriber_id", session.SubscriberID)
	return session, nil
}

func authError(errorNo string) *domain.AuthError {
	switch errorNo {
	case errorNoInvalidCredentials:
		return &domain.AuthError{Kind: domain.AuthInvalidCredentials, Code: errorNo}
	case errorNoRateLimited:
		return &domain.AuthError{Kind: domain.AuthRateLimited, Code: errorNo}
	default:
		return &domain.AuthError{Kind: domain.AuthUnknown, Code: errorNo}
	}
}

func decodeSession(raw json.RawMessage) (domain.Session, error) {
	if len(raw) == 0 {
		return domain.Session{}, schemaMismatch("body", errMissingField)
	}

	var body loginBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return domain.Session{}, schemaMismatchFromDecode("body", err)
	}

	switch {
	case strings.TrimSpace(string(body.UToken)) == "":
		return domain.Session{}, schemaMismatch("body.utoken", errMissingField)
	case strings.TrimSpace(string(body.Token)) == "":
		return domain.Session{}, schemaMismatch("body.token", errMissingField)
	case body.Subscriber == nil || strings.TrimSpace(string(body.Subscriber.SubscriberID)) == "":
		return domain.Session{}, schemaMismatch("body.subscriber.subscriberId", errMissingField)
	}

	return domain.Session{
		Token:        string(body.UToken),
		CSRFToken:    string(body.Token),
		SubscriberID: string(body.Subscriber.SubscriberID),
	}, nil
}
