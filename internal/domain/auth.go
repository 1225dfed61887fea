package domain

import "strings"

type AuthMethod string

const AuthMethodPassword AuthMethod = "password"

type Auth struct {
	Method AuthMethod
	// SecretRef points to a secret-store entry, typically in "we://<number>/credentials" form.
	SecretRef string
}

// Credentials identify a subscriber on the self-service portal.
type Credentials struct {
	Number   string
	Password string
}

func NewCredentials(number, password string) Credentials {
	return Credentials{Number: NormalizeServiceNumber(number), Password: password}
}

// NormalizeServiceNumber drops whitespace and the leading zeros of a local number.
func NormalizeServiceNumber(number string) string {
	return strings.TrimLeft(strings.TrimSpace(number), "0")
}

func (c Credentials) AccountID() AccountID {
	return AccountID(c.Number)
}

func CredentialsSecretRef(id AccountID) string {
	return "we://" + string(id) + "/credentials"
}

// Session is the state returned by a successful login. It lives until sign out.
type Session struct {
	Token        string
	CSRFToken    string
	SubscriberID string
}
