package domain

type AccountID string

const ProviderWE = "we"

type Account struct {
	ID       AccountID
	Name     string
	Metadata AccountMetadata
	Auth     Auth
	Quota    *QuotaSnapshot
}

type AccountMetadata struct {
	Provider     string
	SecretRef    string
	SubscriberID string
}
