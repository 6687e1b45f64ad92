package entity

type Store struct {
	ID        string
	Name      string
	URL       string
	SecureURL string

	// DefaultLanguage is a locale tag like "en-US"; the checkout form only
	// sends the first two letters.
	DefaultLanguage string
}
