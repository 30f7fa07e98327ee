package exec

import "strings"

// Placeholder credentials used when the environment provides none. A
// credential equal to its placeholder counts as missing.
const (
	PlaceholderPrivateKey = "0x0000000000000000000000000000000000000000000000000000000000000000"
	PlaceholderAPIKey     = "dummy-key"
	PlaceholderAPISecret  = "dummy-secret"
	PlaceholderPassphrase = "dummy-passphrase"
)

// Credentials authenticate against the CLOB API. PrivateKey signs orders;
// the API key triple signs requests.
type Credentials struct {
	PrivateKey string
	APIKey     string
	APISecret  string
	Passphrase string
}

// WithPlaceholders fills every empty field with its placeholder
func (c Credentials) WithPlaceholders() Credentials {
	if c.PrivateKey == "" {
		c.PrivateKey = PlaceholderPrivateKey
	}
	if c.APIKey == "" {
		c.APIKey = PlaceholderAPIKey
	}
	if c.APISecret == "" {
		c.APISecret = PlaceholderAPISecret
	}
	if c.Passphrase == "" {
		c.Passphrase = PlaceholderPassphrase
	}
	return c
}

// Configured reports whether every field holds a real value
func (c Credentials) Configured() bool {
	return c.HasPrivateKey() &&
		isSet(c.APIKey, PlaceholderAPIKey) &&
		isSet(c.APISecret, PlaceholderAPISecret) &&
		isSet(c.Passphrase, PlaceholderPassphrase)
}

// HasPrivateKey reports whether the private key holds a real value
func (c Credentials) HasPrivateKey() bool {
	return isSet(normalizeKey(c.PrivateKey), strings.TrimPrefix(PlaceholderPrivateKey, "0x"))
}

func isSet(value, placeholder string) bool {
	value = strings.TrimSpace(value)
	return value != "" && value != placeholder
}

// normalizeKey strips the optional 0x prefix
func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if len(key) > 2 && (key[:2] == "0x" || key[:2] == "0X") {
		return key[2:]
	}
	return key
}
