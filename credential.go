package wallpapergen

import (
	"log/slog"
	"strings"
)

// Credential is the API key for the remote generation service.
//
// Its String, GoString and LogValue methods return a masked form, so a
// Credential passed to fmt or slog never prints the secret. Use Reveal
// at the network boundary.
type Credential string

// Reveal returns the plaintext secret.
func (c Credential) Reveal() string {
	return string(c)
}

// IsZero reports whether the credential is absent (empty after trimming).
func (c Credential) IsZero() bool {
	return strings.TrimSpace(string(c)) == ""
}

func (c Credential) String() string {
	return MaskCredential(string(c))
}

func (c Credential) GoString() string {
	return `Credential("` + c.String() + `")`
}

func (c Credential) LogValue() slog.Value {
	return slog.StringValue(c.String())
}

// MaskCredential returns a masked version of the key for display.
func MaskCredential(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
