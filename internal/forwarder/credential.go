package forwarder

import "strings"

const DefaultScheme = "Token"

// Credential is the static API credential. The Authorization header value
// is built once, when the credential is created.
type Credential struct {
	header string
}

// NewCredential builds a credential for the given scheme ("Token",
// "Bearer", ...). An empty scheme selects DefaultScheme.
func NewCredential(scheme, token string) Credential {
	scheme = strings.TrimSpace(scheme)
	if scheme == "" {
		scheme = DefaultScheme
	}
	return Credential{header: scheme + " " + strings.TrimSpace(token)}
}

// Header returns the Authorization header value.
func (c Credential) Header() string {
	return c.header
}

// Redacted returns the header value with the secret removed, for logs.
func (c Credential) Redacted() string {
	scheme, _, _ := strings.Cut(c.header, " ")
	return scheme + " [redacted]"
}
