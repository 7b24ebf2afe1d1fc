package portal

import "net/http"

// Authenticator applies authentication to portal requests.
type Authenticator interface {
	Apply(req *http.Request)
}

// NoAuth implements no authentication; the public portal endpoints work
// without a token.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request) {}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct {
	Token string
}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request) {
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}
}
