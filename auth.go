package oasbind

import (
	"net/http"
	"os"
	"strings"
)

// AuthContext is the metadata an authenticator attaches to a request. It is
// handed to handlers under the input's "auth" key.
type AuthContext map[string]any

// Authenticator gates every operation in a table. Authenticate returns the
// context for a valid credential or a KindUnauthorized error; it runs before
// binding, so a failed check never reaches the handler.
type Authenticator interface {
	Authenticate(r *http.Request) (AuthContext, error)
}

// Credentials maps each valid shared secret to arbitrary metadata. The
// metadata becomes part of the auth context.
type Credentials map[string]any

// SingleCredential builds Credentials from one shared secret.
func SingleCredential(secret string) Credentials {
	return Credentials{secret: map[string]any{"source": "direct"}}
}

// CredentialList builds Credentials from a list of valid secrets.
func CredentialList(secrets ...string) Credentials {
	creds := make(Credentials, len(secrets))
	for _, s := range secrets {
		creds[s] = map[string]any{"source": "list"}
	}
	return creds
}

// CredentialsFromEnv builds Credentials from a single environment variable.
// Returns an empty set when the variable is unset, which rejects everything.
func CredentialsFromEnv(envVar string) Credentials {
	if v := os.Getenv(envVar); v != "" {
		return Credentials{v: map[string]any{"source": "environment"}}
	}
	return Credentials{}
}

// defaultAPIKeyHeader is the header APIKeyAuth reads when none is configured.
const defaultAPIKeyHeader = "X-API-Key"

// APIKeyConfig configures APIKeyAuth.
type APIKeyConfig struct {
	Header string // default: "X-API-Key"
}

// APIKeyAuth authenticates requests by exact match on a named header value.
type APIKeyAuth struct {
	header string
	creds  Credentials
}

// NewAPIKeyAuth creates an API-key authenticator over the given credentials.
func NewAPIKeyAuth(creds Credentials, cfg ...APIKeyConfig) *APIKeyAuth {
	header := defaultAPIKeyHeader
	if len(cfg) > 0 && cfg[0].Header != "" {
		header = cfg[0].Header
	}
	return &APIKeyAuth{header: header, creds: creds}
}

// Authenticate validates the API key header. The 401 detail distinguishes an
// absent key ("required") from an unrecognized one ("invalid").
func (a *APIKeyAuth) Authenticate(r *http.Request) (AuthContext, error) {
	key := r.Header.Get(a.header)
	if key == "" {
		return nil, Unauthorized("API key required")
	}
	meta, ok := a.creds[key]
	if !ok {
		return nil, Unauthorized("Invalid API key")
	}
	return AuthContext{"api_key": key, "metadata": meta}, nil
}

// BearerAuth authenticates requests by a Bearer token in the Authorization
// header. The "Bearer " prefix is case-sensitive; a malformed header is
// treated as missing credentials, not as a different error.
type BearerAuth struct {
	creds Credentials
}

// NewBearerAuth creates a bearer-token authenticator over the given
// credentials.
func NewBearerAuth(creds Credentials) *BearerAuth {
	return &BearerAuth{creds: creds}
}

// Authenticate validates the bearer token. The 401 detail distinguishes an
// absent token ("required") from an unrecognized one ("invalid").
func (a *BearerAuth) Authenticate(r *http.Request) (AuthContext, error) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return nil, Unauthorized("Bearer token required")
	}
	meta, found := a.creds[token]
	if !found {
		return nil, Unauthorized("Invalid bearer token")
	}
	return AuthContext{"token": token, "metadata": meta}, nil
}
