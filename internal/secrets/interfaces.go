package secrets

import (
	"context"
	"time"
)

// TokenInfo is the subset of a lookup-self response used by the token handler.
type TokenInfo struct {
	DisplayName string
	Path        string
	EntityID    string
	Policies    []string
	Renewable   bool
	TTL         time.Duration
}

// LoginResult is the auth block returned by a successful AppRole login.
type LoginResult struct {
	ClientToken   string
	Accessor      string
	Policies      []string
	Renewable     bool
	LeaseDuration time.Duration
}

// ReadResponse is one logical read. Data and LeaseDuration are only populated for
// a 200 response. Body always holds the raw payload.
type ReadResponse struct {
	Status        int
	ContentType   string
	Body          []byte
	Data          map[string]string
	LeaseDuration time.Duration
}

// Client defines the secret-store operations the provider depends on.
// Implementations must be safe for concurrent use.
type Client interface {
	// LookupSelf describes the token the client is currently using.
	LookupSelf(ctx context.Context) (*TokenInfo, error)

	// LoginByRoleAndSecret exchanges an AppRole role_id/secret_id pair for a token.
	LoginByRoleAndSecret(ctx context.Context, roleID, secretID string) (*LoginResult, error)

	// Read fetches the secret stored at path. A non-200 status is not an error;
	// callers inspect ReadResponse.Status. Errors are reserved for call-level failures.
	Read(ctx context.Context, path string) (*ReadResponse, error)
}

// ClientFactory binds a Client to a connection.
type ClientFactory func(conn Connection) (Client, error)
