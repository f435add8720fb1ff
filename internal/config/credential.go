package config

import (
	"errors"
	"fmt"

	"github.com/tonimelisma/odfetch/internal/graph"
)

// Credential selection errors.
var (
	ErrAmbiguousCredential = errors.New("both client_secret and username/password are set; choose one")
	ErrMissingCredential   = errors.New("no credential configured: set client_secret, or username and password")
)

// Credential builds the graph credential the account describes. A client
// secret selects the client-credentials grant; username and password select
// the password grant. Setting both is an error rather than a preference.
func (ra *ResolvedAccount) Credential() (graph.Credential, error) {
	hasSecret := ra.ClientSecret != ""
	hasPassword := ra.Username != "" || ra.Password != ""

	switch {
	case hasSecret && hasPassword:
		return nil, fmt.Errorf("account %q: %w", ra.Name, ErrAmbiguousCredential)
	case hasSecret:
		return graph.NewClientSecret(ra.Tenant, ra.AppID, ra.ClientSecret)
	case hasPassword:
		return graph.NewResourceOwnerPassword(ra.Tenant, ra.AppID, ra.Username, ra.Password)
	default:
		return nil, fmt.Errorf("account %q: %w", ra.Name, ErrMissingCredential)
	}
}
