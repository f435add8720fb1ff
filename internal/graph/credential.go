package graph

import (
	"errors"
	"fmt"
	"log/slog"
)

// GrantType names the OAuth grant a Credential selects.
type GrantType int

const (
	// GrantClientCredentials authenticates the application as itself.
	GrantClientCredentials GrantType = iota + 1
	// GrantPassword exchanges a service account's username and password.
	GrantPassword
)

func (g GrantType) String() string {
	switch g {
	case GrantClientCredentials:
		return "client_credentials"
	case GrantPassword:
		return "password"
	default:
		return "unknown"
	}
}

// ErrEmptyCredentialField is returned by the credential constructors when a
// required field is blank.
var ErrEmptyCredentialField = errors.New("graph: credential field must not be empty")

// Credential is one of ClientSecret or ResourceOwnerPassword. The interface is
// sealed: no other package can add a variant, so a value always selects
// exactly one grant.
type Credential interface {
	Tenant() string
	AppID() string
	Grant() GrantType
	slog.LogValuer
	fmt.Stringer

	sealed()
}

// ClientSecret is an application (service principal) identity.
// Fields are unexported so a constructed value is immutable.
type ClientSecret struct {
	tenant string
	appID  string
	secret string
}

// NewClientSecret builds a client-credentials identity. All fields are required.
func NewClientSecret(tenant, appID, secret string) (ClientSecret, error) {
	if err := requireFields(map[string]string{"tenant": tenant, "app_id": appID, "client_secret": secret}); err != nil {
		return ClientSecret{}, err
	}

	return ClientSecret{tenant: tenant, appID: appID, secret: secret}, nil
}

func (c ClientSecret) Tenant() string   { return c.tenant }
func (c ClientSecret) AppID() string    { return c.appID }
func (c ClientSecret) Grant() GrantType { return GrantClientCredentials }
func (ClientSecret) sealed()            {}

func (c ClientSecret) String() string {
	return fmt.Sprintf("client secret for app %s in tenant %s", c.appID, c.tenant)
}

// LogValue never includes the secret.
func (c ClientSecret) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("grant", c.Grant().String()),
		slog.String("tenant", c.tenant),
		slog.String("app_id", c.appID),
	)
}

// ResourceOwnerPassword is a delegated (service account) identity.
type ResourceOwnerPassword struct {
	tenant   string
	appID    string
	username string
	password string
}

// NewResourceOwnerPassword builds a password-grant identity. All fields are required.
func NewResourceOwnerPassword(tenant, appID, username, password string) (ResourceOwnerPassword, error) {
	err := requireFields(map[string]string{
		"tenant": tenant, "app_id": appID, "username": username, "password": password,
	})
	if err != nil {
		return ResourceOwnerPassword{}, err
	}

	return ResourceOwnerPassword{tenant: tenant, appID: appID, username: username, password: password}, nil
}

func (c ResourceOwnerPassword) Tenant() string   { return c.tenant }
func (c ResourceOwnerPassword) AppID() string    { return c.appID }
func (c ResourceOwnerPassword) Grant() GrantType { return GrantPassword }
func (c ResourceOwnerPassword) Username() string { return c.username }
func (ResourceOwnerPassword) sealed()            {}

func (c ResourceOwnerPassword) String() string {
	return fmt.Sprintf("password for %s via app %s in tenant %s", c.username, c.appID, c.tenant)
}

// LogValue never includes the password.
func (c ResourceOwnerPassword) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("grant", c.Grant().String()),
		slog.String("tenant", c.tenant),
		slog.String("app_id", c.appID),
		slog.String("username", c.username),
	)
}

// requireFields reports every blank field, in a stable order.
func requireFields(fields map[string]string) error {
	var errs []error

	for _, name := range []string{"tenant", "app_id", "client_secret", "username", "password"} {
		v, ok := fields[name]
		if ok && v == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrEmptyCredentialField, name))
		}
	}

	return errors.Join(errs...)
}
