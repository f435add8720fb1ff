package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrOpaqueToken is returned by ParseClaims for access tokens that are not
// JWTs (Microsoft personal-account tokens, for example).
var ErrOpaqueToken = errors.New("graph: access token is not a JWT")

// TokenClaims is the subset of Entra ID access token claims odfetch reports.
// The signature is NOT verified: the token was just received over TLS from
// the issuer, and the claims are informational only.
type TokenClaims struct {
	TenantID          string   `json:"tid"`
	AppID             string   `json:"appid"` // v1 tokens
	AuthorizedParty   string   `json:"azp"`   // v2 tokens
	AppDisplayName    string   `json:"app_displayname"`
	IDType            string   `json:"idtyp"` // "app" or "user" when the optional claim is issued
	ObjectID          string   `json:"oid"`
	UPN               string   `json:"upn"`
	PreferredUsername string   `json:"preferred_username"`
	UniqueName        string   `json:"unique_name"`
	Scope             string   `json:"scp"`
	Roles             []string `json:"roles"`

	jwt.RegisteredClaims
}

// ParseClaims decodes the claims of a JWT access token without verifying it.
func ParseClaims(accessToken string) (TokenClaims, error) {
	var claims TokenClaims

	if strings.Count(accessToken, ".") != 2 {
		return TokenClaims{}, ErrOpaqueToken
	}

	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return TokenClaims{}, fmt.Errorf("%w: %w", ErrOpaqueToken, err)
	}

	return claims, nil
}

// UserIdentity returns the signed-in user's name, or "" for app-only tokens.
func (c TokenClaims) UserIdentity() string {
	switch {
	case c.UPN != "":
		return c.UPN
	case c.PreferredUsername != "":
		return c.PreferredUsername
	default:
		return c.UniqueName
	}
}

// AppOnly reports whether the token carries no user identity: it was issued
// to the application itself and its permissions are the app's roles.
func (c TokenClaims) AppOnly() bool {
	if c.IDType != "" {
		return c.IDType == "app"
	}

	return c.UserIdentity() == "" && c.Scope == ""
}

// Application returns the client ID the token was issued to.
func (c TokenClaims) Application() string {
	if c.AppID != "" {
		return c.AppID
	}

	return c.AuthorizedParty
}

// Scopes returns the delegated permissions in the token.
func (c TokenClaims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// Permissions returns the effective permissions: roles for app-only tokens,
// delegated scopes otherwise.
func (c TokenClaims) Permissions() []string {
	if c.AppOnly() {
		return c.Roles
	}

	return c.Scopes()
}
