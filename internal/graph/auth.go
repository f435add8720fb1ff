package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"
	"golang.org/x/sync/errgroup"
)

// DefaultAuthority is the Microsoft identity platform host for the public cloud.
const DefaultAuthority = "https://login.microsoftonline.com"

// DefaultAuthTimeout bounds a single token request when the caller sets none.
const DefaultAuthTimeout = 30 * time.Second

// graphDefaultScope requests every permission already granted to the app
// registration (application permissions for client credentials, consented
// delegated permissions for the password grant).
const graphDefaultScope = "https://graph.microsoft.com/.default"

// maxConcurrentAcquisitions caps AcquireEach fan-out.
const maxConcurrentAcquisitions = 4

// Sentinel error kinds for token acquisition failures.
// Use errors.Is(err, graph.ErrConsentRequired) to check.
var (
	ErrInvalidCredential = errors.New("graph: invalid credential")
	ErrConsentRequired   = errors.New("graph: consent required")
	ErrNetworkFailure    = errors.New("graph: network failure")
)

// ErrTokenExpired is returned by StaticTokenSource once the acquired token
// has expired. Tokens are never refreshed; the caller acquires a new one.
var ErrTokenExpired = errors.New("graph: access token expired")

// AADSTS error codes that mean the permission grant, not the secret, is the
// problem. The identity provider reports these under invalid_grant.
var consentErrorCodes = []string{
	"AADSTS65001", // user or administrator has not consented
	"AADSTS65004", // user declined consent
	"AADSTS90094", // admin consent required
	"AADSTS90099", // application not authorized in tenant
}

// AuthError describes a failed token request. Kind is one of
// ErrInvalidCredential, ErrConsentRequired, or ErrNetworkFailure.
type AuthError struct {
	Kind        error
	Grant       GrantType
	StatusCode  int    // token endpoint HTTP status; 0 for transport failures
	Code        string // OAuth error code, e.g. "invalid_client"
	Description string
	Err         error
}

func (e *AuthError) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("%s (%s grant): %s: %s", e.Kind, e.Grant, e.Code, firstLine(e.Description))
	case e.Err != nil:
		return fmt.Sprintf("%s (%s grant): %v", e.Kind, e.Grant, e.Err)
	default:
		return fmt.Sprintf("%s (%s grant)", e.Kind, e.Grant)
	}
}

func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// Token is an acquired bearer token. It is owned by the caller and never
// cached or refreshed by this package.
type Token struct {
	AccessToken string // NEVER log
	Expiry      time.Time
	Grant       GrantType
	Claims      TokenClaims // zero when the token is opaque (not a JWT)
}

// Valid reports whether the token is present and not yet expired.
func (t *Token) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	return t.Expiry.IsZero() || time.Now().Before(t.Expiry)
}

// LogValue implements slog.LogValuer without exposing the access token.
func (t *Token) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("grant", t.Grant.String()),
		slog.Time("expiry", t.Expiry),
		slog.Bool("app_only", t.Claims.AppOnly()),
	)
}

// Acquirer obtains tokens from the Microsoft identity platform. It holds no
// per-credential state, so one Acquirer may serve concurrent calls.
type Acquirer struct {
	authority  string
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
}

// NewAcquirer creates an Acquirer for the public cloud authority.
func NewAcquirer(httpClient *http.Client, logger *slog.Logger) *Acquirer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Acquirer{
		authority:  DefaultAuthority,
		httpClient: httpClient,
		logger:     logger,
		timeout:    DefaultAuthTimeout,
	}
}

// WithAuthority points the Acquirer at a different identity host (sovereign
// clouds, test servers). Trailing slashes are ignored.
func (a *Acquirer) WithAuthority(authority string) *Acquirer {
	if authority != "" {
		a.authority = strings.TrimRight(authority, "/")
	}

	return a
}

// WithTimeout sets the per-call timeout. Non-positive values keep the default.
func (a *Acquirer) WithTimeout(d time.Duration) *Acquirer {
	if d > 0 {
		a.timeout = d
	}

	return a
}

// endpoint returns the v2.0 token endpoint for the tenant.
func (a *Acquirer) endpoint(tenant string) oauth2.Endpoint {
	ep := microsoft.AzureADEndpoint(tenant)
	if a.authority != DefaultAuthority {
		ep.TokenURL = fmt.Sprintf("%s/%s/oauth2/v2.0/token", a.authority, tenant)
	}

	// Entra ID accepts credentials in the body for both grants; pinning the
	// style avoids oauth2's header-then-params probe sending a second request.
	ep.AuthStyle = oauth2.AuthStyleInParams

	return ep
}

// Acquire performs exactly one grant for cred: client credentials for a
// ClientSecret, resource owner password credentials for a
// ResourceOwnerPassword. Failures are returned as *AuthError and are never
// retried here; retry policy belongs to the caller.
func (a *Acquirer) Acquire(ctx context.Context, cred Credential) (*Token, error) {
	if cred == nil {
		return nil, &AuthError{Kind: ErrInvalidCredential, Err: errors.New("no credential supplied")}
	}

	a.logger.Info("acquiring token", slog.Any("credential", cred))

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	ep := a.endpoint(cred.Tenant())

	var (
		tok *oauth2.Token
		err error
	)

	switch c := cred.(type) {
	case ClientSecret:
		cfg := clientcredentials.Config{
			ClientID:     c.appID,
			ClientSecret: c.secret,
			TokenURL:     ep.TokenURL,
			Scopes:       []string{graphDefaultScope},
			AuthStyle:    ep.AuthStyle,
		}
		tok, err = cfg.Token(ctx)
	case ResourceOwnerPassword:
		cfg := oauth2.Config{
			ClientID: c.appID,
			Endpoint: ep,
			Scopes:   []string{graphDefaultScope},
		}
		tok, err = cfg.PasswordCredentialsToken(ctx, c.username, c.password)
	default:
		return nil, &AuthError{Kind: ErrInvalidCredential, Err: fmt.Errorf("unsupported credential type %T", cred)}
	}

	if err != nil {
		authErr := classifyAuthError(cred.Grant(), err)
		a.logger.Warn("token acquisition failed",
			slog.String("grant", cred.Grant().String()),
			slog.String("kind", authErr.Kind.Error()),
			slog.String("code", authErr.Code),
			slog.Int("status", authErr.StatusCode),
		)

		return nil, authErr
	}

	result := &Token{
		AccessToken: tok.AccessToken,
		Expiry:      tok.Expiry,
		Grant:       cred.Grant(),
	}

	claims, claimsErr := ParseClaims(tok.AccessToken)
	if claimsErr != nil {
		a.logger.Debug("access token is opaque, skipping claims", slog.String("error", claimsErr.Error()))
	} else {
		result.Claims = claims
	}

	a.logger.Info("token acquired", slog.Any("token", result))

	return result, nil
}

// AcquireResult pairs a credential with the outcome of its acquisition.
type AcquireResult struct {
	Credential Credential
	Token      *Token
	Err        error
}

// AcquireEach acquires tokens for independent credentials concurrently.
// Each call gets its own timeout; a failure for one credential never cancels
// the others. Results are returned in input order.
func (a *Acquirer) AcquireEach(ctx context.Context, creds []Credential) []AcquireResult {
	results := make([]AcquireResult, len(creds))

	var g errgroup.Group
	g.SetLimit(maxConcurrentAcquisitions)

	for i, cred := range creds {
		g.Go(func() error {
			tok, err := a.Acquire(ctx, cred)
			results[i] = AcquireResult{Credential: cred, Token: tok, Err: err}

			return nil
		})
	}

	_ = g.Wait() // per-credential errors live in results

	return results
}

// classifyAuthError maps an oauth2 failure onto the AuthError taxonomy.
func classifyAuthError(grant GrantType, err error) *AuthError {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		// Transport errors, timeouts, and cancellation.
		return &AuthError{Kind: ErrNetworkFailure, Grant: grant, Err: err}
	}

	ae := &AuthError{
		Grant:       grant,
		Code:        re.ErrorCode,
		Description: re.ErrorDescription,
		Err:         err,
	}

	if re.Response != nil {
		ae.StatusCode = re.Response.StatusCode
	}

	switch {
	case isConsentError(re.ErrorCode, re.ErrorDescription):
		ae.Kind = ErrConsentRequired
	case ae.StatusCode >= http.StatusInternalServerError:
		ae.Kind = ErrNetworkFailure
	default:
		ae.Kind = ErrInvalidCredential
	}

	return ae
}

func isConsentError(code, description string) bool {
	if code == "consent_required" || code == "interaction_required" {
		return true
	}

	for _, c := range consentErrorCodes {
		if strings.Contains(description, c) {
			return true
		}
	}

	return false
}

// firstLine trims Entra ID descriptions, which append trace and correlation
// IDs on following lines.
func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}

	return s
}

// tokenExpirySkew treats a token as expired slightly early so a request
// never leaves with a token that dies in flight.
const tokenExpirySkew = 30 * time.Second

// staticTokenSource adapts an acquired Token to TokenSource.
type staticTokenSource struct {
	tok *Token
	now func() time.Time
}

// StaticTokenSource returns a TokenSource serving tok until it expires,
// then ErrTokenExpired.
func StaticTokenSource(tok *Token) TokenSource {
	return &staticTokenSource{tok: tok, now: time.Now}
}

func (s *staticTokenSource) Token() (string, error) {
	if s.tok == nil || s.tok.AccessToken == "" {
		return "", ErrTokenExpired
	}

	if !s.tok.Expiry.IsZero() && s.now().Add(tokenExpirySkew).After(s.tok.Expiry) {
		return "", ErrTokenExpired
	}

	return s.tok.AccessToken, nil
}
