package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/golang/glog"

	"launchpad/internal/store"
)

var (
	// ErrUnauthorized means the bearer token is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the token is fine but the caller may not reach
	// this app.
	ErrForbidden = errors.New("forbidden")
)

// Identity is the validated caller, forwarded upstream as auth headers.
type Identity struct {
	Email    string
	Username string
	Groups   []string
}

// AppLookup resolves the serving host to an installed app record.
type AppLookup interface {
	SelectAppByHost(ctx context.Context, url string) (*store.InstalledApp, error)
}

// Gatekeeper decides whether a request forwarded by the ingress proxy may
// reach the app behind a host.
type Gatekeeper struct {
	apps   AppLookup
	keys   *jwksFetcher
	issuer string
}

func NewGatekeeper(apps AppLookup, issuer, certsURL string, cache KeyCache) *Gatekeeper {
	return &Gatekeeper{
		apps:   apps,
		keys:   newJWKSFetcher(certsURL, cache),
		issuer: issuer,
	}
}

// Authorize checks one forwarded request. host is the X-Forwarded-Host
// value, bearer the raw token from the Authorization header (without the
// "Bearer " prefix).
func (g *Gatekeeper) Authorize(ctx context.Context, host, bearer string) (*Identity, error) {
	if host == "" {
		return nil, fmt.Errorf("%w: missing forwarded host", ErrForbidden)
	}

	app, err := g.apps.SelectAppByHost(ctx, "https://"+host)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: no app serves host %s", ErrForbidden, host)
		}
		return nil, err
	}
	if app.IsInternal {
		return nil, fmt.Errorf("%w: app %s is internal", ErrForbidden, app.AppName)
	}

	if bearer == "" {
		return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}

	identity, err := g.validate(ctx, bearer)
	if err != nil {
		return nil, err
	}

	if !app.IsShared {
		if app.UserID == nil || !strings.EqualFold(*app.UserID, identity.Email) {
			glog.V(2).Infof("user %s denied on private app %s", identity.Email, app.AppName)
			return nil, fmt.Errorf("%w: app %s is not shared with this user", ErrForbidden, app.AppName)
		}
	}

	return identity, nil
}

func (g *Gatekeeper) validate(ctx context.Context, bearer string) (*Identity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(bearer, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return g.keys.signingKey(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}

	if !claims.VerifyIssuer(g.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrUnauthorized)
	}
	if !claims.VerifyAudience("account", true) {
		return nil, fmt.Errorf("%w: unexpected audience", ErrUnauthorized)
	}

	identity := &Identity{
		Email:    stringClaim(claims, "email"),
		Username: stringClaim(claims, "preferred_username"),
		Groups:   groupsClaim(claims),
	}
	if identity.Email == "" {
		return nil, fmt.Errorf("%w: token carries no email", ErrUnauthorized)
	}
	return identity, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// groupsClaim prefers an explicit groups claim and falls back to the
// keycloak realm roles.
func groupsClaim(claims jwt.MapClaims) []string {
	if raw, ok := claims["groups"].([]interface{}); ok {
		return toStrings(raw)
	}
	if realm, ok := claims["realm_access"].(map[string]interface{}); ok {
		if raw, ok := realm["roles"].([]interface{}); ok {
			return toStrings(raw)
		}
	}
	return nil
}

func toStrings(raw []interface{}) []string {
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
