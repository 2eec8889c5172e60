package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"gryork/pkg/types"

	"github.com/gorilla/securecookie"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// KeySource yields the verification keys published at a JWKS url. *jwk.Cache
// satisfies it.
type KeySource interface {
	Lookup(ctx context.Context, url string) (jwk.Set, error)
}

// JWTAuthenticator verifies access tokens issued to portal users. API clients
// send a bearer token; browser portals carry the same token in an encrypted
// cookie.
type JWTAuthenticator struct {
	keys       KeySource
	jwksURL    string
	issuer     string
	cookieName string
	cookie     *securecookie.SecureCookie
}

func NewJWTAuthenticator(config *types.Config, keys KeySource) (*JWTAuthenticator, error) {
	a := &JWTAuthenticator{
		keys:       keys,
		jwksURL:    config.JWKSURL(),
		issuer:     config.AuthIssuerURL,
		cookieName: config.CookieName,
	}

	if config.CookieHashKey != "" {
		hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
		if err != nil {
			return nil, fmt.Errorf("decode cookie hash key: %w", err)
		}
		blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
		if err != nil {
			return nil, fmt.Errorf("decode cookie block key: %w", err)
		}
		a.cookie = securecookie.New(hashKey, blockKey)
	}

	return a, nil
}

func (a *JWTAuthenticator) Authenticate(r *http.Request) (types.Actor, error) {
	raw, err := a.accessToken(r)
	if err != nil {
		return types.Actor{}, err
	}

	set, err := a.keys.Lookup(r.Context(), a.jwksURL)
	if err != nil {
		return types.Actor{}, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	options := []jwt.ParseOption{jwt.WithKeySet(set), jwt.WithValidate(true)}
	if a.issuer != "" {
		options = append(options, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.Parse([]byte(raw), options...)
	if err != nil {
		return types.Actor{}, fmt.Errorf("%w: %v", types.ErrUnauthenticated, err)
	}

	return actorFromToken(token)
}

// EncodeCookie produces the cookie value a portal stores for accessToken.
func (a *JWTAuthenticator) EncodeCookie(accessToken string) (string, error) {
	if a.cookie == nil {
		return "", fmt.Errorf("cookie keys are not configured")
	}
	return a.cookie.Encode(a.cookieName, accessToken)
}

func (a *JWTAuthenticator) accessToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", types.ErrUnauthenticated
		}
		return strings.TrimSpace(token), nil
	}

	if a.cookie == nil {
		return "", types.ErrUnauthenticated
	}

	cookie, err := r.Cookie(a.cookieName)
	if err != nil {
		return "", types.ErrUnauthenticated
	}

	var accessToken string
	if err := a.cookie.Decode(a.cookieName, cookie.Value, &accessToken); err != nil {
		return "", fmt.Errorf("%w: undecodable access token cookie", types.ErrUnauthenticated)
	}

	return accessToken, nil
}

func actorFromToken(token jwt.Token) (types.Actor, error) {
	userID, ok := token.Subject()
	if !ok || userID == "" {
		return types.Actor{}, fmt.Errorf("%w: no subject claim", types.ErrUnauthenticated)
	}

	var role string
	if err := token.Get("role", &role); err != nil || role == "" {
		return types.Actor{}, fmt.Errorf("%w: no role claim", types.ErrUnauthenticated)
	}

	actor := types.Actor{ID: userID, Role: types.Role(role)}

	// name and org_id are optional
	_ = token.Get("name", &actor.Name)
	_ = token.Get("org_id", &actor.OrgID)

	if actor.Role == types.RoleNBFC && actor.OrgID == "" {
		return types.Actor{}, fmt.Errorf("%w: nbfc user without org_id", types.ErrUnauthenticated)
	}

	return actor, nil
}
