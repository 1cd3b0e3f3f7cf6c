package utils // package utils provides helpers for ids, slugs, passwords and signed tokens

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/shop-management/internal/apperr"
)

var (
	// ErrEmptyClaims is returned by IssueToken when the payload encodes to
	// an empty object.
	ErrEmptyClaims = errors.New("token claims are empty")
	// ErrEmptySecret is returned when no signing secret is configured.
	ErrEmptySecret = errors.New("token secret is empty")
)

// SignedToken is a serialized HS256 JWT with its expiry.
type SignedToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // UTC expiration time
}

// reserved claims are added by IssueToken and stripped again by VerifyToken.
var reservedClaims = []string{"exp", "iat", "nbf"}

// IssueToken signs payload as an HS256 JWT that expires after ttl.  The
// payload is encoded as JSON and must produce a non-empty object; a
// struct with json tags or a map both work.
func IssueToken(payload any, secret string, ttl time.Duration) (SignedToken, error) {
	if secret == "" {
		return SignedToken{}, ErrEmptySecret
	}
	claims, err := toMapClaims(payload)
	if err != nil {
		return SignedToken{}, err
	}
	if len(claims) == 0 {
		return SignedToken{}, ErrEmptyClaims
	}

	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims["exp"] = exp.Unix()
	claims["iat"] = now.Unix()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// VerifyToken checks the signature and expiry of token and decodes its
// payload into `into`.  Failures are apperr Unauthorized errors carrying
// ReasonTokenExpired or ReasonTokenInvalid.
func VerifyToken(token, secret string, into any) error {
	if secret == "" {
		return apperr.TokenError(apperr.ReasonTokenInvalid, "Invalid token", ErrEmptySecret)
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return apperr.TokenError(apperr.ReasonTokenExpired, "Token expired. Please login again", err)
		}
		return apperr.TokenError(apperr.ReasonTokenInvalid, "Invalid token", err)
	}

	for _, k := range reservedClaims {
		delete(claims, k)
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return apperr.TokenError(apperr.ReasonTokenInvalid, "Invalid token", err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return apperr.TokenError(apperr.ReasonTokenInvalid, "Invalid token", err)
	}
	return nil
}

func toMapClaims(payload any) (jwt.MapClaims, error) {
	if payload == nil {
		return nil, ErrEmptyClaims
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(raw, &claims); err != nil {
		// payload was not an object
		return nil, ErrEmptyClaims
	}
	return claims, nil
}
