package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSecret     = errors.New("identity secret is not configured")
	ErrMissingEmail = errors.New("token has no email claim")
)

// Claims are the identity provider ID token claims we rely on
type Claims struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Viewer converts the claims into a session viewer
func (c Claims) Viewer() Viewer {
	v := Viewer{Email: c.Email}
	if c.Name != "" {
		name := c.Name
		v.DisplayName = &name
	}
	if c.Picture != "" {
		picture := c.Picture
		v.AvatarURL = &picture
	}
	return v
}

// Verifier validates HS256 ID tokens signed with a shared secret
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewVerifier(secret, issuer, audience string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Verifier{secret: []byte(secret), issuer: issuer, audience: audience}, nil
}

func (v *Verifier) Verify(tokenString string) (Viewer, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Viewer{}, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Email == "" {
		return Viewer{}, ErrMissingEmail
	}
	return claims.Viewer(), nil
}

// Issuer mints tokens with the same secret, for development setups where
// no external identity provider is running.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewIssuer(secret, issuer, audience string) (*Issuer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, audience: audience, now: time.Now}, nil
}

func (i *Issuer) Issue(viewer Viewer, ttl time.Duration) (string, error) {
	if viewer.Email == "" {
		return "", ErrMissingEmail
	}
	now := i.now()
	claims := Claims{
		Email: viewer.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   viewer.Email,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}
	if viewer.DisplayName != nil {
		claims.Name = *viewer.DisplayName
	}
	if viewer.AvatarURL != nil {
		claims.Picture = *viewer.AvatarURL
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
