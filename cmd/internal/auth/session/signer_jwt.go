package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type jwtClaims struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
	jwt.RegisteredClaims
}

type jwtSigner struct {
	secret    []byte
	issuer    string
	clockSkew time.Duration
}

// NewJWTSigner builds an HS256 Signer. Only HS256 is accepted on verify, so
// "none" and asymmetric algorithms fail with ErrInvalidSignature.
func NewJWTSigner(secret, issuer string, clockSkew time.Duration) (Signer, error) {
	if len(secret) < MinJWTSecretBytes || issuer == "" {
		return nil, ErrConfig
	}
	return &jwtSigner{secret: []byte(secret), issuer: issuer, clockSkew: clockSkew}, nil
}

func (s *jwtSigner) Sign(c Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Username: c.Username,
		Email:    c.Email,
		FullName: c.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Subject,
			Issuer:    c.Issuer,
			ID:        c.ID,
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
	})
	return tok.SignedString(s.secret)
}

func (s *jwtSigner) Verify(token string, now time.Time) (Claims, error) {
	p := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	var jc jwtClaims
	_, err := p.ParseWithClaims(token, &jc, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, classifyJWTError(err)
	}

	return Claims{
		Subject:   jc.Subject,
		Username:  jc.Username,
		Email:     jc.Email,
		FullName:  jc.FullName,
		Issuer:    jc.Issuer,
		ID:        jc.ID,
		IssuedAt:  numericTime(jc.IssuedAt),
		ExpiresAt: numericTime(jc.ExpiresAt),
	}, nil
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrInvalidSignature
	default:
		return ErrMalformedToken
	}
}

func numericTime(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time.UTC()
}
