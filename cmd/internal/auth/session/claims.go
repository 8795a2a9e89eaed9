package session

import "time"

// Kind distinguishes the two token families. Each kind has its own secret.
type Kind int

const (
	KindAccess Kind = iota + 1
	KindRenewal
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRenewal:
		return "renewal"
	default:
		return "unknown"
	}
}

// AccessClaims is the identity envelope embedded in access tokens.
type AccessClaims struct {
	AccountID string
	Username  string
	Email     string
	FullName  string
}

// Claims is the decoded content of a verified token. Renewal tokens carry only
// Subject and the registered claims.
type Claims struct {
	Subject   string
	Username  string
	Email     string
	FullName  string
	Issuer    string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Signer encodes and verifies one token kind with one secret.
type Signer interface {
	// Sign encodes c. Issuer, ID, IssuedAt and ExpiresAt must be set.
	Sign(c Claims) (string, error)

	// Verify decodes token and checks signature, issuer and expiry against now.
	// Errors are ErrMalformedToken, ErrInvalidSignature or ErrTokenExpired.
	Verify(token string, now time.Time) (Claims, error)
}

func expired(exp, now time.Time, skew time.Duration) bool {
	return !now.Before(exp.Add(skew))
}
