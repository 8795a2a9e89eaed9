package session

import (
	"strings"
	"time"

	"vidtube/cmd/identity/ids"
)

// maxTokenLen bounds the input accepted by Verify.
const maxTokenLen = 8192

// Issuer mints and verifies access and renewal tokens. It is pure: it never
// touches the credential store.
type Issuer struct {
	issuer     string
	accessTTL  time.Duration
	renewalTTL time.Duration

	access  Signer
	renewal Signer
}

// NewIssuer wires two signers into an Issuer. The signers must hold different secrets.
func NewIssuer(cfg Config, access, renewal Signer) (*Issuer, error) {
	if access == nil || renewal == nil {
		return nil, ErrConfig
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RenewalTokenTTL <= 0 || cfg.Issuer == "" {
		return nil, ErrConfig
	}
	return &Issuer{
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTokenTTL,
		renewalTTL: cfg.RenewalTokenTTL,
		access:     access,
		renewal:    renewal,
	}, nil
}

// NewIssuerFromConfig validates cfg and builds both signers for cfg.Format.
func NewIssuerFromConfig(cfg Config) (*Issuer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var newSigner func(secret, issuer string, skew time.Duration) (Signer, error)
	switch cfg.Format {
	case FormatJWT:
		newSigner = NewJWTSigner
	case FormatPaseto:
		newSigner = NewPasetoSigner
	default:
		return nil, ErrConfig
	}

	access, err := newSigner(cfg.AccessSecret, cfg.Issuer, cfg.ClockSkew)
	if err != nil {
		return nil, err
	}
	renewal, err := newSigner(cfg.RenewalSecret, cfg.Issuer, cfg.ClockSkew)
	if err != nil {
		return nil, err
	}
	return NewIssuer(cfg, access, renewal)
}

// IssueAccess signs a short-lived access token for c.
func (i *Issuer) IssueAccess(c AccessClaims, now time.Time) (string, time.Time, error) {
	if strings.TrimSpace(c.AccountID) == "" {
		return "", time.Time{}, ErrMalformedToken
	}
	return i.issue(i.access, Claims{
		Subject:  c.AccountID,
		Username: c.Username,
		Email:    c.Email,
		FullName: c.FullName,
	}, now, i.accessTTL)
}

// IssueRenewal signs a long-lived renewal token carrying only the account id.
func (i *Issuer) IssueRenewal(accountID string, now time.Time) (string, time.Time, error) {
	if strings.TrimSpace(accountID) == "" {
		return "", time.Time{}, ErrMalformedToken
	}
	return i.issue(i.renewal, Claims{Subject: accountID}, now, i.renewalTTL)
}

func (i *Issuer) issue(s Signer, c Claims, now time.Time, ttl time.Duration) (string, time.Time, error) {
	now = now.UTC().Truncate(time.Second)

	// A random jti makes two tokens minted within the same second differ.
	jti, err := ids.NewULID(now)
	if err != nil {
		return "", time.Time{}, err
	}

	c.Issuer = i.issuer
	c.ID = jti
	c.IssuedAt = now
	c.ExpiresAt = now.Add(ttl)

	tok, err := s.Sign(c)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, c.ExpiresAt, nil
}

// Verify checks token as a token of the given kind.
func (i *Issuer) Verify(token string, kind Kind, now time.Time) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" || len(token) > maxTokenLen {
		return Claims{}, ErrMalformedToken
	}

	var s Signer
	switch kind {
	case KindAccess:
		s = i.access
	case KindRenewal:
		s = i.renewal
	default:
		return Claims{}, ErrMalformedToken
	}

	c, err := s.Verify(token, now)
	if err != nil {
		return Claims{}, err
	}
	if c.Subject == "" {
		return Claims{}, ErrMalformedToken
	}
	return c, nil
}
