package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/glansab/backoffice/internal/model"
)

// Issuer is the iss claim on session tokens minted by this service.
const Issuer = "backoffice"

// Token errors.
var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingOrg   = errors.New("token has no organisation")
)

// Claims is the session token payload.
type Claims struct {
	OrganisationID string `json:"organisation_id"`
	Email          string `json:"email,omitempty"`
	Role           string `json:"app_role,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens creates a token signer/verifier for the shared secret.
func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// Sign mints a token for the session valid for ttl.
func (t *Tokens) Sign(s *model.Session, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		OrganisationID: s.OrganisationID,
		Email:          s.Email,
		Role:           string(s.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the session it carries. The role is
// whatever the token claims; callers that need the stored role must look
// it up.
func (t *Tokens) Parse(tokenStr string) (*model.Session, error) {
	if tokenStr == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.OrganisationID == "" {
		return nil, ErrMissingOrg
	}

	return &model.Session{
		UserID:         claims.Subject,
		OrganisationID: claims.OrganisationID,
		Email:          claims.Email,
		Role:           model.Role(claims.Role),
	}, nil
}

// ExtractBearer returns the token from an Authorization header value.
func ExtractBearer(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
