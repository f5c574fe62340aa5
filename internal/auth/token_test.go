package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glansab/backoffice/internal/model"
)

func testSession() *model.Session {
	return &model.Session{UserID: "user-1", OrganisationID: "org-1", Email: "a@b.se", Role: model.RoleAdmin}
}

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens("secret")

	signed, err := tokens.Sign(testSession(), time.Hour)
	require.NoError(t, err)

	got, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, testSession(), got)
}

func TestTokens_Expired(t *testing.T) {
	tokens := NewTokens("secret")
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	signed, err := tokens.Sign(testSession(), time.Hour)
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_WrongSecret(t *testing.T) {
	signed, err := NewTokens("secret").Sign(testSession(), time.Hour)
	require.NoError(t, err)

	_, err = NewTokens("other").Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		OrganisationID: "org-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokens("secret").Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_RequiresOrganisation(t *testing.T) {
	s := testSession()
	s.OrganisationID = ""
	signed, err := NewTokens("secret").Sign(s, time.Hour)
	require.NoError(t, err)

	_, err = NewTokens("secret").Parse(signed)
	assert.ErrorIs(t, err, ErrMissingOrg)
}

func TestTokens_Empty(t *testing.T) {
	_, err := NewTokens("secret").Parse("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def", "abc.def"},
		{"bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractBearer(tt.header); got != tt.want {
			t.Errorf("ExtractBearer(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestSessionContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, SessionFromContext(ctx))
	assert.Equal(t, "", UserIDFromContext(ctx))
	assert.Panics(t, func() { MustSessionFromContext(ctx) })

	ctx = ContextWithSession(ctx, testSession())
	assert.Equal(t, "user-1", UserIDFromContext(ctx))
	assert.Equal(t, "org-1", OrganisationIDFromContext(ctx))
	assert.NotPanics(t, func() { MustSessionFromContext(ctx) })
}
