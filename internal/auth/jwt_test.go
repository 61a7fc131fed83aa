package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTIssuer_Roundtrip(t *testing.T) {
	j := NewJWTIssuer("secret", time.Hour)
	u := uuid.New()

	token, err := j.Issue(u)
	require.NoError(t, err)

	got, err := j.Parse(token)
	require.NoError(t, err)
	require.Equal(t, u, got)
}

func TestJWTIssuer_WrongSecret(t *testing.T) {
	token, err := NewJWTIssuer("secret", time.Hour).Issue(uuid.New())
	require.NoError(t, err)

	_, err = NewJWTIssuer("other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTIssuer_Expired(t *testing.T) {
	j := NewJWTIssuer("secret", 3*time.Hour)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return issued }

	token, err := j.Issue(uuid.New())
	require.NoError(t, err)

	j.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = j.Parse(token)
	require.NoError(t, err)

	j.now = func() time.Time { return issued.Add(4 * time.Hour) }
	_, err = j.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTIssuer_Garbage(t *testing.T) {
	_, err := NewJWTIssuer("secret", time.Hour).Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.True(t, h.Verify("s3cret", hash))
	assert.False(t, h.Verify("wrong", hash))
	assert.False(t, h.Verify("s3cret", ""))
}
