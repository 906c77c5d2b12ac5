package core

import (
	"crypto/ed25519"
	"crypto/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	token, err := JWTGenerateToken("spaceport.test", priv, 42, JWTPurposeLogin, false)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := JWTVerifyToken(token, "spaceport.test", priv, nil)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(42), claims.Subject)
	assert.Equal(t, []string{string(JWTPurposeLogin)}, []string(claims.Audience))
}

func TestJWTVerifyRejectsWrongIssuer(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	token, err := JWTGenerateToken("spaceport.test", priv, 1, JWTPurposeLogin, false)
	require.NoError(t, err)

	_, err = JWTVerifyToken(token, "other.test", priv, nil)
	require.ErrorIs(t, err, ErrJWTUnexpectedIssuer)
}

func TestJWTVerifyRejectsWrongKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, other, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	token, err := JWTGenerateToken("spaceport.test", priv, 1, JWTPurposeLogin, false)
	require.NoError(t, err)

	_, err = JWTVerifyToken(token, "spaceport.test", other, nil)
	require.Error(t, err)
}

func TestJWTRejectsExpired(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	token, err := JWTGenerateTokenWithDuration("spaceport.test", priv, 1, -time.Minute, JWTPurposeLogin)
	require.NoError(t, err)

	_, err = JWTVerifyToken(token, "spaceport.test", priv, nil)
	require.Error(t, err)
}
