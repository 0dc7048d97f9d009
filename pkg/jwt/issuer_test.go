package jwt

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueToken_AcceptedByValidator(t *testing.T) {
	privateKey := generateRSAKeyPair(t)
	v := newInitializedValidator(t, privateKey, nil)

	token, err := IssueToken(privateKey, "local-trainer", 42, time.Hour, time.Now())
	require.NoError(t, err)

	claims, err := v.ValidateToken(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "local-trainer", claims.Subject)
	assert.Equal(t, int64(42), claims.TelegramID)
	assert.Equal(t, DevIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestIssueToken_ExpiredRejected(t *testing.T) {
	privateKey := generateRSAKeyPair(t)
	v := newInitializedValidator(t, privateKey, nil)

	token, err := IssueToken(privateKey, "local-trainer", 0, time.Minute, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = v.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}

func TestIssueToken_InvalidInput(t *testing.T) {
	privateKey := generateRSAKeyPair(t)

	_, err := IssueToken(privateKey, "", 0, time.Hour, time.Now())
	assert.Error(t, err)

	_, err = IssueToken(privateKey, "local-trainer", 0, 0, time.Now())
	assert.Error(t, err)
}

func TestParsePrivateKeyPEM(t *testing.T) {
	privateKey := generateRSAKeyPair(t)

	t.Run("PKCS1", func(t *testing.T) {
		data := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privateKey)})
		parsed, err := ParsePrivateKeyPEM(data)
		require.NoError(t, err)
		assert.True(t, privateKey.Equal(parsed))
	})

	t.Run("PKCS8", func(t *testing.T) {
		der, err := x509.MarshalPKCS8PrivateKey(privateKey)
		require.NoError(t, err)
		parsed, err := ParsePrivateKeyPEM(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
		require.NoError(t, err)
		assert.True(t, privateKey.Equal(parsed))
	})

	t.Run("NotPEM", func(t *testing.T) {
		_, err := ParsePrivateKeyPEM([]byte("garbage"))
		assert.Error(t, err)
	})

	t.Run("WrongBlockType", func(t *testing.T) {
		_, err := ParsePrivateKeyPEM(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1}}))
		assert.Error(t, err)
	})
}
