package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_GenerateAndParse(t *testing.T) {
	tm := NewTokenManager(TokenConfig{SecretKey: "user-secret", Expiry: time.Hour})

	token, err := tm.Generate(1001, "alice", "127.0.0.1")
	require.NoError(t, err)

	user, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), user.UID)
	assert.Equal(t, "alice", user.Nickname)
	assert.NoError(t, tm.Validate(token))

	// 错误的密钥
	other := NewTokenManager(TokenConfig{SecretKey: "wrong-secret"})
	_, err = other.Parse(token)
	assert.Error(t, err)

	// 篡改后的 Token
	assert.Error(t, tm.Validate(token+"tampered"))
}

func TestTokenManager_Expired(t *testing.T) {
	tm := NewTokenManager(TokenConfig{SecretKey: "user-secret", Expiry: -time.Minute})

	token, err := tm.Generate(1, "", "")
	require.NoError(t, err)
	assert.Error(t, tm.Validate(token))
}

func TestTokenManager_Nonce(t *testing.T) {
	tm := NewTokenManager(TokenConfig{SecretKey: "user-secret", NonceExpiry: time.Hour})

	nonce, expiresAt, err := tm.GenerateNonce(7)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	assert.NoError(t, tm.VerifyNonce(nonce, 7))
	assert.Error(t, tm.VerifyNonce(nonce, 8), "nonce must be bound to its user")
	assert.Error(t, tm.VerifyNonce("", 7))

	// 用户 Token 不能当作 nonce 使用，反之亦然
	userToken, err := tm.Generate(7, "", "")
	require.NoError(t, err)
	assert.Error(t, tm.VerifyNonce(userToken, 7))
	_, err = tm.Parse(nonce)
	assert.Error(t, err)
}

func TestTokenManager_NonceExpired(t *testing.T) {
	tm := NewTokenManager(TokenConfig{SecretKey: "user-secret", NonceExpiry: -time.Minute})

	nonce, _, err := tm.GenerateNonce(7)
	require.NoError(t, err)
	assert.Error(t, tm.VerifyNonce(nonce, 7))
}
