package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-session-tokens"

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := GenerateSessionToken(testSecret, "sess1", "user1", "team1", "member1", false, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseSessionToken(token, testSecret)
	require.NoError(t, err)

	assert.Equal(t, "sess1", claims.ID)
	assert.Equal(t, "user1", claims.UserID)
	assert.Equal(t, "team1", claims.TeamID)
	assert.Equal(t, "member1", claims.TeamMemberID)
	assert.False(t, claims.IsRoot)
}

func TestSessionTokenRootFlag(t *testing.T) {
	token, err := GenerateSessionToken(testSecret, "sess1", "user1", "team1", "member1", true, time.Hour)
	require.NoError(t, err)

	claims, err := ParseSessionToken(token, testSecret)
	require.NoError(t, err)
	assert.True(t, claims.IsRoot)
}

func TestSessionTokenWrongSecret(t *testing.T) {
	token, err := GenerateSessionToken(testSecret, "sess1", "user1", "team1", "member1", false, time.Hour)
	require.NoError(t, err)

	_, err = ParseSessionToken(token, "another-secret")
	assert.Error(t, err)
}

func TestSessionTokenExpired(t *testing.T) {
	token, err := GenerateSessionToken(testSecret, "sess1", "user1", "team1", "member1", false, -time.Minute)
	require.NoError(t, err)

	_, err = ParseSessionToken(token, testSecret)
	assert.Error(t, err)
}

func TestSessionTokenGarbage(t *testing.T) {
	_, err := ParseSessionToken("not.a.token", testSecret)
	assert.Error(t, err)
}
