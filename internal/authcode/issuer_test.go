package authcode

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taotie8304/lu-gang-connect-project/internal/config"
)

func newTestIssuer(t *testing.T) (*Issuer, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := config.AuthCodeConfig{
		LoginTTL:    60 * time.Second,
		RegisterTTL: 600 * time.Second,
		ResetTTL:    600 * time.Second,
		GuardWindow: 60 * time.Second,
		CaptchaTTL:  5 * time.Minute,
	}
	return NewIssuer(client, cfg, zerolog.Nop()), mr
}

func TestIssueAndVerify(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	ctx := context.Background()

	code, err := issuer.Issue(ctx, "test@example.com", PurposeRegister)
	require.NoError(t, err)
	assert.Regexp(t, "^[0-9]{6}$", code)

	assert.True(t, issuer.Verify(ctx, "test@example.com", PurposeRegister, code))
}

func TestVerifySingleUse(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	ctx := context.Background()

	code, err := issuer.Issue(ctx, "test@example.com", PurposeRegister)
	require.NoError(t, err)

	require.True(t, issuer.Verify(ctx, "test@example.com", PurposeRegister, code))
	assert.False(t, issuer.Verify(ctx, "test@example.com", PurposeRegister, code))
}

func TestVerifyWrongCodeLeavesCodeAlive(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	ctx := context.Background()

	code, err := issuer.Issue(ctx, "test@example.com", PurposeRegister)
	require.NoError(t, err)

	assert.False(t, issuer.Verify(ctx, "test@example.com", PurposeRegister, "000000"))
	assert.True(t, issuer.Verify(ctx, "test@example.com", PurposeRegister, code))
}

func TestVerifyPurposeIsolation(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	ctx := context.Background()

	code, err := issuer.Issue(ctx, "test@example.com", PurposeRegister)
	require.NoError(t, err)

	assert.False(t, issuer.Verify(ctx, "test@example.com", PurposeReset, code))
}

func TestIssueTooFrequent(t *testing.T) {
	issuer, mr := newTestIssuer(t)
	ctx := context.Background()

	_, err := issuer.Issue(ctx, "test@example.com", PurposeRegister)
	require.NoError(t, err)

	_, err = issuer.Issue(ctx, "test@example.com", PurposeRegister)
	assert.ErrorIs(t, err, ErrTooFrequent)

	// Past the guard window the subject may ask again.
	mr.FastForward(61 * time.Second)
	_, err = issuer.Issue(ctx, "test@example.com", PurposeRegister)
	assert.NoError(t, err)
}

func TestReissueInvalidatesPriorCode(t *testing.T) {
	issuer, mr := newTestIssuer(t)
	ctx := context.Background()

	first, err := issuer.Issue(ctx, "test@example.com", PurposeRegister)
	require.NoError(t, err)

	mr.FastForward(61 * time.Second)
	second, err := issuer.Issue(ctx, "test@example.com", PurposeRegister)
	require.NoError(t, err)

	if first != second {
		assert.False(t, issuer.Verify(ctx, "test@example.com", PurposeRegister, first))
	}
	assert.True(t, issuer.Verify(ctx, "test@example.com", PurposeRegister, second))
}

func TestCodeExpires(t *testing.T) {
	issuer, mr := newTestIssuer(t)
	ctx := context.Background()

	code, err := issuer.Issue(ctx, "test@example.com", PurposeLogin)
	require.NoError(t, err)

	mr.FastForward(61 * time.Second)
	assert.False(t, issuer.Verify(ctx, "test@example.com", PurposeLogin, code))
}

func TestCaptchaRoundTrip(t *testing.T) {
	issuer, mr := newTestIssuer(t)
	ctx := context.Background()

	svg, err := issuer.IssueCaptcha(ctx, "client-1")
	require.NoError(t, err)
	assert.Contains(t, svg, "<svg")

	stored, err := mr.Get("captcha:client-1")
	require.NoError(t, err)
	require.Len(t, stored, 4)

	assert.True(t, issuer.VerifyCaptcha(ctx, "client-1", stored))
	// Consumed on success.
	assert.False(t, issuer.VerifyCaptcha(ctx, "client-1", stored))
}

func TestCaptchaCaseInsensitive(t *testing.T) {
	issuer, mr := newTestIssuer(t)
	ctx := context.Background()

	_, err := issuer.IssueCaptcha(ctx, "client-1")
	require.NoError(t, err)

	stored, err := mr.Get("captcha:client-1")
	require.NoError(t, err)

	assert.True(t, issuer.VerifyCaptcha(ctx, "client-1", strings.ToLower(stored)))
}

func TestCaptchaWrongAnswer(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	ctx := context.Background()

	_, err := issuer.IssueCaptcha(ctx, "client-1")
	require.NoError(t, err)

	assert.False(t, issuer.VerifyCaptcha(ctx, "client-1", "!!!!"))
}
