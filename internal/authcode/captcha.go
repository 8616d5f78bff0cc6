package authcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Charset excludes I and O, which read like 1 and 0 in the rendered image.
const captchaCharset = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"

func captchaKey(subject string) string {
	return "captcha:" + subject
}

// IssueCaptcha generates a 4-character image challenge for the subject and
// returns the SVG to render. A new challenge replaces any prior one.
func (i *Issuer) IssueCaptcha(ctx context.Context, subject string) (string, error) {
	code := make([]byte, 4)
	for idx := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(captchaCharset))))
		if err != nil {
			return "", fmt.Errorf("generate captcha: %w", err)
		}
		code[idx] = captchaCharset[n.Int64()]
	}

	key := captchaKey(subject)
	if err := i.cache.Del(ctx, key).Err(); err != nil {
		return "", fmt.Errorf("invalidate prior captcha: %w", err)
	}
	if err := i.cache.Set(ctx, key, string(code), i.cfg.CaptchaTTL).Err(); err != nil {
		return "", fmt.Errorf("store captcha: %w", err)
	}

	return renderCaptchaSVG(string(code)), nil
}

// VerifyCaptcha is single-use and case-insensitive.
func (i *Issuer) VerifyCaptcha(ctx context.Context, subject string, answer string) bool {
	if answer == "" {
		return false
	}
	key := captchaKey(subject)

	stored, err := i.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			i.log.Error().Err(err).Str("subject", subject).Msg("captcha lookup failed")
		}
		return false
	}
	if !strings.EqualFold(stored, answer) {
		return false
	}

	if err := i.cache.Del(ctx, key).Err(); err != nil {
		i.log.Error().Err(err).Str("subject", subject).Msg("captcha consume failed")
		return false
	}
	return true
}

func renderCaptchaSVG(code string) string {
	const width, height = 150, 50

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, width, height, width, height)
	b.WriteString(`<rect width="100%" height="100%" fill="#f0f9ff"/>`)

	noiseColor := func() string {
		return fmt.Sprintf("rgb(%d,%d,%d)", 100+mrand.Intn(100), 100+mrand.Intn(100), 100+mrand.Intn(100))
	}

	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1"/>`,
			mrand.Float64()*width, mrand.Float64()*height,
			mrand.Float64()*width, mrand.Float64()*height,
			noiseColor())
	}
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="1" fill="%s"/>`,
			mrand.Float64()*width, mrand.Float64()*height, noiseColor())
	}

	charWidth := float64(width) / float64(len(code)+1)
	for i, c := range code {
		x := charWidth * (float64(i) + 0.5)
		y := float64(height)/2 + 8
		rotate := mrand.Float64()*30 - 15
		fontSize := 24 + mrand.Float64()*8
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="%.1f" font-family="Arial, sans-serif" font-weight="bold" fill="#3B82F6" transform="rotate(%.1f, %.1f, %.1f)">%c</text>`,
			x, y, fontSize, rotate, x, y, c)
	}

	b.WriteString(`</svg>`)
	return b.String()
}
