package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     bool
	}{
		{"plain email", "test@example.com", true},
		{"email with dots", "first.last@example.com", true},
		{"email with underscore", "a_b@example.com", true},
		{"short tld", "a@b.cn", true},
		{"mobile number", "13800138000", true},
		{"mobile 19 prefix", "19912345678", true},
		{"mobile bad second digit", "12345678901", false},
		{"mobile too short", "1380013800", false},
		{"email missing tld", "user@domain", false},
		{"email leading dot in local", ".user@example.com", false},
		{"email trailing underscore", "user_@example.com", false},
		{"tld too long", "user@example.engineering", false},
		{"empty", "", false},
		{"plain word", "admin", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateUsername(tt.username))
		})
	}
}

func TestIsPhoneVsIsEmail(t *testing.T) {
	assert.True(t, IsPhone("15612345678"))
	assert.False(t, IsEmail("15612345678"))
	assert.True(t, IsEmail("ops@lugang.example.com"))
	assert.False(t, IsPhone("ops@lugang.example.com"))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "test", DisplayName("test@example.com"))
	assert.Equal(t, "first.last", DisplayName("first.last@example.com"))
	assert.Equal(t, "8000用户", DisplayName("13800138000"))
}

func TestCheckPasswordRule(t *testing.T) {
	tests := []struct {
		name     string
		password string
		maxLen   int
		want     bool
	}{
		{"valid", "Abcdef12", 0, true},
		{"valid at max", "Abcdef12Abcdef12Abcd", 0, true},
		{"too short", "Abc1def", 0, false},
		{"too long", "Abcdef12Abcdef12Abcde", 0, false},
		{"no uppercase", "abcdef12", 0, false},
		{"no lowercase", "ABCDEF12", 0, false},
		{"no digit", "Abcdefgh", 0, false},
		{"custom max allows longer", "Abcdef12Abcdef12Abcde", 60, true},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckPasswordRule(tt.password, tt.maxLen))
		})
	}
}
