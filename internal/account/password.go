package account

// DefaultPasswordMaxLen is the canonical upper bound. Earlier variants of
// the platform disagreed between 20 and 60; 20 is the documented choice.
const (
	PasswordMinLen        = 8
	DefaultPasswordMaxLen = 20
)

// CheckPasswordRule validates a plaintext password: 8..maxLen characters
// with at least one uppercase letter, one lowercase letter and one digit.
// A maxLen of zero falls back to DefaultPasswordMaxLen.
func CheckPasswordRule(password string, maxLen int) bool {
	if maxLen <= 0 {
		maxLen = DefaultPasswordMaxLen
	}
	if len(password) < PasswordMinLen || len(password) > maxLen {
		return false
	}

	var upper, lower, digit bool
	for _, c := range password {
		switch {
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= '0' && c <= '9':
			digit = true
		}
	}
	return upper && lower && digit
}
