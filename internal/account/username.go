// Package account holds the username and password validation rules shared
// by registration, login and the admin endpoints.
package account

import "regexp"

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9]+([_.][A-Za-z0-9]+)*@([A-Za-z0-9-]+\.)+[A-Za-z]{2,6}$`)
	phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)
)

// IsEmail reports whether s is a conventional email address with a 2-6
// character TLD.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsPhone reports whether s is an 11-digit Chinese mobile number.
func IsPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// ValidateUsername accepts either shape. The branches are mutually
// exclusive: a digits-only string can never match the email branch.
func ValidateUsername(s string) bool {
	return IsEmail(s) || IsPhone(s)
}

// DisplayName derives the default display name for a new account: the
// local part of an email, or the last four digits of a phone number.
func DisplayName(username string) string {
	if IsPhone(username) {
		return username[len(username)-4:] + "用户"
	}
	for i := 0; i < len(username); i++ {
		if username[i] == '@' {
			return username[:i]
		}
	}
	return username
}
