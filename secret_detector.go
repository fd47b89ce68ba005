package gotap

import "regexp"

const (
	passwordPattern        = `(?i)(password|pwd)([\'\"\s:=]+)([a-z0-9!\"#\$%&\\\'\(\)\*\+\,-\./:;<=>\?\@\[\]\^_\{\|\}~]{4,})`
	dsnPasswordPattern     = `([^/:\s]+):([^@/:\s]{3,})@` // user:password@host in DSN strings
	sessionCookiePattern   = `(?i)(JSESSIONID|SESSION)=([a-z0-9!%/+_\-\.]{8,})`
	bearerTokenPattern     = `(?i)(jwt|bearer)[\s:=]*([a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+)`
	connectionTokenPattern = `(?i)(token)([\'\"\s:=]+)([a-z0-9=/_\-\+]{8,})`
)

var (
	passwordRegexp        = regexp.MustCompile(passwordPattern)
	dsnPasswordRegexp     = regexp.MustCompile(dsnPasswordPattern)
	sessionCookieRegexp   = regexp.MustCompile(sessionCookiePattern)
	bearerTokenRegexp     = regexp.MustCompile(bearerTokenPattern)
	connectionTokenRegexp = regexp.MustCompile(connectionTokenPattern)
)

// maskSecrets scrubs passwords, session cookies and tokens from text that
// may end up in logs or error messages.
func maskSecrets(text string) string {
	text = passwordRegexp.ReplaceAllString(text, "$1${2}****")
	text = dsnPasswordRegexp.ReplaceAllString(text, "$1:****@")
	text = sessionCookieRegexp.ReplaceAllString(text, "$1=****")
	text = bearerTokenRegexp.ReplaceAllString(text, "$1 ****")
	text = connectionTokenRegexp.ReplaceAllString(text, "$1${2}****")
	return text
}
