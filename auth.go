package gotap

import (
	"context"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Login authenticates against the service's login context with a username
// and password. On success the session cookies are held for every
// subsequent request and the connection switches to HTTPS.
func (c *Conn) Login(ctx context.Context, user, password string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	form := url.Values{}
	form.Set("username", user)
	form.Set("password", password)
	target := c.rest.getFullURL(c.cfg.LoginContext, nil)
	resp, err := c.rest.postForm(ctx, target, form, c.rest.RequestTimeout)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TapError{
			Number:      ErrCodeLoginRejected,
			HTTPStatus:  resp.StatusCode,
			Message:     "login rejected for user %v",
			MessageArgs: []interface{}{user},
		}
	}
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return &TapError{
			Number:  ErrCodeLoginRejected,
			Message: "login succeeded but no session cookie was issued",
		}
	}
	c.rest.setSession(cookies)
	c.loggedIn = true
	c.user = user
	logger.WithContext(c.logCtx(ctx)).Infof("logged in; switched to %v", c.rest.Protocol)
	return nil
}

// LoginToken authenticates with a bearer token, typically a JWT issued by
// the archive's SSO. The token expiry, when present in the claims, is
// checked locally so an already-expired token fails fast.
func (c *Conn) LoginToken(ctx context.Context, token string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	// unverified parse; the service is the one that validates the signature
	if _, _, err := parser.ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			if exp.Before(time.Now()) {
				return &TapError{
					Number:      ErrCodeLoginRejected,
					Message:     "bearer token expired at %v",
					MessageArgs: []interface{}{exp.Time},
				}
			}
		}
	}
	c.rest.bearerToken = token
	c.rest.useHTTPS()
	c.loggedIn = true
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		c.user = sub
	}
	return nil
}

// Logout invalidates the remote session and clears local session state.
func (c *Conn) Logout(ctx context.Context) error {
	if !c.loggedIn {
		return nil
	}
	target := c.rest.getFullURL(c.cfg.LogoutContext, nil)
	resp, err := c.rest.postForm(ctx, target, url.Values{}, c.rest.RequestTimeout)
	if err == nil {
		resp.Body.Close()
	}
	// local state is dropped regardless of the remote answer
	c.rest.clearSession()
	c.loggedIn = false
	c.user = ""
	return err
}
