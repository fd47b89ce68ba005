package gotap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestLogin(t *testing.T) {
	var gotUser, gotPassword string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assertEqualE(t, r.URL.Path, "/tap-server/login")
		assertNilE(t, r.ParseForm())
		gotUser = r.PostForm.Get("username")
		gotPassword = r.PostForm.Get("password")
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abcdef123456"})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	conn := testServiceConn(t, server)
	err := conn.Login(context.Background(), "jdoe", "secret")
	assertNilF(t, err)
	assertEqualE(t, gotUser, "jdoe")
	assertEqualE(t, gotPassword, "secret")
	assertTrueE(t, conn.loggedIn)
	assertEqualE(t, conn.user, "jdoe")
	assertEqualF(t, len(conn.rest.sessionCookies), 1)
	assertEqualE(t, conn.rest.sessionCookies[0].Name, "JSESSIONID")
	// a held session forces HTTPS from here on
	assertEqualE(t, conn.rest.Protocol, "https")
}

func TestLoginRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	conn := testServiceConn(t, server)
	err := conn.Login(context.Background(), "jdoe", "wrong")
	assertNotNilF(t, err)
	var te *TapError
	assertErrorsAsF(t, err, &te)
	assertEqualE(t, te.Number, ErrCodeLoginRejected)
	assertEqualE(t, te.HTTPStatus, http.StatusUnauthorized)
	assertFalseE(t, conn.loggedIn)
}

func TestLoginWithoutCookie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	conn := testServiceConn(t, server)
	err := conn.Login(context.Background(), "jdoe", "secret")
	assertNotNilF(t, err)
	var te *TapError
	assertErrorsAsF(t, err, &te)
	assertEqualE(t, te.Number, ErrCodeLoginRejected)
	assertStringContainsE(t, te.Error(), "session cookie")
}

func signedTestToken(t *testing.T, claims jwt.MapClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	assertNilF(t, err)
	return token
}

func TestLoginToken(t *testing.T) {
	conn := testConn(t)
	conn.rest.Protocol = "http"
	conn.rest.Port = 80
	token := signedTestToken(t, jwt.MapClaims{
		"sub": "jdoe",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	err := conn.LoginToken(context.Background(), token)
	assertNilF(t, err)
	assertTrueE(t, conn.loggedIn)
	assertEqualE(t, conn.user, "jdoe")
	assertEqualE(t, conn.rest.bearerToken, token)
	// a bearer login forces HTTPS on the default port too
	assertEqualE(t, conn.rest.Protocol, "https")
	assertEqualE(t, conn.rest.Port, 443)
	assertEqualE(t, conn.rest.defaultHeaders()[headerAuthorizationKey], "Bearer "+token)
}

func TestLoginTokenExpired(t *testing.T) {
	conn := testConn(t)
	token := signedTestToken(t, jwt.MapClaims{
		"sub": "jdoe",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	err := conn.LoginToken(context.Background(), token)
	assertNotNilF(t, err)
	var te *TapError
	assertErrorsAsF(t, err, &te)
	assertEqualE(t, te.Number, ErrCodeLoginRejected)
	assertStringContainsE(t, te.Error(), "expired")
	assertFalseE(t, conn.loggedIn)
}

func TestLoginTokenOpaque(t *testing.T) {
	// tokens that are not JWTs are passed through; the service decides
	conn := testConn(t)
	err := conn.LoginToken(context.Background(), "opaque-archive-token")
	assertNilF(t, err)
	assertTrueE(t, conn.loggedIn)
	assertEqualE(t, conn.rest.bearerToken, "opaque-archive-token")
}

func TestLogout(t *testing.T) {
	conn := testConn(t)
	var gotLogout bool
	conn.rest.FuncPost = func(ctx context.Context, sr *tapRestful, fullURL *url.URL, headers map[string]string, body []byte, timeout time.Duration) (*http.Response, error) {
		if fullURL.Path == "/tap-server/logout" {
			gotLogout = true
		}
		return fakeResponse(http.StatusOK, ""), nil
	}
	conn.loggedIn = true
	conn.user = "jdoe"
	conn.rest.sessionCookies = []*http.Cookie{{Name: "JSESSIONID", Value: "abc"}}

	assertNilF(t, conn.Logout(context.Background()))
	assertTrueE(t, gotLogout)
	assertFalseE(t, conn.loggedIn)
	assertEqualE(t, conn.user, "")
	assertEqualE(t, len(conn.rest.sessionCookies), 0)
}

func TestLogoutWhenNotLoggedIn(t *testing.T) {
	conn := testConn(t)
	assertNilE(t, conn.Logout(context.Background()))
}

func TestCloseLogsOut(t *testing.T) {
	conn := testConn(t)
	var gotLogout bool
	conn.rest.FuncPost = func(ctx context.Context, sr *tapRestful, fullURL *url.URL, headers map[string]string, body []byte, timeout time.Duration) (*http.Response, error) {
		gotLogout = true
		return fakeResponse(http.StatusOK, ""), nil
	}
	conn.loggedIn = true
	assertNilF(t, conn.Close(context.Background()))
	assertTrueE(t, gotLogout)
	assertFalseE(t, conn.loggedIn)
}
