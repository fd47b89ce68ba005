package gotap

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxRedirects caps the redirect chain followed when a service relocates a
// result or a job document.
const maxRedirects = 5

type funcGetType func(context.Context, *tapRestful, *url.URL, map[string]string, time.Duration) (*http.Response, error)
type funcPostType func(context.Context, *tapRestful, *url.URL, map[string]string, []byte, time.Duration) (*http.Response, error)
type funcDeleteType func(context.Context, *tapRestful, *url.URL, map[string]string, time.Duration) (*http.Response, error)

// tapRestful issues HTTP requests against one TAP service endpoint.
type tapRestful struct {
	Protocol      string
	Host          string
	Port          int
	ServerContext string
	TapContext    string

	RequestTimeout time.Duration

	Client *http.Client

	// session state; nil/empty for anonymous access
	sessionCookies []*http.Cookie
	bearerToken    string

	// overridable in tests
	FuncGet    funcGetType
	FuncPost   funcPostType
	FuncDelete funcDeleteType
}

func newRestful(cfg *Config) *tapRestful {
	return &tapRestful{
		Protocol:       cfg.Protocol,
		Host:           cfg.Host,
		Port:           cfg.Port,
		ServerContext:  cfg.ServerContext,
		TapContext:     cfg.TapContext,
		RequestTimeout: cfg.RequestTimeout,
		Client: &http.Client{
			Transport: newTransport(cfg),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return &TapError{
						Number:      ErrCodeRedirectLimit,
						Message:     "stopped after %v redirects",
						MessageArgs: []interface{}{maxRedirects},
					}
				}
				return nil
			},
		},
		FuncGet:    getRestful,
		FuncPost:   postRestful,
		FuncDelete: deleteRestful,
	}
}

// getFullURL builds protocol://host:port/server_context/<path>?params and
// attaches a request GUID for service-side tracing.
func (sr *tapRestful) getFullURL(path string, params *url.Values) *url.URL {
	vs := url.Values{}
	if params != nil {
		for k, list := range *params {
			for _, v := range list {
				vs.Add(k, v)
			}
		}
	}
	vs.Set(requestGUIDKey, uuid.New().String())
	ret := &url.URL{
		Scheme:   sr.Protocol,
		Host:     fmt.Sprintf("%v:%v", sr.Host, sr.Port),
		Path:     "/" + sr.ServerContext + ensureLeadingSlash(path),
		RawQuery: vs.Encode(),
	}
	return ret
}

// getTapURL is getFullURL under the TAP context, e.g. /tap-server/tap/async.
func (sr *tapRestful) getTapURL(path string, params *url.Values) *url.URL {
	return sr.getFullURL("/"+sr.TapContext+ensureLeadingSlash(path), params)
}

func ensureLeadingSlash(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}

func (sr *tapRestful) defaultHeaders() map[string]string {
	headers := map[string]string{
		"User-Agent": userAgent,
		"Accept":     acceptTypeAny,
	}
	if sr.bearerToken != "" {
		headers[headerAuthorizationKey] = fmt.Sprintf(headerBearerToken, sr.bearerToken)
	}
	if len(sr.sessionCookies) > 0 {
		pairs := make([]string, 0, len(sr.sessionCookies))
		for _, c := range sr.sessionCookies {
			pairs = append(pairs, c.Name+"="+c.Value)
		}
		headers["Cookie"] = strings.Join(pairs, "; ")
	}
	return headers
}

// setSession stores the session cookies handed out at login and flips the
// protocol to HTTPS for every subsequent request.
func (sr *tapRestful) setSession(cookies []*http.Cookie) {
	sr.sessionCookies = cookies
	if len(cookies) > 0 {
		sr.useHTTPS()
	}
}

// useHTTPS switches an authenticated connection to HTTPS, remapping the
// plain-HTTP default port.
func (sr *tapRestful) useHTTPS() {
	sr.Protocol = "https"
	if sr.Port == 80 {
		sr.Port = 443
	}
}

func (sr *tapRestful) clearSession() {
	sr.sessionCookies = nil
	sr.bearerToken = ""
}

func getRestful(
	ctx context.Context,
	sr *tapRestful,
	fullURL *url.URL,
	headers map[string]string,
	timeout time.Duration) (*http.Response, error) {
	return newRetryHTTP(ctx, sr.Client, http.NewRequest, fullURL, headers, timeout).execute()
}

func postRestful(
	ctx context.Context,
	sr *tapRestful,
	fullURL *url.URL,
	headers map[string]string,
	body []byte,
	timeout time.Duration) (*http.Response, error) {
	return newRetryHTTP(ctx, sr.Client, http.NewRequest, fullURL, headers, timeout).doPost().setBody(body).execute()
}

func deleteRestful(
	ctx context.Context,
	sr *tapRestful,
	fullURL *url.URL,
	headers map[string]string,
	timeout time.Duration) (*http.Response, error) {
	return newRetryHTTP(ctx, sr.Client, http.NewRequest, fullURL, headers, timeout).doDelete().execute()
}

// postForm posts an application/x-www-form-urlencoded body.
func (sr *tapRestful) postForm(
	ctx context.Context,
	fullURL *url.URL,
	form url.Values,
	timeout time.Duration) (*http.Response, error) {
	headers := sr.defaultHeaders()
	headers["Content-Type"] = contentTypeForm
	return sr.FuncPost(ctx, sr, fullURL, headers, []byte(form.Encode()), timeout)
}
