package gotap

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// defaultTransport is shared by all connections whose Config carries no
// dial or TLS overrides. Idle connections are pooled per service host.
var defaultTransport = &http.Transport{
	MaxIdleConns:    10,
	IdleConnTimeout: 30 * time.Minute,
	Proxy:           http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout: defaultConnectTimeout,
	}).DialContext,
}

func newTransport(cfg *Config) *http.Transport {
	if !cfg.InsecureMode && cfg.ConnectTimeout == defaultConnectTimeout {
		return defaultTransport
	}
	transport := &http.Transport{
		MaxIdleConns:    10,
		IdleConnTimeout: 30 * time.Minute,
		Proxy:           http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
	}
	if cfg.InsecureMode {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return transport
}
