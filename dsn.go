package gotap

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultServerContext = "tap-server"
	defaultTapContext    = "tap"
	defaultUploadContext = "Upload"
	defaultTableContext  = "TableTool"
	defaultLoginContext  = "login"
	defaultLogoutContext = "logout"
	defaultShareContext  = "share"

	defaultConnectTimeout = 60 * time.Second
	defaultRequestTimeout = 0 // no request timeout by default
	defaultPollInterval   = 500 * time.Millisecond
)

// Config holds everything needed to talk to one TAP service.
type Config struct {
	Protocol string // http or https; flips to https once a session is held
	Host     string
	Port     int

	ServerContext    string // first path segment, e.g. "tap-server"
	TapContext       string // TAP segment, e.g. "tap"
	UploadContext    string // table upload endpoint segment
	TableEditContext string // table edit/delete endpoint segment
	LoginContext     string // login endpoint segment
	LogoutContext    string // logout endpoint segment
	ShareContext     string // table sharing endpoint segment

	User     string
	Password string

	Format         OutputFormat  // default output format for queries
	MaxRec         int           // MAXREC hint; 0 leaves the service default
	ConnectTimeout time.Duration // dial timeout
	RequestTimeout time.Duration // full request read timeout
	PollInterval   time.Duration // sleep between job phase polls

	InsecureMode bool // skips certificate verification; test use only
}

func (cfg *Config) String() string {
	return fmt.Sprintf("%s://%s:%d/%s/%s user=%v format=%v",
		cfg.Protocol, cfg.Host, cfg.Port, cfg.ServerContext, cfg.TapContext,
		cfg.User, cfg.Format)
}

// ParseDSN parses a DSN string of the form
//
//	[user[:password]@]host[:port]/server_context/tap_context[?param=value&...]
//
// into a Config.
func ParseDSN(dsn string) (*Config, error) {
	cfg := &Config{}

	rest := dsn
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		userinfo := rest[:at]
		rest = rest[at+1:]
		if colon := strings.Index(userinfo, ":"); colon >= 0 {
			cfg.User = userinfo[:colon]
			cfg.Password = userinfo[colon+1:]
		} else {
			cfg.User = userinfo
		}
	}

	var params string
	if q := strings.Index(rest, "?"); q >= 0 {
		params = rest[q+1:]
		rest = rest[:q]
	}

	parts := strings.Split(rest, "/")
	hostport := parts[0]
	if colon := strings.Index(hostport, ":"); colon >= 0 {
		cfg.Host = hostport[:colon]
		port, err := strconv.Atoi(hostport[colon+1:])
		if err != nil {
			return nil, &TapError{
				Number:      ErrCodeFailedToParsePort,
				Message:     "failed to parse a port number. port: %v",
				MessageArgs: []interface{}{hostport[colon+1:]},
			}
		}
		cfg.Port = port
	} else {
		cfg.Host = hostport
	}
	if cfg.Host == "" {
		return nil, ErrEmptyHost
	}
	if len(parts) > 1 {
		cfg.ServerContext = parts[1]
	}
	if len(parts) > 2 {
		cfg.TapContext = parts[2]
	}
	if cfg.ServerContext == "" {
		return nil, ErrEmptyServerContext
	}

	if params != "" {
		if err := parseDSNParams(cfg, params); err != nil {
			return nil, err
		}
	}
	fillMissingConfigParameters(cfg)
	return cfg, nil
}

// parseDSNParams parses the DSN "query string". Values must be
// url.QueryEscape'd.
func parseDSNParams(cfg *Config, params string) error {
	vs, err := url.ParseQuery(params)
	if err != nil {
		return err
	}
	for k := range vs {
		value := vs.Get(k)
		switch k {
		case "protocol":
			cfg.Protocol = value
		case "format":
			cfg.Format = OutputFormat(value)
		case "maxrec":
			cfg.MaxRec, err = strconv.Atoi(value)
			if err != nil {
				return err
			}
		case "connectTimeout":
			cfg.ConnectTimeout, err = parseTimeout(value)
			if err != nil {
				return err
			}
		case "requestTimeout":
			cfg.RequestTimeout, err = parseTimeout(value)
			if err != nil {
				return err
			}
		case "pollInterval":
			var ms int
			ms, err = strconv.Atoi(value)
			if err != nil {
				return err
			}
			cfg.PollInterval = time.Duration(ms) * time.Millisecond
		case "uploadContext":
			cfg.UploadContext = value
		case "tableEditContext":
			cfg.TableEditContext = value
		case "insecureMode":
			cfg.InsecureMode, err = strconv.ParseBool(value)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("invalid DSN parameter: %v", k)
		}
	}
	return nil
}

func parseTimeout(value string) (time.Duration, error) {
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}

func fillMissingConfigParameters(cfg *Config) {
	if cfg.Protocol == "" {
		cfg.Protocol = "https"
	}
	if cfg.Port == 0 {
		if cfg.Protocol == "http" {
			cfg.Port = 80
		} else {
			cfg.Port = 443
		}
	}
	if cfg.TapContext == "" {
		cfg.TapContext = defaultTapContext
	}
	if cfg.UploadContext == "" {
		cfg.UploadContext = defaultUploadContext
	}
	if cfg.TableEditContext == "" {
		cfg.TableEditContext = defaultTableContext
	}
	if cfg.LoginContext == "" {
		cfg.LoginContext = defaultLoginContext
	}
	if cfg.LogoutContext == "" {
		cfg.LogoutContext = defaultLogoutContext
	}
	if cfg.ShareContext == "" {
		cfg.ShareContext = defaultShareContext
	}
	if cfg.Format == "" {
		cfg.Format = FormatVOTable
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
}
