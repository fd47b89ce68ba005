package gotap

import (
	"errors"
	"fmt"
	"os"
	path "path/filepath"
	"strings"
	"time"

	toml "github.com/BurntSushi/toml"
)

const (
	envConfigHome        = "GOTAP_HOME"
	envDefaultConnection = "GOTAP_DEFAULT_CONNECTION_NAME"
	connectionsFileName  = "connections.toml"
)

type tomlConnection struct {
	Protocol         string `toml:"protocol"`
	Host             string `toml:"host"`
	Port             int    `toml:"port"`
	ServerContext    string `toml:"server_context"`
	TapContext       string `toml:"tap_context"`
	UploadContext    string `toml:"upload_context"`
	TableEditContext string `toml:"table_edit_context"`
	User             string `toml:"user"`
	Password         string `toml:"password"`
	Format           string `toml:"format"`
	MaxRec           int    `toml:"maxrec"`
	ConnectTimeout   int    `toml:"connect_timeout"`   // seconds
	RequestTimeout   int    `toml:"request_timeout"`   // seconds
	PollIntervalMS   int    `toml:"poll_interval_ms"`
	InsecureMode     bool   `toml:"insecure_mode"`
	LogLevel         string `toml:"log_level"`
	LogPath          string `toml:"log_path"`
}

// LoadConnectionConfig reads a named connection from connections.toml.
// The file lives in $GOTAP_HOME, or ~/.gotap when unset; the connection
// name comes from $GOTAP_DEFAULT_CONNECTION_NAME, or "default".
func LoadConnectionConfig() (*Config, error) {
	name := os.Getenv(envDefaultConnection)
	if name == "" {
		name = "default"
	}
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	return loadConnectionConfig(path.Join(dir, connectionsFileName), name)
}

func loadConnectionConfig(filePath, name string) (*Config, error) {
	connections := make(map[string]tomlConnection)
	if _, err := toml.DecodeFile(filePath, &connections); err != nil {
		return nil, fmt.Errorf("parsing client config failed: %w", err)
	}
	tc, ok := connections[name]
	if !ok {
		return nil, fmt.Errorf("connection %q not found in %v", name, filePath)
	}

	cfg := &Config{
		Protocol:         tc.Protocol,
		Host:             tc.Host,
		Port:             tc.Port,
		ServerContext:    tc.ServerContext,
		TapContext:       tc.TapContext,
		UploadContext:    tc.UploadContext,
		TableEditContext: tc.TableEditContext,
		User:             tc.User,
		Password:         tc.Password,
		Format:           OutputFormat(tc.Format),
		MaxRec:           tc.MaxRec,
		ConnectTimeout:   time.Duration(tc.ConnectTimeout) * time.Second,
		RequestTimeout:   time.Duration(tc.RequestTimeout) * time.Second,
		PollInterval:     time.Duration(tc.PollIntervalMS) * time.Millisecond,
		InsecureMode:     tc.InsecureMode,
	}
	if cfg.Host == "" {
		return nil, ErrEmptyHost
	}
	if cfg.ServerContext == "" {
		return nil, ErrEmptyServerContext
	}
	if tc.LogLevel != "" {
		if err := logger.SetLogLevel(strings.ToLower(tc.LogLevel)); err != nil {
			return nil, fmt.Errorf("parsing client config failed: %w", err)
		}
	}
	if tc.LogPath != "" {
		file, err := os.OpenFile(tc.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file failed: %w", err)
		}
		logger.SetOutput(file)
	}
	fillMissingConfigParameters(cfg)
	return cfg, nil
}

func configDir() (string, error) {
	if dir := os.Getenv(envConfigHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("cannot determine home directory for client configuration")
	}
	return path.Join(home, ".gotap"), nil
}
