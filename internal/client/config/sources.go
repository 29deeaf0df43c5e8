package config

import (
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/emoticons/internal/flagx"
)

type jsonConfig struct {
	ServerURL             *string `json:"server_url"`
	RequestTimeoutSeconds *int    `json:"request_timeout_seconds"`
}

// parseJson overlays Config with values from the file named by -c/-config.
// Keys missing from the file keep their current values. Read or unmarshal
// errors panic.
func parseJson(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.RequestTimeoutSeconds != nil {
		cfg.RequestTimeout = time.Duration(*jc.RequestTimeoutSeconds) * time.Second
	}
}

type envConfig struct {
	ServerURL      string        `env:"EMOTICONS_SERVER_URL"`
	RequestTimeout time.Duration `env:"EMOTICONS_REQUEST_TIMEOUT"`
}

// parseEnv overlays non-empty environment variables.
func parseEnv(cfg *Config) {
	ec := envConfig{ServerURL: cfg.ServerURL, RequestTimeout: cfg.RequestTimeout}
	if err := env.Parse(&ec); err != nil {
		panic(err)
	}
	cfg.ServerURL = ec.ServerURL
	cfg.RequestTimeout = ec.RequestTimeout
}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the server
//	-t int      request timeout in seconds
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the server")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
