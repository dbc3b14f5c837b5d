package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string
	CredentialsB64  string
	CredentialsJSON string
	DefaultSheetID  string
	APISecret       string
	SlackWebhookURL string
	RateLimit       int
	RateWindow      time.Duration
	Debug           bool
}

// ParseFlags builds the configuration from command-line flags, falling
// back to environment variables (a local .env file is honored in dev).
// Secrets are expected to come from the environment.
func ParseFlags(args []string) (cfg Config, err error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("sheetsink", flag.ContinueOnError)

	var host string
	fs.StringVar(&host, "host", "0.0.0.0", "listen host name")
	var port uint
	fs.UintVar(&port, "port", 0, "listen port number (default $PORT or 8080)")
	fs.StringVar(&cfg.DefaultSheetID, "sheet-id", "", "fallback spreadsheet ID (default $DEFAULT_SHEET_ID)")
	fs.StringVar(&cfg.APISecret, "api-secret", "", "shared bearer secret (prefer $API_SECRET)")
	var window uint
	fs.UintVar(&window, "rate-window", 60, "rate limit window in seconds")
	fs.IntVar(&cfg.RateLimit, "rate-limit", 10, "max requests per client per window")
	fs.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")

	if err = fs.Parse(args); err != nil {
		return
	}

	if port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			p, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			port = uint(p)
		} else {
			port = 8080
		}
	}
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.RateWindow = time.Duration(window) * time.Second

	if cfg.DefaultSheetID == "" {
		cfg.DefaultSheetID = os.Getenv("DEFAULT_SHEET_ID")
	}
	if cfg.APISecret == "" {
		cfg.APISecret = os.Getenv("API_SECRET")
	}
	if !cfg.Debug {
		cfg.Debug = os.Getenv("DEBUG") == "true"
	}

	cfg.CredentialsB64 = os.Getenv("GOOGLE_CREDENTIALS_B64")
	cfg.CredentialsJSON = os.Getenv("GOOGLE_CREDENTIALS_JSON")
	cfg.SlackWebhookURL = os.Getenv("SLACK_WEBHOOK_URL")

	if cfg.APISecret == "" {
		err = errors.New("missing parameter -api-secret (or $API_SECRET)")
	}

	return
}
