package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// JournalDriver names the database/sql driver used for the session journal.
type JournalDriver string

const (
	JournalNone   JournalDriver = ""
	JournalSQLite JournalDriver = "sqlite3"
	JournalMySQL  JournalDriver = "mysql"
)

const (
	DefaultBindAddress      = "0.0.0.0"
	DefaultBindPort         = 9000
	DefaultHealthServerPort = "8080"
)

// Config holds all application configuration.
type Config struct {
	// Core
	Debug     bool   `yaml:"debug"`
	LogFormat string `yaml:"log_format"`

	// Echo endpoint
	BindAddress string `yaml:"bind_address"`
	BindPort    uint16 `yaml:"bind_port"`

	// Health server; empty disables it
	HealthServerPort string `yaml:"health_server_port"`

	// Session journal
	JournalDriver JournalDriver `yaml:"journal_driver"`
	JournalDSN    string        `yaml:"journal_dsn"`

	// Accept error log lines per second
	AcceptErrorLogRate float64 `yaml:"accept_error_log_rate"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogFormat:          "text",
		BindAddress:        DefaultBindAddress,
		BindPort:           DefaultBindPort,
		HealthServerPort:   DefaultHealthServerPort,
		AcceptErrorLogRate: 1,
	}
}

// LoadFromEnv loads configuration for the running process: defaults, then the
// optional ECHO_CONFIG_FILE, then environment variables, then os.Args.
func LoadFromEnv() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds a Config from defaults, config file, environment and the given
// command line arguments. Positional arguments are [bind-address [bind-port]].
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("xecho", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: xecho [flags] [bind-address [bind-port]]\n")
		fs.PrintDefaults()
	}
	configFile := fs.String("config", os.Getenv("ECHO_CONFIG_FILE"), "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()
	if *configFile != "" {
		if err := cfg.loadFile(*configFile); err != nil {
			return nil, err
		}
	}

	var errs field.ErrorList
	errs = append(errs, cfg.applyEnv()...)
	errs = append(errs, cfg.applyArgs(fs.Args())...)
	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, errs.ToAggregate()
	}

	return cfg, nil
}

// Addr returns the host:port the echo listener binds to.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(int(c.BindPort)))
}

// HealthAddr returns the health server listen address, or "" when disabled.
func (c *Config) HealthAddr() string {
	if c.HealthServerPort == "" {
		return ""
	}
	return ":" + c.HealthServerPort
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() field.ErrorList {
	var errs field.ErrorList

	c.Debug = getEnvBool("DEBUG", c.Debug)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.BindAddress = getEnv("BIND_ADDRESS", c.BindAddress)
	if v := getEnv("BIND_PORT", ""); v != "" {
		port, err := parsePort(v)
		if err != nil {
			errs = append(errs, field.Invalid(field.NewPath("env", "BIND_PORT"), v, err.Error()))
		} else {
			c.BindPort = port
		}
	}
	// An explicitly empty HEALTH_SERVER_PORT disables the health server.
	if v, ok := os.LookupEnv("HEALTH_SERVER_PORT"); ok {
		c.HealthServerPort = strings.TrimSpace(v)
	}
	c.JournalDriver = JournalDriver(strings.ToLower(getEnv("JOURNAL_DRIVER", string(c.JournalDriver))))
	c.JournalDSN = getEnv("JOURNAL_DSN", c.JournalDSN)
	c.AcceptErrorLogRate = getEnvFloat("ACCEPT_ERROR_LOG_RATE", c.AcceptErrorLogRate)

	return errs
}

func (c *Config) applyArgs(args []string) field.ErrorList {
	var errs field.ErrorList
	path := field.NewPath("args")

	if len(args) > 2 {
		errs = append(errs, field.TooMany(path, len(args), 2))
	}
	if len(args) >= 1 {
		c.BindAddress = args[0]
	}
	if len(args) >= 2 {
		port, err := parsePort(args[1])
		if err != nil {
			errs = append(errs, field.Invalid(path.Index(1), args[1], err.Error()))
		} else {
			c.BindPort = port
		}
	}
	return errs
}

// validate ensures configuration is coherent.
func (c *Config) validate() field.ErrorList {
	var errs field.ErrorList

	for _, msg := range validation.IsValidIP(c.BindAddress) {
		errs = append(errs, field.Invalid(field.NewPath("bindAddress"), c.BindAddress, msg))
	}

	if c.HealthServerPort != "" {
		port, err := strconv.Atoi(c.HealthServerPort)
		if err != nil {
			errs = append(errs, field.Invalid(field.NewPath("healthServerPort"), c.HealthServerPort, "must be numeric"))
		} else {
			for _, msg := range validation.IsValidPortNum(port) {
				errs = append(errs, field.Invalid(field.NewPath("healthServerPort"), c.HealthServerPort, msg))
			}
		}
	}

	switch c.JournalDriver {
	case JournalNone:
	case JournalSQLite, JournalMySQL:
		if c.JournalDSN == "" {
			errs = append(errs, field.Required(field.NewPath("journalDSN"), "required when a journal driver is set"))
		}
	default:
		errs = append(errs, field.NotSupported(field.NewPath("journalDriver"), string(c.JournalDriver),
			[]string{string(JournalSQLite), string(JournalMySQL)}))
	}

	return errs
}

var errPortRange = errors.New("must be an integer between 0 and 65535")

func parsePort(s string) (uint16, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, errPortRange
	}
	return uint16(n), nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		return defaultValue
	}
	return f
}
