// Package config loads the layered agent configuration: a default JSON
// file in the platform config directory, an optional run-mode overlay,
// then IRONHIVE_-prefixed environment variables on top.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
	"github.com/spf13/viper"
)

const envPrefix = "ironhive"

// DefaultConnectionTimeout bounds the initial TCP connect.
const DefaultConnectionTimeout = 5 * time.Second

// Config is the resolved agent configuration.
type Config struct {
	Addrs                   []string      `mapstructure:"addrs" json:"addrs"`
	ExePath                 string        `mapstructure:"exe_path" json:"exe_path"`
	AgentID                 string        `mapstructure:"agent_id" json:"agent_id"`
	Pass                    string        `mapstructure:"pass" json:"pass,omitempty"`
	Token                   string        `mapstructure:"token" json:"token,omitempty"`
	Nkey                    string        `mapstructure:"nkey" json:"nkey,omitempty"`
	CredentialsFile         string        `mapstructure:"credentials_file" json:"credentials_file,omitempty"`
	RootCertificates        string        `mapstructure:"root_certificates" json:"root_certificates,omitempty"`
	ClientCertificateCert   string        `mapstructure:"client_certificate_cert" json:"client_certificate_cert,omitempty"`
	ClientCertificateKey    string        `mapstructure:"client_certificate_key" json:"client_certificate_key,omitempty"`
	RequireTLS              bool          `mapstructure:"require_tls" json:"require_tls,omitempty"`
	PingInterval            time.Duration `mapstructure:"ping_interval" json:"ping_interval,omitempty"`
	NoEcho                  bool          `mapstructure:"no_echo" json:"no_echo,omitempty"`
	SubscriptionCapacity    int           `mapstructure:"subscription_capacity" json:"subscription_capacity,omitempty"`
	ConnectionTimeout       time.Duration `mapstructure:"connection_timeout" json:"connection_timeout,omitempty"`
	ClientCapacity          int           `mapstructure:"client_capacity" json:"client_capacity,omitempty"`
	IgnoreDiscoveredServers bool          `mapstructure:"ignore_discovered_servers" json:"ignore_discovered_servers,omitempty"`
	RetainServersOrder      bool          `mapstructure:"retain_servers_order" json:"retain_servers_order,omitempty"`
	ReadBufferCapacity      int           `mapstructure:"read_buffer_capacity" json:"read_buffer_capacity,omitempty"`
}

var configKeys = []string{
	"addrs", "exe_path", "agent_id", "pass", "token", "nkey",
	"credentials_file", "root_certificates",
	"client_certificate_cert", "client_certificate_key",
	"require_tls", "ping_interval", "no_echo", "subscription_capacity",
	"connection_timeout", "client_capacity", "ignore_discovered_servers",
	"retain_servers_order", "read_buffer_capacity",
}

// Dir returns the agent's directory under the platform config root.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "ironhive"), nil
}

// DefaultFile is the path of the base configuration file.
func DefaultFile() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "default.json"), nil
}

// Load reads the layered configuration. RUN_MODE selects the overlay
// file (development by default); both files may be absent when the
// environment carries everything.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(dir)
}

// LoadFrom loads the hierarchy rooted at an explicit directory.
func LoadFrom(dir string) (*Config, error) {
	runMode := os.Getenv("RUN_MODE")
	if runMode == "" {
		runMode = "development"
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetConfigFile(filepath.Join(dir, "default.json"))
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read default config: %w", err)
	}

	v.SetConfigFile(filepath.Join(dir, runMode+".json"))
	if err := v.MergeInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s config: %w", runMode, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// NatsOptions translates the configuration into connect options. The
// reconnect delay multiplies a random 2-or-3 second base by the attempt
// count so a fleet of agents does not stampede a recovering broker.
func (c *Config) NatsOptions() ([]nats.Option, error) {
	reconnectBase := time.Duration(2+rand.Intn(2)) * time.Second

	opts := []nats.Option{
		nats.Name(c.AgentID),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.CustomReconnectDelay(func(attempts int) time.Duration {
			return time.Duration(attempts) * reconnectBase
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("[nats] disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Printf("[nats] async error: %v", err)
		}),
	}

	timeout := c.ConnectionTimeout
	if timeout <= 0 {
		timeout = DefaultConnectionTimeout
	}
	opts = append(opts, nats.Timeout(timeout))

	if c.Pass != "" {
		opts = append(opts, nats.UserInfo(c.AgentID, c.Pass))
	}
	if c.Token != "" {
		opts = append(opts, nats.Token(c.Token))
	}
	if c.Nkey != "" {
		kp, err := nkeys.FromSeed([]byte(c.Nkey))
		if err != nil {
			return nil, fmt.Errorf("parse nkey seed: %w", err)
		}
		pub, err := kp.PublicKey()
		if err != nil {
			return nil, fmt.Errorf("nkey public key: %w", err)
		}
		opts = append(opts, nats.Nkey(pub, kp.Sign))
	}
	if c.CredentialsFile != "" {
		opts = append(opts, nats.UserCredentials(c.CredentialsFile))
	}
	if c.RootCertificates != "" {
		opts = append(opts, nats.RootCAs(c.RootCertificates))
	}
	if c.ClientCertificateCert != "" && c.ClientCertificateKey != "" {
		opts = append(opts, nats.ClientCert(c.ClientCertificateCert, c.ClientCertificateKey))
	}
	if c.RequireTLS {
		opts = append(opts, nats.Secure())
	}
	if c.PingInterval > 0 {
		opts = append(opts, nats.PingInterval(c.PingInterval))
	}
	if c.SubscriptionCapacity > 0 {
		opts = append(opts, nats.SyncQueueLen(c.SubscriptionCapacity))
	}
	if c.ReadBufferCapacity > 0 {
		opts = append(opts, nats.ReconnectBufSize(c.ReadBufferCapacity*1024))
	}
	if c.NoEcho {
		opts = append(opts, nats.NoEcho())
	}
	if c.RetainServersOrder {
		opts = append(opts, nats.DontRandomize())
	}
	if c.IgnoreDiscoveredServers {
		// The Go client has no switch for this; announced servers only
		// come into play when the configured ones are unreachable.
		log.Printf("[config] ignore_discovered_servers has no effect with this client")
	}

	return opts, nil
}

// ServerURL joins the configured addresses into one connect string.
func (c *Config) ServerURL() string {
	return strings.Join(c.Addrs, ",")
}

const agentIDLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateAgentID produces the 40-letter random identity a new install
// gets.
func GenerateAgentID() string {
	b := make([]byte, 40)
	for i := range b {
		b[i] = agentIDLetters[rand.Intn(len(agentIDLetters))]
	}
	return string(b)
}
