package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrInvalidIDLength      = errors.New("session id length must be between 1 and 32")
	ErrInvalidMaxAttempts   = errors.New("session max attempts must be greater than 0")
	ErrInvalidServiceType   = errors.New("discovery service type must look like _name._tcp")
	ErrInvalidDomain        = errors.New("discovery domain must be set")
	ErrInvalidPrefix        = errors.New("discovery instance prefix must be set")
	ErrInvalidProbe         = errors.New("discovery collision probe must not be negative")
	ErrInvalidResolveWait   = errors.New("discovery resolve timeout must not be negative")
	ErrInvalidBufferSize    = errors.New("transfer buffer size must be greater than 0")
	ErrInvalidLingerTimeout = errors.New("transfer linger timeout must not be negative")
)

// Config holds all application configuration
type Config struct {
	Session   SessionConfig   `mapstructure:"session"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Transfer  TransferConfig  `mapstructure:"transfer"`
}

// SessionConfig controls session id generation
type SessionConfig struct {
	IDLength    int `mapstructure:"id_length"`
	MaxAttempts int `mapstructure:"max_attempts"` // re-rolls allowed on id collision
}

// DiscoveryConfig holds mDNS/DNS-SD settings
type DiscoveryConfig struct {
	ServiceType    string        `mapstructure:"service_type"`
	Domain         string        `mapstructure:"domain"`
	InstancePrefix string        `mapstructure:"instance_prefix"`
	Interfaces     []string      `mapstructure:"interfaces"`      // empty means all multicast interfaces
	CollisionProbe time.Duration `mapstructure:"collision_probe"` // 0 disables the probe
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"` // 0 waits forever
}

// TransferConfig holds stream settings
type TransferConfig struct {
	BufferSize    int           `mapstructure:"buffer_size"`
	LingerTimeout time.Duration `mapstructure:"linger_timeout"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			IDLength:    5,
			MaxAttempts: 3,
		},
		Discovery: DiscoveryConfig{
			ServiceType:    "_http._tcp",
			Domain:         "local.",
			InstancePrefix: "Local File Transfer: ",
			CollisionProbe: 1500 * time.Millisecond,
			ResolveTimeout: 0,
		},
		Transfer: TransferConfig{
			BufferSize:    32 * 1024, // 32 KB chunks
			LingerTimeout: 5 * time.Second,
		},
	}
}

// SetDefaults registers every default value on v so that env vars and config files can override them
func SetDefaults(v *viper.Viper) {
	d := NewDefaultConfig()
	v.SetDefault("session.id_length", d.Session.IDLength)
	v.SetDefault("session.max_attempts", d.Session.MaxAttempts)
	v.SetDefault("discovery.service_type", d.Discovery.ServiceType)
	v.SetDefault("discovery.domain", d.Discovery.Domain)
	v.SetDefault("discovery.instance_prefix", d.Discovery.InstancePrefix)
	v.SetDefault("discovery.interfaces", []string{})
	v.SetDefault("discovery.collision_probe", d.Discovery.CollisionProbe)
	v.SetDefault("discovery.resolve_timeout", d.Discovery.ResolveTimeout)
	v.SetDefault("transfer.buffer_size", d.Transfer.BufferSize)
	v.SetDefault("transfer.linger_timeout", d.Transfer.LingerTimeout)
}

// Load builds a validated Config from v
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	if c.Session.IDLength <= 0 || c.Session.IDLength > 32 {
		return ErrInvalidIDLength
	}
	if c.Session.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if !strings.HasPrefix(c.Discovery.ServiceType, "_") ||
		!(strings.HasSuffix(c.Discovery.ServiceType, "._tcp") || strings.HasSuffix(c.Discovery.ServiceType, "._udp")) {
		return ErrInvalidServiceType
	}
	if c.Discovery.Domain == "" {
		return ErrInvalidDomain
	}
	if c.Discovery.InstancePrefix == "" {
		return ErrInvalidPrefix
	}
	if c.Discovery.CollisionProbe < 0 {
		return ErrInvalidProbe
	}
	if c.Discovery.ResolveTimeout < 0 {
		return ErrInvalidResolveWait
	}
	if c.Transfer.BufferSize <= 0 {
		return ErrInvalidBufferSize
	}
	if c.Transfer.LingerTimeout < 0 {
		return ErrInvalidLingerTimeout
	}
	return nil
}

// InstanceName is the advertised DNS-SD instance name for a session
func (d DiscoveryConfig) InstanceName(sessionID string) string {
	return d.InstancePrefix + sessionID
}
