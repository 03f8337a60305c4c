package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.Discovery.InstanceName("a1B2c"); got != "Local File Transfer: a1B2c" {
		t.Errorf("unexpected instance name %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero id length", func(c *Config) { c.Session.IDLength = 0 }, ErrInvalidIDLength},
		{"huge id length", func(c *Config) { c.Session.IDLength = 64 }, ErrInvalidIDLength},
		{"no attempts", func(c *Config) { c.Session.MaxAttempts = 0 }, ErrInvalidMaxAttempts},
		{"bad service", func(c *Config) { c.Discovery.ServiceType = "http" }, ErrInvalidServiceType},
		{"no domain", func(c *Config) { c.Discovery.Domain = "" }, ErrInvalidDomain},
		{"no prefix", func(c *Config) { c.Discovery.InstancePrefix = "" }, ErrInvalidPrefix},
		{"negative probe", func(c *Config) { c.Discovery.CollisionProbe = -time.Second }, ErrInvalidProbe},
		{"negative resolve", func(c *Config) { c.Discovery.ResolveTimeout = -time.Second }, ErrInvalidResolveWait},
		{"zero buffer", func(c *Config) { c.Transfer.BufferSize = 0 }, ErrInvalidBufferSize},
		{"negative linger", func(c *Config) { c.Transfer.LingerTimeout = -1 }, ErrInvalidLingerTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := NewDefaultConfig()
	if cfg.Session != want.Session || cfg.Transfer != want.Transfer {
		t.Errorf("loaded %+v, want %+v", cfg, want)
	}
	if cfg.Discovery.CollisionProbe != want.Discovery.CollisionProbe {
		t.Errorf("collision probe = %v", cfg.Discovery.CollisionProbe)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`session:
  id_length: 8
discovery:
  resolve_timeout: 30s
  interfaces: [eth0]
transfer:
  buffer_size: 65536
`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.IDLength != 8 {
		t.Errorf("id length = %d", cfg.Session.IDLength)
	}
	if cfg.Discovery.ResolveTimeout != 30*time.Second {
		t.Errorf("resolve timeout = %v", cfg.Discovery.ResolveTimeout)
	}
	if len(cfg.Discovery.Interfaces) != 1 || cfg.Discovery.Interfaces[0] != "eth0" {
		t.Errorf("interfaces = %v", cfg.Discovery.Interfaces)
	}
	if cfg.Transfer.BufferSize != 65536 {
		t.Errorf("buffer size = %d", cfg.Transfer.BufferSize)
	}
	// untouched keys keep their defaults
	if cfg.Discovery.ServiceType != "_http._tcp" {
		t.Errorf("service type = %q", cfg.Discovery.ServiceType)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	v := viper.New()
	v.Set("transfer.buffer_size", 0)
	if _, err := Load(v); !errors.Is(err, ErrInvalidBufferSize) {
		t.Fatalf("got %v, want %v", err, ErrInvalidBufferSize)
	}
}
