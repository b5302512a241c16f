// Package config handles configuration loading for AFIP clients.
//
// Configuration is loaded from a YAML file with support for environment
// variable expansion (${VAR} or $VAR syntax), so passphrases and paths
// can be injected at runtime. Nothing is hard-coded: certificate and key
// paths, endpoints, the ticket cache location and the per-service
// duplicate-submission codes all come from here.
//
// # Example Configuration
//
//	credential:
//	  certFile: /etc/afip/cert.pem
//	  keyFile: /etc/afip/key.pem
//	  passphrase: ${AFIP_KEY_PASSPHRASE}
//
//	signer:
//	  mode: cms            # cms, openssl or pkcs11
//
//	wsaa:
//	  endpoint: https://wsaahomo.afip.gov.ar/ws/services/LoginCms
//	  cacheDir: /var/cache/afip
//	  ticketTTL: 5h
//
//	services:
//	  wsfe:
//	    endpoint: https://wswhomo.afip.gov.ar/wsfev1/service.asmx
//	    cuit: 20111111112
//	    duplicateCodes: [10016, 702, 703]
//
// See [Load] for loading configuration from a file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure
type Config struct {
	Credential CredentialConfig         `yaml:"credential"`
	Signer     SignerConfig             `yaml:"signer"`
	WSAA       WSAAConfig               `yaml:"wsaa"`
	Services   map[string]ServiceConfig `yaml:"services"`
	Timeout    time.Duration            `yaml:"timeout"`
}

// CredentialConfig locates the taxpayer certificate and key
type CredentialConfig struct {
	CertFile   string `yaml:"certFile"`
	KeyFile    string `yaml:"keyFile"`
	Passphrase string `yaml:"passphrase"`
}

// SignerConfig selects the CMS signing implementation
type SignerConfig struct {
	// Mode determines how ticket requests are signed
	// - "cms": in-process CMS signing (default)
	// - "openssl": external openssl binary
	// - "pkcs11": key held on a PKCS#11 token (build with -tags pkcs11)
	Mode string `yaml:"mode"`

	// OpenSSLPath overrides the openssl binary for mode "openssl"
	OpenSSLPath string `yaml:"opensslPath"`

	// PKCS11 settings for mode "pkcs11"
	PKCS11 PKCS11Config `yaml:"pkcs11"`
}

// PKCS11Config holds PKCS#11 token settings
type PKCS11Config struct {
	ModulePath string `yaml:"modulePath"`
	TokenLabel string `yaml:"tokenLabel"`
	PIN        string `yaml:"pin"`
	KeyLabel   string `yaml:"keyLabel"`
}

// WSAAConfig holds authentication service settings
type WSAAConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	CacheDir  string        `yaml:"cacheDir"`
	TicketTTL time.Duration `yaml:"ticketTTL"`
}

// ServiceConfig holds settings for one fiscal web service
type ServiceConfig struct {
	Endpoint string `yaml:"endpoint"`
	CUIT     int64  `yaml:"cuit"`

	// DuplicateCodes are the service's "number already processed" error
	// codes. AFIP does not document them as stable, so they are
	// configuration rather than constants.
	DuplicateCodes []int `yaml:"duplicateCodes"`

	// NotFoundCodes mark "no such document" on consult operations
	NotFoundCodes []int `yaml:"notFoundCodes"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Signer.Mode == "" {
		c.Signer.Mode = "cms"
	}
	if c.WSAA.TicketTTL == 0 {
		c.WSAA.TicketTTL = 5 * time.Hour
	}
	if c.WSAA.CacheDir == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			c.WSAA.CacheDir = filepath.Join(dir, "afip")
		}
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

func (c *Config) validate() error {
	switch c.Signer.Mode {
	case "cms", "openssl", "pkcs11":
		// Valid modes
	default:
		return fmt.Errorf("signer.mode must be 'cms', 'openssl' or 'pkcs11', got '%s'", c.Signer.Mode)
	}

	if c.Signer.Mode == "pkcs11" {
		if c.Signer.PKCS11.ModulePath == "" {
			return fmt.Errorf("signer.pkcs11.modulePath is required when mode is 'pkcs11'")
		}
	} else {
		if c.Credential.CertFile == "" {
			return fmt.Errorf("credential.certFile is required")
		}
		if c.Credential.KeyFile == "" {
			return fmt.Errorf("credential.keyFile is required")
		}
	}

	if c.WSAA.Endpoint == "" {
		return fmt.Errorf("wsaa.endpoint is required")
	}

	for name, svc := range c.Services {
		if svc.Endpoint == "" {
			return fmt.Errorf("services.%s.endpoint is required", name)
		}
		if svc.CUIT == 0 {
			return fmt.Errorf("services.%s.cuit is required", name)
		}
	}

	return nil
}
