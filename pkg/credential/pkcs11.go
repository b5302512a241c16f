//go:build pkcs11

// PKCS#11 credential support for HSM-held signing keys.
package credential

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ThalesGroup/crypto11"
)

// PKCS11Config locates a signing key on a PKCS#11 token. The certificate
// is still read from a PEM file; AFIP distributes it separately from the
// key material.
type PKCS11Config struct {
	// ModulePath is the path to the PKCS#11 library (.so/.dylib/.dll)
	ModulePath string

	// TokenLabel is the token to open
	TokenLabel string

	// PIN is the user PIN for authentication
	PIN string

	// KeyLabel is the label of the private key object
	KeyLabel string

	// CertPath is the PEM certificate file for the key
	CertPath string
}

// LoadPKCS11 builds a Credential whose private key lives on a PKCS#11
// token. The returned KeyPath is a pkcs11: URI so that tickets obtained
// with an HSM key never collide with file-key tickets in the cache.
func LoadPKCS11(cfg *PKCS11Config) (*Credential, error) {
	ctx, err := crypto11.Configure(&crypto11.Config{
		Path:       cfg.ModulePath,
		TokenLabel: cfg.TokenLabel,
		Pin:        cfg.PIN,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring PKCS#11: %w", err)
	}

	key, err := ctx.FindKeyPair(nil, []byte(cfg.KeyLabel))
	if err != nil {
		return nil, fmt.Errorf("finding key %q: %w", cfg.KeyLabel, err)
	}
	if key == nil {
		return nil, fmt.Errorf("key %q not found on token %q", cfg.KeyLabel, cfg.TokenLabel)
	}

	absCert, err := filepath.Abs(cfg.CertPath)
	if err != nil {
		return nil, fmt.Errorf("resolving certificate path: %w", err)
	}
	certPEM, err := os.ReadFile(absCert)
	if err != nil {
		return nil, fmt.Errorf("reading certificate file: %w", err)
	}
	cert, err := ParseCertificate(certPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing certificate %s: %w", absCert, err)
	}

	cred := &Credential{
		Certificate: cert,
		Key:         key,
		CertPath:    absCert,
		KeyPath:     fmt.Sprintf("pkcs11:token=%s;object=%s", cfg.TokenLabel, cfg.KeyLabel),
	}
	if err := cred.verifyMatch(); err != nil {
		return nil, err
	}
	return cred, nil
}
