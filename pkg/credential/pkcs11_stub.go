//go:build !pkcs11

// Stub for PKCS#11 when not compiled with the pkcs11 tag.
package credential

import "errors"

// PKCS11Config locates a signing key on a PKCS#11 token.
type PKCS11Config struct {
	ModulePath string
	TokenLabel string
	PIN        string
	KeyLabel   string
	CertPath   string
}

// ErrPKCS11NotSupported is returned when PKCS#11 credentials are requested
// but the binary was not compiled with PKCS#11 support.
var ErrPKCS11NotSupported = errors.New("PKCS#11 support not compiled in (build with -tags pkcs11)")

// LoadPKCS11 returns an error because PKCS#11 is not compiled in.
func LoadPKCS11(cfg *PKCS11Config) (*Credential, error) {
	return nil, ErrPKCS11NotSupported
}
