// Package credential loads the X.509 certificate and private key a
// taxpayer uses to sign WSAA ticket requests.
//
// Credentials are loaded once from PEM files and are immutable for the
// process lifetime. The absolute paths of the source files are retained
// because they participate in the ticket cache fingerprint: the same
// service authenticated with a different certificate must never reuse a
// cached ticket.
package credential

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Common errors
var (
	ErrNoPEMData   = errors.New("no PEM block found")
	ErrKeyMismatch = errors.New("private key does not match certificate")
)

// Credential is an X.509 certificate with its private key.
//
// CertPath and KeyPath are absolute; they identify the credential for
// ticket cache fingerprinting.
type Credential struct {
	Certificate *x509.Certificate
	Key         crypto.Signer
	CertPath    string
	KeyPath     string
}

// Load reads a certificate and private key from PEM files. passphrase
// decrypts a legacy-encrypted key PEM block and may be empty for
// unencrypted keys.
func Load(certPath, keyPath, passphrase string) (*Credential, error) {
	absCert, err := filepath.Abs(certPath)
	if err != nil {
		return nil, fmt.Errorf("resolving certificate path: %w", err)
	}
	absKey, err := filepath.Abs(keyPath)
	if err != nil {
		return nil, fmt.Errorf("resolving key path: %w", err)
	}

	certPEM, err := os.ReadFile(absCert)
	if err != nil {
		return nil, fmt.Errorf("reading certificate file: %w", err)
	}
	cert, err := ParseCertificate(certPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing certificate %s: %w", absCert, err)
	}

	keyPEM, err := os.ReadFile(absKey)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	key, err := ParsePrivateKey(keyPEM, passphrase)
	if err != nil {
		return nil, fmt.Errorf("parsing private key %s: %w", absKey, err)
	}

	cred := &Credential{
		Certificate: cert,
		Key:         key,
		CertPath:    absCert,
		KeyPath:     absKey,
	}
	if err := cred.verifyMatch(); err != nil {
		return nil, err
	}
	return cred, nil
}

// verifyMatch confirms the private key belongs to the certificate.
func (c *Credential) verifyMatch() error {
	switch pub := c.Certificate.PublicKey.(type) {
	case *rsa.PublicKey:
		priv, ok := c.Key.Public().(*rsa.PublicKey)
		if !ok || !pub.Equal(priv) {
			return ErrKeyMismatch
		}
	case *ecdsa.PublicKey:
		priv, ok := c.Key.Public().(*ecdsa.PublicKey)
		if !ok || !pub.Equal(priv) {
			return ErrKeyMismatch
		}
	default:
		return fmt.Errorf("unsupported certificate public key type %T", pub)
	}
	return nil
}

// ParseCertificate parses the first CERTIFICATE block in pemData.
func ParseCertificate(pemData []byte) (*x509.Certificate, error) {
	for block, rest := pem.Decode(pemData); block != nil; block, rest = pem.Decode(rest) {
		if block.Type == "CERTIFICATE" {
			return x509.ParseCertificate(block.Bytes)
		}
	}
	return nil, ErrNoPEMData
}

// KeyIsEncrypted reports whether the first PEM block in pemData uses
// legacy DEK-Info encryption and needs a passphrase to decrypt.
func KeyIsEncrypted(pemData []byte) bool {
	block, _ := pem.Decode(pemData)
	return block != nil && x509.IsEncryptedPEMBlock(block) //nolint:staticcheck // legacy AFIP key files use DEK-Info encryption
}

// ParsePrivateKey parses an RSA, EC or PKCS#8 private key PEM block.
// Legacy DEK-Info encrypted blocks are decrypted with passphrase.
func ParsePrivateKey(pemData []byte, passphrase string) (crypto.Signer, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, ErrNoPEMData
	}

	der := block.Bytes
	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck // legacy AFIP key files use DEK-Info encryption
		if passphrase == "" {
			return nil, errors.New("key is encrypted and no passphrase was supplied")
		}
		decrypted, err := x509.DecryptPEMBlock(block, []byte(passphrase)) //nolint:staticcheck
		if err != nil {
			return nil, fmt.Errorf("decrypting key: %w", err)
		}
		der = decrypted
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(der)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(der)
	case "PRIVATE KEY", "ENCRYPTED PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(der)
		if err != nil {
			return nil, err
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("key of type %T cannot sign", key)
		}
		return signer, nil
	default:
		return nil, fmt.Errorf("unsupported key type: %s", block.Type)
	}
}
