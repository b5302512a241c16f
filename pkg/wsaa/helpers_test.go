package wsaa

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/altafiscal/go-afip/pkg/credential"
)

func newTestKeyAndCert(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test taxpayer"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}
	return key, der
}

func writeCredentialFiles(t *testing.T, dir string, certDER []byte, keyBlock *pem.Block) (string, string) {
	t.Helper()

	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	if err := os.WriteFile(certPath, certPEM, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(keyBlock), 0o600); err != nil {
		t.Fatal(err)
	}
	return certPath, keyPath
}

// newTestCredential generates a self-signed credential under dir.
func newTestCredential(t *testing.T, dir string) *credential.Credential {
	t.Helper()

	key, certDER := newTestKeyAndCert(t)
	certPath, keyPath := writeCredentialFiles(t, dir, certDER,
		&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	cred, err := credential.Load(certPath, keyPath, "")
	if err != nil {
		t.Fatalf("loading credential: %v", err)
	}
	return cred
}

// newEncryptedTestCredential generates a credential whose key file is
// DEK-Info encrypted with passphrase.
func newEncryptedTestCredential(t *testing.T, dir, passphrase string) *credential.Credential {
	t.Helper()

	key, certDER := newTestKeyAndCert(t)
	block, err := x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY", //nolint:staticcheck // legacy AFIP key files use DEK-Info encryption
		x509.MarshalPKCS1PrivateKey(key), []byte(passphrase), x509.PEMCipherAES256)
	if err != nil {
		t.Fatalf("encrypting key: %v", err)
	}
	certPath, keyPath := writeCredentialFiles(t, dir, certDER, block)

	cred, err := credential.Load(certPath, keyPath, passphrase)
	if err != nil {
		t.Fatalf("loading encrypted credential: %v", err)
	}
	return cred
}

// futureTicket builds a ticket expiring well after now.
func futureTicket(token, sign string) *Ticket {
	return &Ticket{
		Token:          token,
		Sign:           sign,
		ExpirationTime: time.Now().Add(12 * time.Hour).Truncate(time.Second),
	}
}
