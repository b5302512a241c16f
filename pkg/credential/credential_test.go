package credential

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
)

// writeTestPEMs generates a self-signed cert/key pair and writes them to
// dir, returning the file paths.
func writeTestPEMs(t *testing.T, dir string) (certPath, keyPath string, key *rsa.PrivateKey) {
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

	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	if err := os.WriteFile(certPath, certPEM, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		t.Fatal(err)
	}
	return certPath, keyPath, key
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath, _ := writeTestPEMs(t, dir)

	cred, err := Load(certPath, keyPath, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cred.Certificate.Subject.CommonName != "test taxpayer" {
		t.Errorf("unexpected subject: %s", cred.Certificate.Subject.CommonName)
	}
	if !filepath.IsAbs(cred.CertPath) || !filepath.IsAbs(cred.KeyPath) {
		t.Error("expected absolute cert and key paths")
	}
}

func TestLoad_KeyMismatch(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	certPath, _, _ := writeTestPEMs(t, dirA)
	_, otherKeyPath, _ := writeTestPEMs(t, dirB)

	_, err := Load(certPath, otherKeyPath, "")
	if err != ErrKeyMismatch {
		t.Fatalf("expected ErrKeyMismatch, got %v", err)
	}
}

func TestLoad_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath, _ := writeTestPEMs(t, dir)

	if _, err := Load(filepath.Join(dir, "nope.pem"), keyPath, ""); err == nil {
		t.Error("expected error for missing certificate")
	}
	if _, err := Load(certPath, filepath.Join(dir, "nope.pem"), ""); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestParsePrivateKey_NotPEM(t *testing.T) {
	if _, err := ParsePrivateKey([]byte("not pem data"), ""); err != ErrNoPEMData {
		t.Fatalf("expected ErrNoPEMData, got %v", err)
	}
}

func TestParseCertificate_SkipsNonCertBlocks(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath, _ := writeTestPEMs(t, dir)

	keyPEM, _ := os.ReadFile(keyPath)
	certPEM, _ := os.ReadFile(certPath)

	// Bundles sometimes carry the key first
	cert, err := ParseCertificate(append(keyPEM, certPEM...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cert.Subject.CommonName != "test taxpayer" {
		t.Errorf("unexpected subject: %s", cert.Subject.CommonName)
	}
}
