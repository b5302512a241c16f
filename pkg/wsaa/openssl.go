package wsaa

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/altafiscal/go-afip/pkg/credential"
)

// passphraseEnv hands the key passphrase to the openssl child process
// without exposing it on the command line.
const passphraseEnv = "GO_AFIP_KEY_PASSPHRASE"

// OpenSSLSigner signs TRAs by invoking an external openssl binary.
//
// It exists for environments where the key material cannot be handled by
// the in-process signer (engine-backed keys, FIPS-only deployments). The
// output is the same CMS SignedData a CMSSigner produces; only the
// execution path differs.
type OpenSSLSigner struct {
	cred       *credential.Credential
	binary     string
	passphrase string
	timeout    time.Duration
}

// NewOpenSSLSigner creates a signer that shells out to binary (usually
// "openssl"). The credential's cert and key paths must point at readable
// PEM files; an encrypted key requires passphrase, which is passed to
// openssl via the environment.
func NewOpenSSLSigner(cred *credential.Credential, binary, passphrase string) (*OpenSSLSigner, error) {
	if cred == nil {
		return nil, fmt.Errorf("credential is required")
	}
	if keyPEM, err := os.ReadFile(cred.KeyPath); err == nil {
		if credential.KeyIsEncrypted(keyPEM) && passphrase == "" {
			return nil, &SigningError{Err: fmt.Errorf("key %s is encrypted and no passphrase was supplied", cred.KeyPath)}
		}
	}
	if binary == "" {
		binary = "openssl"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, &SigningError{Err: fmt.Errorf("openssl binary not available: %w", err)}
	}
	return &OpenSSLSigner{cred: cred, binary: binary, passphrase: passphrase, timeout: 30 * time.Second}, nil
}

func (s *OpenSSLSigner) args() []string {
	args := []string{"smime", "-sign",
		"-signer", s.cred.CertPath,
		"-inkey", s.cred.KeyPath,
		"-outform", "DER",
		"-nodetach",
	}
	if s.passphrase != "" {
		args = append(args, "-passin", "env:"+passphraseEnv)
	}
	return args
}

// Sign pipes tra through `openssl smime -sign` requesting DER output and
// returns it base64 encoded.
func (s *OpenSSLSigner) Sign(tra []byte) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.binary, s.args()...)
	cmd.Stdin = bytes.NewReader(tra)
	if s.passphrase != "" {
		cmd.Env = append(os.Environ(), passphraseEnv+"="+s.passphrase)
	}

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &SigningError{Err: fmt.Errorf("openssl smime: %w: %s", err, stderr.String())}
	}
	return base64.StdEncoding.EncodeToString(out.Bytes()), nil
}
