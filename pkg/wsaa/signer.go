package wsaa

import (
	"encoding/base64"
	"fmt"

	"github.com/smallstep/pkcs7"

	"github.com/altafiscal/go-afip/pkg/credential"
)

// Signer produces the base64 CMS/PKCS#7 signed-data blob WSAA consumes.
//
// Two implementations exist: CMSSigner signs in-process, OpenSSLSigner
// shells out to an openssl binary. Both produce the same CMS content;
// the implementation is chosen once at construction, never sniffed at
// runtime.
type Signer interface {
	Sign(tra []byte) (string, error)
}

// SigningError reports a failure to produce the CMS signature: a bad
// certificate or key, a mismatched pair, or an unavailable backend.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string { return "signing ticket request: " + e.Err.Error() }
func (e *SigningError) Unwrap() error { return e.Err }

// CMSSigner signs TRAs in-process with the credential's private key.
type CMSSigner struct {
	cred *credential.Credential
}

// NewCMSSigner creates a CMSSigner for cred.
func NewCMSSigner(cred *credential.Credential) (*CMSSigner, error) {
	if cred == nil {
		return nil, fmt.Errorf("credential is required")
	}
	return &CMSSigner{cred: cred}, nil
}

// Sign wraps tra in a CMS SignedData structure and returns it base64
// encoded, ready for the loginCms in0 parameter.
func (s *CMSSigner) Sign(tra []byte) (string, error) {
	sd, err := pkcs7.NewSignedData(tra)
	if err != nil {
		return "", &SigningError{Err: err}
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)

	if err := sd.AddSigner(s.cred.Certificate, s.cred.Key, pkcs7.SignerInfoConfig{}); err != nil {
		return "", &SigningError{Err: err}
	}

	der, err := sd.Finish()
	if err != nil {
		return "", &SigningError{Err: err}
	}
	return base64.StdEncoding.EncodeToString(der), nil
}
