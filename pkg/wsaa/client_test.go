package wsaa

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// fakeWSAA serves LoginCms responses and counts the calls it receives.
type fakeWSAA struct {
	calls atomic.Int32
	fail  bool
}

func (f *fakeWSAA) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := f.calls.Add(1)

		if f.fail {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `<?xml version="1.0"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <soapenv:Fault>
      <faultcode>ns1:cms.cert.expired</faultcode>
      <faultstring>Certificado expirado</faultstring>
    </soapenv:Fault>
  </soapenv:Body>
</soapenv:Envelope>`)
			return
		}

		ticketXML := fmt.Sprintf(`<loginTicketResponse><header><expirationTime>%s</expirationTime></header><credentials><token>token-%d</token><sign>sign-%d</sign></credentials></loginTicketResponse>`,
			time.Now().Add(12*time.Hour).Format(time.RFC3339), n, n)

		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		fmt.Fprintf(w, `<?xml version="1.0"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <loginCmsResponse xmlns="http://wsaa.view.sua.dvadac.desein.afip.gov">
      <loginCmsReturn>%s</loginCmsReturn>
    </loginCmsResponse>
  </soapenv:Body>
</soapenv:Envelope>`, escapeXML(ticketXML))
	}
}

func escapeXML(s string) string {
	var buf []byte
	b := &bytesBuffer{buf: buf}
	xml.EscapeText(b, []byte(s))
	return string(b.buf)
}

type bytesBuffer struct{ buf []byte }

func (b *bytesBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func newTestClient(t *testing.T, endpoint, cacheDir string) (*Client, *FileStore) {
	t.Helper()

	cred := newTestCredential(t, t.TempDir())
	client, err := NewClient(&ClientConfig{
		Credential: cred,
		Endpoint:   endpoint,
		CacheDir:   cacheDir,
	})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	store, err := NewFileStore(cacheDir, DefaultTicketTTL)
	if err != nil {
		t.Fatal(err)
	}
	return client, store
}

func TestAuthenticate_FirstCallSignsAndCaches(t *testing.T) {
	fake := &fakeWSAA{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	cacheDir := t.TempDir()
	client, store := newTestClient(t, server.URL, cacheDir)

	ticket, err := client.Authenticate(context.Background(), "wsfe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ticket.Token != "token-1" || ticket.Sign != "sign-1" {
		t.Errorf("unexpected ticket %+v", ticket)
	}
	if got := fake.calls.Load(); got != 1 {
		t.Errorf("expected 1 remote call, got %d", got)
	}

	fp := Fingerprint("wsfe", client.cred)
	if _, err := os.Stat(store.Path(fp)); err != nil {
		t.Errorf("expected cache file: %v", err)
	}
}

func TestAuthenticate_CachedTicketSkipsNetwork(t *testing.T) {
	fake := &fakeWSAA{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client, _ := newTestClient(t, server.URL, t.TempDir())

	first, err := client.Authenticate(context.Background(), "wsfe")
	if err != nil {
		t.Fatal(err)
	}
	second, err := client.Authenticate(context.Background(), "wsfe")
	if err != nil {
		t.Fatal(err)
	}

	if got := fake.calls.Load(); got != 1 {
		t.Errorf("cached ticket must not trigger a network call; got %d calls", got)
	}
	if first.Token != second.Token || first.Sign != second.Sign {
		t.Error("cached ticket differs from the original")
	}
}

func TestAuthenticate_StaleTicketRefreshed(t *testing.T) {
	fake := &fakeWSAA{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	cacheDir := t.TempDir()
	client, store := newTestClient(t, server.URL, cacheDir)

	first, err := client.Authenticate(context.Background(), "wsfe")
	if err != nil {
		t.Fatal(err)
	}

	// Age the cache file past the TTL
	fp := Fingerprint("wsfe", client.cred)
	old := time.Now().Add(-6 * time.Hour)
	if err := os.Chtimes(store.Path(fp), old, old); err != nil {
		t.Fatal(err)
	}

	refreshed, err := client.Authenticate(context.Background(), "wsfe")
	if err != nil {
		t.Fatal(err)
	}

	if got := fake.calls.Load(); got != 2 {
		t.Errorf("expected refresh to call the service, got %d calls", got)
	}
	if refreshed.Token == first.Token || refreshed.Sign == first.Sign {
		t.Error("refreshed ticket must carry new credentials")
	}
}

// Full lifecycle: sign+cache at t=0, reuse at t=1h, refresh at t=6h.
func TestAuthenticate_Lifecycle(t *testing.T) {
	fake := &fakeWSAA{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	cacheDir := t.TempDir()
	client, store := newTestClient(t, server.URL, cacheDir)
	fpPath := func() string { return store.Path(Fingerprint("wsfe", client.cred)) }

	// t=0
	first, err := client.Authenticate(context.Background(), "wsfe")
	if err != nil {
		t.Fatal(err)
	}
	if fake.calls.Load() != 1 {
		t.Fatalf("expected 1 call at t=0, got %d", fake.calls.Load())
	}

	// t=1h: still fresh
	hourAgo := time.Now().Add(-time.Hour)
	if err := os.Chtimes(fpPath(), hourAgo, hourAgo); err != nil {
		t.Fatal(err)
	}
	cached, err := client.Authenticate(context.Background(), "wsfe")
	if err != nil {
		t.Fatal(err)
	}
	if fake.calls.Load() != 1 {
		t.Errorf("expected no call at t=1h, got %d total", fake.calls.Load())
	}
	if cached.Token != first.Token {
		t.Error("expected the cached ticket at t=1h")
	}

	// t=6h: past the 5h TTL
	sixHoursAgo := time.Now().Add(-6 * time.Hour)
	if err := os.Chtimes(fpPath(), sixHoursAgo, sixHoursAgo); err != nil {
		t.Fatal(err)
	}
	fresh, err := client.Authenticate(context.Background(), "wsfe")
	if err != nil {
		t.Fatal(err)
	}
	if fake.calls.Load() != 2 {
		t.Errorf("expected a refresh call at t=6h, got %d total", fake.calls.Load())
	}
	if fresh.Token == first.Token || fresh.Sign == first.Sign {
		t.Error("expected different token and sign after refresh")
	}
}

func TestAuthenticate_RemoteFault(t *testing.T) {
	fake := &fakeWSAA{fail: true}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client, _ := newTestClient(t, server.URL, t.TempDir())

	_, err := client.Authenticate(context.Background(), "wsfe")
	if err == nil {
		t.Fatal("expected error")
	}

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %T: %v", err, err)
	}
	if authErr.FaultCode != "ns1:cms.cert.expired" {
		t.Errorf("unexpected fault code %q", authErr.FaultCode)
	}
	if authErr.FaultMessage != "Certificado expirado" {
		t.Errorf("unexpected fault message %q", authErr.FaultMessage)
	}
}

func TestAuthenticate_CacheWriteFailureIsNonFatal(t *testing.T) {
	fake := &fakeWSAA{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	parent := t.TempDir()
	cacheDir := filepath.Join(parent, "cache")
	client, _ := newTestClient(t, server.URL, cacheDir)

	// Sabotage the cache directory: replace it with a regular file
	if err := os.RemoveAll(cacheDir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cacheDir, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	ticket, err := client.Authenticate(context.Background(), "wsfe")
	if err != nil {
		t.Fatalf("a cache write failure must not fail authentication: %v", err)
	}
	if ticket.Token == "" {
		t.Error("expected a usable in-memory ticket")
	}
}
