package httputil

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestClientDeadlinesPerCallShape(t *testing.T) {
	testCases := []struct {
		name   string
		client func() *http.Client
		want   time.Duration
	}{
		{"ping", PingClient, 5 * time.Second},
		{"callback", CallbackClient, 30 * time.Second},
		{"export", ExportClient, 60 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.client().Timeout; got != tc.want {
				t.Errorf("want deadline %v, got %v", tc.want, got)
			}
		})
	}
}

func TestClientsAreSingletons(t *testing.T) {
	if CallbackClient() != CallbackClient() {
		t.Error("repeated calls must return the same client")
	}
	if PingClient() == ExportClient() {
		t.Error("different call shapes must not share a deadline")
	}
}

func TestClientsShareOneConnectionPool(t *testing.T) {
	if PingClient().Transport != CallbackClient().Transport ||
		CallbackClient().Transport != ExportClient().Transport {
		t.Error("all outbound clients must share one transport")
	}
}

func TestReadErrorBody(t *testing.T) {
	small, err := ReadErrorBody(strings.NewReader("payload rejected"))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(small) != "payload rejected" {
		t.Errorf("short body must come through intact, got %q", small)
	}

	// Oversized rejection bodies are capped at 1MB.
	large, err := ReadErrorBody(strings.NewReader(strings.Repeat("x", 2*1024*1024)))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(large) != 1024*1024 {
		t.Errorf("want 1MB cap, got %d bytes", len(large))
	}
}

type trackingReader struct {
	io.Reader
	fullyRead bool
}

func (r *trackingReader) Read(p []byte) (n int, err error) {
	n, err = r.Reader.Read(p)
	if err == io.EOF {
		r.fullyRead = true
	}
	return
}

func TestDrainAndCloseDrainsFully(t *testing.T) {
	r := &trackingReader{Reader: bytes.NewReader([]byte("leftover response bytes"))}
	DrainAndClose(io.NopCloser(r))
	if !r.fullyRead {
		t.Error("body must be fully drained so the connection is reusable")
	}
}

func TestDrainAndCloseNilBody(t *testing.T) {
	DrainAndClose(nil)
}
