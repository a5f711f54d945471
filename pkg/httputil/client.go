// Package httputil provides the gateway's outbound HTTP plumbing: pooled
// clients sized for the calls the gateway actually makes, turn-concurrency
// capping, and the result-callback notifier.
package httputil

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// Deadlines for the three outbound call shapes.
const (
	pingTimeout     = 5 * time.Second  // webhook reachability checks at startup
	callbackTimeout = 30 * time.Second // standard report delivery
	exportTimeout   = 60 * time.Second // reports carrying a full transcript
)

// maxDrainBytes bounds how much of a response body is drained before the
// connection is handed back to the pool.
const maxDrainBytes = 10 * 1024 * 1024

// All outbound calls go through one transport so connections to the webhook
// host are reused across deliveries.
var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

var (
	pingClient     *http.Client
	callbackClient *http.Client
	exportClient   *http.Client
	clientOnce     sync.Once
)

func initClients() {
	pingClient = &http.Client{Timeout: pingTimeout, Transport: sharedTransport}
	callbackClient = &http.Client{Timeout: callbackTimeout, Transport: sharedTransport}
	exportClient = &http.Client{Timeout: exportTimeout, Transport: sharedTransport}
}

// PingClient returns the short-deadline client used to check webhook
// reachability.
func PingClient() *http.Client {
	clientOnce.Do(initClients)
	return pingClient
}

// CallbackClient returns the client used for standard report delivery.
func CallbackClient() *http.Client {
	clientOnce.Do(initClients)
	return callbackClient
}

// ExportClient returns the long-deadline client used for reports large
// enough to carry a full conversation transcript.
func ExportClient() *http.Client {
	clientOnce.Do(initClients)
	return exportClient
}

// ReadErrorBody reads a rejection body for error reporting, capped at 1MB.
func ReadErrorBody(r io.Reader) ([]byte, error) {
	const maxErrorSize = 1 * 1024 * 1024
	return io.ReadAll(io.LimitReader(r, maxErrorSize))
}

// DrainAndClose drains and closes a response body so the underlying
// connection can be reused.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, maxDrainBytes))
		_ = body.Close()
	}
}
