package httputil

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// fingerprintTransport sends requests over TLS connections carrying a Chrome
// ClientHello. It tries HTTP/2 first and falls back to HTTP/1.1 when the
// server does not negotiate h2. Hosts that needed the fallback go straight to
// HTTP/1.1 afterwards, as do requests routed through a proxy.
type fingerprintTransport struct {
	h2    http.RoundTripper
	h1    http.RoundTripper
	proxy func(*http.Request) (*url.URL, error)

	h1Hosts sync.Map // host -> struct{}
}

func newFingerprintTransport(timeout time.Duration) *fingerprintTransport {
	dialer := &net.Dialer{Timeout: timeout}
	return &fingerprintTransport{
		h2: &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dialChrome(ctx, dialer, network, addr, nil)
			},
		},
		h1: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialChrome(ctx, dialer, network, addr, []string{"http/1.1"})
			},
		},
		proxy: http.ProxyFromEnvironment,
	}
}

func (t *fingerprintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" || t.proxied(req) {
		return t.h1.RoundTrip(req)
	}
	if _, ok := t.h1Hosts.Load(req.URL.Host); ok {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	// GET requests have no body to rewind.
	if req.Body != nil && req.Body != http.NoBody {
		return nil, err
	}
	if req.Context().Err() != nil {
		return nil, err
	}
	resp, err = t.h1.RoundTrip(req)
	if err == nil {
		t.h1Hosts.Store(req.URL.Host, struct{}{})
	}
	return resp, err
}

// proxied reports whether the environment routes req through a proxy. The
// h2 transport dials directly, so such requests use h1, which honors it.
func (t *fingerprintTransport) proxied(req *http.Request) bool {
	if t.proxy == nil {
		return false
	}
	u, err := t.proxy(req)
	return err == nil && u != nil
}

// dialChrome opens a TLS connection with the HelloChrome_120 fingerprint.
// nextProtos restricts ALPN; nil keeps Chrome's own (h2, http/1.1).
func dialChrome(ctx context.Context, dialer *net.Dialer, network, addr string, nextProtos []string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
		NextProtos: nextProtos,
	}, utls.HelloChrome_120)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	if nextProtos == nil && tlsConn.ConnectionState().NegotiatedProtocol != http2.NextProtoTLS {
		tlsConn.Close()
		return nil, fmt.Errorf("%s did not negotiate h2", addr)
	}
	return tlsConn, nil
}
