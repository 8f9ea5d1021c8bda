package tor

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultProxyAddress is the SOCKS port of a locally installed Tor daemon.
const DefaultProxyAddress = "127.0.0.1:9050"

// checkProxyTimeout bounds the SOCKS5 handshake performed by Check.
// It is a connectivity check, not a request through Tor.
const checkProxyTimeout = 2 * time.Second

// Client provides HTTP connectivity through a Tor SOCKS5 proxy.
//
// Design decision: We don't connect to the proxy in NewClient because:
//  1. The client can be built before the embedded daemon is ready
//  2. Object creation stays separate from network operations
//  3. The crawler decides when the setup check runs (fetcher Start)
type Client struct {
	// proxyAddress is the Tor SOCKS5 proxy address in "host:port" format.
	proxyAddress string

	// dialer is the SOCKS5 dialer for Tor connections.
	dialer proxy.Dialer

	// timeout is the overall timeout of HTTP clients built by this client.
	timeout time.Duration
}

// NewClient creates a Tor client for the proxy at proxyAddress.
// The address must be in "host:port" format (e.g., "127.0.0.1:9050").
func NewClient(proxyAddress string, timeout time.Duration) (*Client, error) {
	if !isValidProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	// Tor's SOCKS port does not require authentication.
	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	return &Client{
		proxyAddress: proxyAddress,
		dialer:       dialer,
		timeout:      timeout,
	}, nil
}

// isValidProxyAddress checks for a non-empty host and a port in 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" || port == "" {
		return false
	}
	for _, c := range port {
		if c < '0' || c > '9' {
			return false
		}
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// ProxyAddress returns the configured proxy address.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// SOCKS5 protocol constants
const (
	socks5Version       = 0x05
	socks5AuthNone      = 0x00
	socks5CmdConnect    = 0x01
	socks5AddrTypeDomID = 0x03

	// socks5ProbeHost is a syntactically valid, non-existent onion host.
	// Only the proxy's answer to CONNECT matters, not whether it succeeds.
	socks5ProbeHost = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.onion"
	socks5ProbePort = 80
)

// Check verifies the proxy and returns nil when it behaves like Tor.
// The returned error is one of the ErrProxy sentinels.
func (c *Client) Check(ctx context.Context) error {
	return c.CheckConnection(ctx).Error()
}

// CheckConnection performs a SOCKS5 handshake with the proxy and reports
// its status.
//
// The check verifies that:
//  1. The proxy speaks SOCKS5
//  2. It accepts connections without authentication
//  3. It answers a CONNECT request for a .onion host
//
// A fake proxy cannot pass it just by returning a canned string.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	if status := negotiateNoAuth(conn); status != ProxyStatusOK {
		return status
	}
	return probeConnect(conn)
}

// negotiateNoAuth offers the "no authentication" method and expects the
// proxy to select it.
func negotiateNoAuth(conn net.Conn) ProxyStatus {
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	reply := make([]byte, 2)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return readFailureStatus(err)
	}
	if reply[0] != socks5Version || reply[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

// probeConnect sends a CONNECT request for the probe host. Any SOCKS5
// reply, including host unreachable, proves the proxy processes requests.
func probeConnect(conn net.Conn) ProxyStatus {
	req := []byte{socks5Version, socks5CmdConnect, 0x00, socks5AddrTypeDomID, byte(len(socks5ProbeHost))}
	req = append(req, socks5ProbeHost...)
	req = append(req, byte(socks5ProbePort>>8), byte(socks5ProbePort&0xFF))

	if _, err := conn.Write(req); err != nil {
		return ProxyStatusCannotConnect
	}

	// version + reply + reserved + address type
	reply := make([]byte, 4)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return readFailureStatus(err)
	}
	if reply[0] != socks5Version {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

func readFailureStatus(err error) ProxyStatus {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ProxyStatusTimeout
	}
	// Anything else means the peer did not speak SOCKS5 properly.
	return ProxyStatusWrongType
}

// NewHTTPClient creates an HTTP client that routes every request through
// the Tor proxy.
//
// Design decisions:
//   - TLS verification is disabled because onion services use self-signed certs
//   - A cookie jar keeps session cookies set during the crawl
//   - Redirects are limited to 10
//   - Few idle connections, since every connection holds a Tor circuit
func (c *Client) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: c.dialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // Required for .onion services
		},
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		// Compressed response sizes can leak content over an anonymity network.
		DisableCompression: true,
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// dialContext dials through the SOCKS5 proxy, honoring ctx when the
// dialer supports it.
func (c *Client) dialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}

	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		conn, err := c.dialer.Dial(network, address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case result := <-resultCh:
		return result.conn, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
