package tor

import "errors"

// Tor connectivity errors.
//
// Design decision: We return distinct sentinels per failure mode so the
// CLI can tell the user whether Tor is missing, slow, or something else is
// listening on the port.
var (
	// ErrProxyNotTor is returned when the proxy answers but is not a
	// SOCKS5 proxy accepting unauthenticated connections.
	ErrProxyNotTor = errors.New("proxy is not a Tor SOCKS5 proxy")

	// ErrProxyCannotConnect is returned when no TCP connection to the proxy
	// can be made. Tor is usually not running.
	ErrProxyCannotConnect = errors.New("cannot connect to Tor proxy")

	// ErrProxyTimeout is returned when the proxy does not answer in time.
	ErrProxyTimeout = errors.New("timeout connecting to Tor proxy")

	// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrTorRequired is returned when an onion seed is crawled without Tor.
	ErrTorRequired = errors.New("onion sites can only be crawled through Tor (use --tor or --tor-proxy)")

	// ErrDaemonNotRunning is returned when the embedded daemon is used before Start.
	ErrDaemonNotRunning = errors.New("embedded Tor daemon is not running")
)

// ProxyStatus is the result of checking the Tor proxy.
type ProxyStatus int

const (
	// ProxyStatusOK indicates a working Tor SOCKS5 proxy.
	ProxyStatusOK ProxyStatus = iota

	// ProxyStatusWrongType indicates that something other than Tor answered.
	ProxyStatusWrongType

	// ProxyStatusCannotConnect indicates that no connection could be made.
	ProxyStatusCannotConnect

	// ProxyStatusTimeout indicates that the proxy did not answer in time.
	ProxyStatusTimeout
)

// String returns a human-readable description of the proxy status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusWrongType:
		return "wrong type (not Tor)"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error returns the sentinel error for this status, or nil if OK.
func (s ProxyStatus) Error() error {
	switch s {
	case ProxyStatusOK:
		return nil
	case ProxyStatusWrongType:
		return ErrProxyNotTor
	case ProxyStatusCannotConnect:
		return ErrProxyCannotConnect
	case ProxyStatusTimeout:
		return ErrProxyTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
