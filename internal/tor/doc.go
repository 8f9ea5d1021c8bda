// Package tor routes crawls of .onion sites through the Tor network.
//
// A Client wraps a SOCKS5 proxy (an external Tor daemon or the embedded
// one started by EmbeddedTor) and builds HTTP clients that dial through it.
// Client.Check performs a SOCKS5 handshake against the proxy and is used
// as the page fetcher's setup check, so a crawl fails before any work
// starts when Tor is not reachable.
//
// Seeds on .onion hosts are validated with ValidateOnionHost, which
// verifies the v3 address checksum.
package tor
