package tor

import (
	"encoding/base32"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Onion address constants.
const (
	// OnionSuffix is the common suffix for all onion hosts.
	OnionSuffix = ".onion"

	// onionV3Version is the version byte of v3 addresses.
	onionV3Version = 0x03
)

// Onion address validation errors.
var (
	// ErrInvalidOnionAddress is returned for a malformed onion host or a bad checksum.
	ErrInvalidOnionAddress = errors.New("invalid onion address")

	// ErrV2AddressDeprecated is returned for v2 hosts, which stopped working in October 2021.
	ErrV2AddressDeprecated = errors.New("v2 onion addresses are deprecated and no longer functional")
)

// onionV3Pattern matches a v3 service label: 56 base32 characters.
// Base32 uses a-z and 2-7.
var onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}$`)

// onionV2Pattern matches a v2 service label: 16 base32 characters.
var onionV2Pattern = regexp.MustCompile(`^[a-z2-7]{16}$`)

// checksumPrefix is the prefix hashed into the v3 address checksum.
var checksumPrefix = []byte(".onion checksum")

// IsOnionHost reports whether host (with or without port) is an onion host.
func IsOnionHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(stripPort(host)), OnionSuffix)
}

// ValidateOnionHost checks an onion host taken from a seed URL.
// Subdomains of a service ("www.<service>.onion") are accepted; the
// service label must be a v3 address with a valid checksum.
func ValidateOnionHost(host string) error {
	host = strings.ToLower(stripPort(host))
	labels := strings.Split(strings.TrimSuffix(host, OnionSuffix), ".")
	service := labels[len(labels)-1]

	switch {
	case onionV2Pattern.MatchString(service):
		return ErrV2AddressDeprecated
	case !IsValidV3Address(service + OnionSuffix):
		return ErrInvalidOnionAddress
	}
	return nil
}

// IsValidV3Address checks if address is a valid v3 onion address,
// including the checksum. The address must include the ".onion" suffix.
//
// Design decision: We verify the checksum rather than just the pattern
// because:
//  1. It catches typos before a slow Tor connection is attempted
//  2. It matches what Tor itself does when connecting
func IsValidV3Address(address string) bool {
	address = strings.ToLower(address)
	label, ok := strings.CutSuffix(address, OnionSuffix)
	if !ok || !onionV3Pattern.MatchString(label) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(label))
	if err != nil || len(decoded) != 35 {
		return false
	}

	// 32 bytes ed25519 public key, 2 bytes checksum, 1 byte version
	pubkey, checksum, version := decoded[:32], decoded[32:34], decoded[34]
	if version != onionV3Version {
		return false
	}

	expected := computeV3Checksum(pubkey, version)
	return checksum[0] == expected[0] && checksum[1] == expected[1]
}

// computeV3Checksum returns the first 2 bytes of
// SHA3-256(".onion checksum" || pubkey || version).
func computeV3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)

	hash := sha3.Sum256(data)
	return hash[:2]
}

// v3AddressFromPublicKey builds the v3 onion address of an ed25519 public key.
func v3AddressFromPublicKey(pubkey []byte) (string, error) {
	if len(pubkey) != 32 {
		return "", ErrInvalidOnionAddress
	}

	data := make([]byte, 35)
	copy(data[:32], pubkey)
	copy(data[32:34], computeV3Checksum(pubkey, onionV3Version))
	data[34] = onionV3Version

	return strings.ToLower(base32.StdEncoding.EncodeToString(data)) + OnionSuffix, nil
}

func stripPort(host string) string {
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i:], "]") {
		return host[:i]
	}
	return host
}
