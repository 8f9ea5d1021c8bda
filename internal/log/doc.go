// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// Crawls may run with per-site cookies and headers taken from the config
// file, and crawled URLs may carry credentials. The SecureHandler masks:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Secret values detected by pattern matching (bearer tokens, JWTs, keys)
//   - Passwords in URL userinfo and credential query parameters
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, log.Options{Verbose: true})
//
//	logger.Info("page fetched",
//	    "url", "https://example.com/a?token=abc", // logged as ?token=***REDACTED***
//	    "cookie", "session=abc123",               // logged as ***REDACTED***
//	)
//
//	slog.SetDefault(logger)
package log
