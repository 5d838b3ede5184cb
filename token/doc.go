// Package token signs and verifies the time-bound claim sets behind access
// and refresh credentials, with strict validation semantics suitable for
// low-latency authentication paths.
package token
