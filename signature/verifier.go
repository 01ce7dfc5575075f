package signature

import (
	"crypto/hmac"
	"errors"
	"strconv"
	"time"
)

// Verification errors returned by VerifyHeaders.
var (
	ErrMissingSignature = errors.New("signature: missing signature or timestamp")
	ErrBadTimestamp     = errors.New("signature: malformed timestamp")
	ErrTimestampSkew    = errors.New("signature: timestamp outside tolerance")
	ErrMismatch         = errors.New("signature: mismatch")
)

// Verify checks whether sig is the signature of body for secret and timestamp.
func Verify(body []byte, secret string, timestamp int64, sig string) bool {
	expected := Sign(body, secret, timestamp)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// VerifyHeaders validates the raw header values a receiver got alongside body.
// A zero tolerance disables the timestamp freshness check.
func VerifyHeaders(body []byte, secret, sigHeader, tsHeader string, tolerance time.Duration, now time.Time) error {
	if sigHeader == "" || tsHeader == "" {
		return ErrMissingSignature
	}

	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return ErrBadTimestamp
	}

	if tolerance > 0 {
		skew := now.Sub(time.Unix(ts, 0))
		if skew < 0 {
			skew = -skew
		}
		if skew > tolerance {
			return ErrTimestampSkew
		}
	}

	if !Verify(body, secret, ts, sigHeader) {
		return ErrMismatch
	}
	return nil
}
