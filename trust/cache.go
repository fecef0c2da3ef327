// Package trust implements the device trust cache. A trust grant lets a
// device fast-track future verification sessions until the grant expires.
package trust

import "time"

// Record is one device trust grant. It is owned by the cache: the scorer
// writes it, the issuer reads it.
type Record struct {
	Fingerprint string    `json:"device_fingerprint"`
	Confidence  float64   `json:"confidence"`
	GrantedAt   time.Time `json:"granted_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Cache stores trust grants keyed by device fingerprint. Expired entries
// behave as absent; expiry is lazy, there is no background sweep. Absence
// always means "not trusted", never an error.
type Cache interface {
	IsTrusted(fingerprint string) (bool, error)
	Lookup(fingerprint string) (Record, bool, error)
	Grant(fingerprint string, confidence float64, ttl time.Duration) error
	Revoke(fingerprint string) error
}
