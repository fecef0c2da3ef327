// Package replay provides content-addressed dedup of submitted media. Every
// accepted media sample is recorded by digest; a repeated digest is treated
// as certain replay.
package replay

import (
	"golang.org/x/crypto/blake2b"

	"github.com/certivo/certivo/internal/util"
)

// Hash returns the content address of raw media bytes as a hex BLAKE2b-256
// digest.
func Hash(media []byte) string {
	sum := blake2b.Sum256(media)
	return util.HexEncode(sum[:])
}

// Guard records media content hashes. CheckAndRecord is atomic: of two
// concurrent identical submissions, exactly one observes seen == false.
//
// Forget exists for one case only: a transient analyzer failure, where the
// submission consumed neither an attempt nor its media hash and the client
// retries with the same bytes.
type Guard interface {
	CheckAndRecord(contentHash string) (seen bool, err error)
	Forget(contentHash string) error
}
