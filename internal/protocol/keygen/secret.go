package keygen

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/smallyu/go-csidh/internal/crypto/curves"
)

// SecretSize is the size of a derived shared secret.
const SecretSize = 32

// HashFunc is the hash underlying the shared secret derivation.
var HashFunc = sha256.New

// SharedSecret derives a uniform secret from the j-invariant of a shared
// curve. Parties reaching isomorphic curves derive the same secret for the
// same info.
func SharedSecret(shared *curves.Montgomery, salt, info []byte) ([]byte, error) {
	j := shared.F.Bytes(shared.JInvariant())
	prk := hkdf.Extract(HashFunc, j, salt)
	out := make([]byte, SecretSize)
	if _, err := io.ReadFull(hkdf.Expand(HashFunc, prk, info), out); err != nil {
		return nil, fmt.Errorf("failed to derive secret: %w", err)
	}
	return out, nil
}
