package group

import (
	"crypto/rand"
	"math/big"
)

// inviteAlphabet omits easily-confused characters (0/O, 1/I/L).
const inviteAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const inviteLength = 10

// NewInviteCode returns a random uppercase code suitable for sharing out
// of band. Uniqueness is enforced by the invite_code unique index; callers
// retry on conflict.
func NewInviteCode() string {
	max := big.NewInt(int64(len(inviteAlphabet)))
	b := make([]byte, inviteLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err) // crypto/rand failure is not recoverable
		}
		b[i] = inviteAlphabet[n.Int64()]
	}
	return string(b)
}
