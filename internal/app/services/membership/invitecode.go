package membership

import (
	"crypto/rand"
	"math/big"

	"github.com/dalemusser/playform/internal/app/system/inputval"
)

var alphabetSize = big.NewInt(int64(len(inputval.InviteCodeAlphabet)))

// NewInviteCode returns a random code of inputval.InviteCodeLength
// characters drawn uniformly from inputval.InviteCodeAlphabet.
func NewInviteCode() (string, error) {
	b := make([]byte, inputval.InviteCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		b[i] = inputval.InviteCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}
