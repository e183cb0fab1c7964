package booking

import (
	"crypto/rand"
	"math/big"
)

// pnrAlphabet leaves out 0, 1, I and O
const pnrAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const pnrLength = 6

// NewPNR returns a random six-character booking reference
func NewPNR() (string, error) {
	b := make([]byte, pnrLength)
	max := big.NewInt(int64(len(pnrAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = pnrAlphabet[n.Int64()]
	}
	return string(b), nil
}
