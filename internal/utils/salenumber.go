package utils

import (
	"crypto/rand"
	"math/big"
)

const saleNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateSaleNumber returns a human-readable sale identifier of the form
// SALE-XXXXXXXX. Callers check the candidate against existing rows before
// using it; the unique index on sale_number is the backstop.
func GenerateSaleNumber() (string, error) {
	suffix := make([]byte, 8)
	max := big.NewInt(int64(len(saleNumberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		suffix[i] = saleNumberAlphabet[n.Int64()]
	}
	return "SALE-" + string(suffix), nil
}
