package internal

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

// otpSpace is the size of the 6-digit code space [100000, 999999].
var otpSpace = big.NewInt(900000)

// NewOTP draws a code uniformly from [100000, 999999] and renders it as a
// fixed-width decimal string. The lower bound keeps the first digit nonzero,
// so no zero-padding is ever needed.
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(100000+n.Int64(), 10), nil
}
