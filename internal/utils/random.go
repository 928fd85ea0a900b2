package utils

import (
	"crypto/rand" // Cryptographically secure randomness
	"math/big"    // Arbitrary-precision integers for rand.Int
)

const deviceSuffixCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" // Device id alphabet
const tempPasswordCharset = "abcdefghijklmnopqrstuvwxyz0123456789" // Temp password alphabet

// randomString returns n random characters drawn from charset
func randomString(charset string, n int) string {
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			// crypto/rand only fails when the platform source is broken
			panic(err)
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}

// DeviceIDSuffix returns the 8-character uppercase alphanumeric suffix
// appended to generated device identifiers
func DeviceIDSuffix() string {
	return randomString(deviceSuffixCharset, 8)
}

// TempPassword returns an 8-character one-time password for a newly
// provisioned doctor account
func TempPassword() string {
	return randomString(tempPasswordCharset, 8)
}

// UsernameSuffix returns a 9-digit number used to make synthesized
// doctor usernames unique
func UsernameSuffix() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000000))
	if err != nil {
		panic(err)
	}
	return big.NewInt(100000000 + n.Int64()).String()
}
