package domain

import "crypto/rand"

const (
	codePrefix   = "ORDER-"
	codeTokenLen = 10
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// NewOrderCode returns "ORDER-" plus a 10-character random token. Collisions
// are unlikely but possible; persistence enforces uniqueness and callers
// retry on ErrOrderCodeTaken.
func NewOrderCode() string {
	buf := make([]byte, codeTokenLen)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return codePrefix + string(buf)
}
