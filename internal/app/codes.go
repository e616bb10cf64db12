package app

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"

	"decaquiz-service/internal/domain"
)

// CodeGenerator produces room codes; swapped in tests to force collisions.
type CodeGenerator func() (string, error)

// NewRoomCode draws RoomCodeLength symbols uniformly from RoomCodeAlphabet.
func NewRoomCode() (string, error) {
	alphabet := domain.RoomCodeAlphabet
	max := big.NewInt(int64(len(alphabet)))
	code := make([]byte, domain.RoomCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code), nil
}

// NewHostToken returns 16 random bytes, hex encoded.
func NewHostToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
