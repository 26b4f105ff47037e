package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2idParams defines the tuning parameters for Argon2id hashing.
type Argon2idParams struct {
	Time       uint32
	Memory     uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength uint32
}

// DefaultParams are used for every new password hash.
var DefaultParams = Argon2idParams{
	Time:       1,
	Memory:     64 * 1024,
	Threads:    4,
	KeyLength:  32,
	SaltLength: 16,
}

var errInvalidHash = errors.New("invalid password hash format")

// HashPassword hashes password with Argon2id and encodes the parameters,
// salt and key as argon2id$t$m$p$salt$key.
func HashPassword(password string) (string, error) {
	p := DefaultParams
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLength)
	return fmt.Sprintf("argon2id$%d$%d$%d$%s$%s",
		p.Time, p.Memory, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// VerifyPassword reports whether password matches the encoded hash.
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "argon2id" {
		return false, errInvalidHash
	}

	var params [3]uint64
	for i, bits := range []int{32, 32, 8} {
		v, err := strconv.ParseUint(parts[i+1], 10, bits)
		if err != nil || v == 0 {
			return false, errInvalidHash
		}
		params[i] = v
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return false, errInvalidHash
	}

	computed := argon2.IDKey([]byte(password), salt,
		uint32(params[0]), uint32(params[1]), uint8(params[2]), uint32(len(key))) //nolint:gosec // parsed with matching bit sizes
	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}
