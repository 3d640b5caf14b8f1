// Package hashing provides one-way salted hashing and constant-time
// verification for passwords and bearer tokens.
package hashing

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/reelkeeper/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrHashMismatch means the secret does not match the hash.
	ErrHashMismatch = errors.New("hash mismatch")
	// ErrMalformedHash means the stored hash could not be decoded.
	ErrMalformedHash = errors.New("malformed hash")
)

const argon2idPrefix = "$argon2id$"

// Hasher hashes secrets and verifies them later.
type Hasher interface {
	// Hash returns a salted one-way hash of secret. Hashing the same secret
	// twice yields different strings. Empty secrets are valid input.
	Hash(secret string) (string, error)

	// Verify reports whether secret produced hash. Mismatches and
	// undecodable hashes both yield false.
	Verify(hash, secret string) bool
}

// Params are the argon2id cost parameters.
type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams follow the OWASP recommendation for argon2id.
var DefaultParams = Params{
	Memory:      64 * 1024,
	Iterations:  1,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// Argon2idHasher produces PHC-encoded argon2id hashes:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
//
// It also verifies bcrypt hashes so that accounts created by older
// deployments can still log in; NeedsRehash flags those for upgrade.
type Argon2idHasher struct {
	params Params
}

// NewArgon2idHasher creates a hasher. Zero fields of p take DefaultParams.
func NewArgon2idHasher(p Params) *Argon2idHasher {
	if p.Memory == 0 {
		p.Memory = DefaultParams.Memory
	}
	if p.Iterations == 0 {
		p.Iterations = DefaultParams.Iterations
	}
	if p.Parallelism == 0 {
		p.Parallelism = DefaultParams.Parallelism
	}
	if p.SaltLength == 0 {
		p.SaltLength = DefaultParams.SaltLength
	}
	if p.KeyLength == 0 {
		p.KeyLength = DefaultParams.KeyLength
	}
	return &Argon2idHasher{params: p}
}

func (h *Argon2idHasher) Hash(secret string) (string, error) {
	salt, err := common.GenerateRandByteArray(int(h.params.SaltLength))
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(secret), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2idHasher) Verify(hash, secret string) bool {
	return h.Compare(hash, secret) == nil
}

// Compare returns nil when secret matches hash, ErrHashMismatch when it
// does not and ErrMalformedHash when hash cannot be decoded.
func (h *Argon2idHasher) Compare(hash, secret string) error {
	if isBcrypt(hash) {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
			return ErrHashMismatch
		default:
			return fmt.Errorf("%w: %v", ErrMalformedHash, err)
		}
	}

	p, salt, expected, err := decodeArgon2id(hash)
	if err != nil {
		return err
	}

	computed := argon2.IDKey([]byte(secret), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	if subtle.ConstantTimeCompare(computed, expected) != 1 {
		return ErrHashMismatch
	}
	return nil
}

// NeedsRehash reports whether hash was produced by another algorithm or
// with parameters different from the hasher's current ones.
func (h *Argon2idHasher) NeedsRehash(hash string) bool {
	p, _, _, err := decodeArgon2id(hash)
	if err != nil {
		return true
	}
	return p.Memory != h.params.Memory ||
		p.Iterations != h.params.Iterations ||
		p.Parallelism != h.params.Parallelism
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

func decodeArgon2id(encoded string) (Params, []byte, []byte, error) {
	var p Params

	if !strings.HasPrefix(encoded, argon2idPrefix) {
		return p, nil, nil, fmt.Errorf("%w: unsupported algorithm", ErrMalformedHash)
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return p, nil, nil, fmt.Errorf("%w: expected 6 segments, got %d", ErrMalformedHash, len(parts))
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedHash, version)
	}

	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &threads); err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	if p.Memory == 0 || p.Iterations == 0 || threads == 0 || threads > 255 {
		return p, nil, nil, fmt.Errorf("%w: invalid parameters", ErrMalformedHash)
	}
	p.Parallelism = uint8(threads)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	if len(key) == 0 || len(key) > 1024 {
		return p, nil, nil, fmt.Errorf("%w: invalid key length %d", ErrMalformedHash, len(key))
	}

	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}
