package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

var ErrHashing = errors.New("password hashing failed")

// Params controls Argon2id cost. MemoryKiB is in KiB as argon2.IDKey expects.
type Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func DefaultParams() Params {
	threads := runtime.NumCPU()
	if threads < 1 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Params{
		MemoryKiB:   64 * 1024,
		Iterations:  3,
		Parallelism: uint8(threads),
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (p Params) validate() error {
	switch {
	case p.MemoryKiB < 8*uint32(p.Parallelism) || p.MemoryKiB == 0:
		return fmt.Errorf("%w: memory must be >= 8*parallelism KiB", ErrHashing)
	case p.Iterations < 1:
		return fmt.Errorf("%w: iterations must be >= 1", ErrHashing)
	case p.Parallelism < 1:
		return fmt.Errorf("%w: parallelism must be >= 1", ErrHashing)
	case p.SaltLength < 8:
		return fmt.Errorf("%w: salt length must be >= 8", ErrHashing)
	case p.KeyLength < 16:
		return fmt.Errorf("%w: key length must be >= 16", ErrHashing)
	}
	return nil
}

// Argon2 hashes and verifies passwords. It holds only its cost parameters
// and is safe for concurrent use.
type Argon2 struct {
	params Params
}

func New(p Params) (*Argon2, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Argon2{params: p}, nil
}

// Hash returns a PHC string: $argon2id$v=19$m=..,t=..,p=..$salt$digest.
func (a *Argon2) Hash(password string) (string, error) {
	salt := make([]byte, a.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("%w: read salt: %v", ErrHashing, err)
	}

	digest := argon2.IDKey(
		[]byte(password),
		salt,
		a.params.Iterations,
		a.params.MemoryKiB,
		a.params.Parallelism,
		a.params.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.params.MemoryKiB,
		a.params.Iterations,
		a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// Verify recomputes the digest with the parameters stored in encoded. A
// wrong password is (false, nil); only a malformed encoded hash is an error.
func (a *Argon2) Verify(encoded, candidate string) (bool, error) {
	parsed, err := decode(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(candidate),
		parsed.salt,
		parsed.params.Iterations,
		parsed.params.MemoryKiB,
		parsed.params.Parallelism,
		uint32(len(parsed.digest)),
	)

	return subtle.ConstantTimeCompare(computed, parsed.digest) == 1, nil
}

type phc struct {
	params Params
	salt   []byte
	digest []byte
}

func decode(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: invalid PHC format", ErrHashing)
	}
	if parts[1] != algorithmID {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrHashing, parts[1])
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return nil, fmt.Errorf("%w: invalid version", ErrHashing)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrHashing, version)
	}

	var p Params
	seen := 0
	for _, pair := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: invalid parameter %q", ErrHashing, pair)
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n == 0 {
				return nil, fmt.Errorf("%w: invalid memory", ErrHashing)
			}
			p.MemoryKiB = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n == 0 {
				return nil, fmt.Errorf("%w: invalid iterations", ErrHashing)
			}
			p.Iterations = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n == 0 {
				return nil, fmt.Errorf("%w: invalid parallelism", ErrHashing)
			}
			p.Parallelism = uint8(n)
		default:
			return nil, fmt.Errorf("%w: unsupported parameter %q", ErrHashing, k)
		}
		seen++
	}
	if seen != 3 || p.MemoryKiB == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return nil, fmt.Errorf("%w: missing parameters", ErrHashing)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, fmt.Errorf("%w: invalid salt", ErrHashing)
	}
	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(digest) == 0 {
		return nil, fmt.Errorf("%w: invalid digest", ErrHashing)
	}

	return &phc{params: p, salt: salt, digest: digest}, nil
}
