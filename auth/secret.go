package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"restaurant-hub/errors"

	"golang.org/x/crypto/argon2"
)

// Define Argon2 parameters based on OWASP recommendations
const (
	Memory      = 64 * 1024 // 64 MB
	Iterations  = 3
	Parallelism = 2
	SaltLength  = 16
	KeyLength   = 32
)

var errInvalidHash = fmt.Errorf("invalid hash format")

// HashSecret generates an Argon2id hash from a plain text secret
func HashSecret(secret string) (string, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(secret), salt, Iterations, Memory, Parallelism, KeyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	// The encoded form carries every parameter needed for verification
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s", argon2.Version, Memory, Iterations, Parallelism, b64Salt, b64Hash), nil
}

// CompareSecret compares a plain text secret with a stored hash
func CompareSecret(secret, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, errInvalidHash
	}

	var version, memory, iterations, parallelism int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, errInvalidHash
	}
	if version != argon2.Version {
		return false, fmt.Errorf("unsupported argon2 version %d", version)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, errInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, err
	}

	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, err
	}

	comparisonHash := argon2.IDKey([]byte(secret), salt, uint32(iterations), uint32(memory), uint8(parallelism), uint32(len(decodedHash)))

	// Constant time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare(decodedHash, comparisonHash) == 1, nil
}

// ServiceTokenVerifier checks the token presented by backend collaborators.
// A verified token is remembered so argon2 runs once per distinct token.
type ServiceTokenVerifier struct {
	hash     string
	mu       sync.Mutex
	verified string
}

func NewServiceTokenVerifier(hash string) *ServiceTokenVerifier {
	return &ServiceTokenVerifier{hash: hash}
}

// Verify rejects every token when no hash is configured.
func (v *ServiceTokenVerifier) Verify(token string) error {
	if v.hash == "" || token == "" {
		return fmt.Errorf("%w: service token required", errors.ErrUnauthenticated)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.verified != "" && subtle.ConstantTimeCompare([]byte(v.verified), []byte(token)) == 1 {
		return nil
	}
	match, err := CompareSecret(token, v.hash)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	if !match {
		return fmt.Errorf("%w: service token mismatch", errors.ErrUnauthenticated)
	}
	v.verified = token
	return nil
}
