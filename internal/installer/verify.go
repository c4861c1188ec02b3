package installer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// Verify checks that the SHA-256 of data equals digest, comparing hex
// case-insensitively. It returns data unchanged on success and an
// ErrIntegrity error otherwise. An empty digest is a failure: there is no
// unverified path.
func Verify(data []byte, digest string) ([]byte, error) {
	expected := strings.TrimSpace(digest)
	if expected == "" {
		return nil, fmt.Errorf("%w: no integrity digest to verify against", ErrIntegrity)
	}

	actual := calculateSHA256(data)
	if !strings.EqualFold(actual, expected) {
		return nil, fmt.Errorf("%w: checksum mismatch:\nactual:   %s\nexpected: %s", ErrIntegrity, actual, expected)
	}

	return data, nil
}

// calculateSHA256 returns the hex SHA-256 of data.
func calculateSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks a detached OpenPGP signature over data against the
// keyring at keyringPath. Armored and binary signatures and keyrings are
// both accepted.
func VerifySignature(data, signature []byte, keyringPath string) error {
	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return fmt.Errorf("%w: load keyring: %w", ErrIntegrity, err)
	}

	_, err = openpgp.CheckArmoredDetachedSignature(keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	if err != nil {
		_, err = openpgp.CheckDetachedSignature(keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	}
	if err != nil {
		return fmt.Errorf("%w: verify signature: %w", ErrIntegrity, err)
	}

	return nil
}

// loadKeyring loads an OpenPGP public keyring from disk.
func loadKeyring(path string) (openpgp.EntityList, error) {
	keyringFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer keyringFile.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(keyringFile)
	if err != nil {
		// Try reading as non-armored keyring
		if _, serr := keyringFile.Seek(0, io.SeekStart); serr != nil {
			return nil, fmt.Errorf("rewind keyring: %w", serr)
		}
		keyring, err = openpgp.ReadKeyRing(keyringFile)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}

	return keyring, nil
}
