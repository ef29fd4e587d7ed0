// SPDX-License-Identifier: MPL-2.0

package transfer

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // SHA-1 is the repository sidecar format, not a security boundary.
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"modboot/pkg/artifact"
)

const (
	// digestHexLen is the length of a hex-encoded SHA-1 digest.
	digestHexLen = 40

	// maxSidecarBytes bounds how much of a sidecar is read.
	maxSidecarBytes = 4 << 10
)

var (
	errEmptySidecar     = errors.New("sidecar is empty")
	errMalformedSidecar = errors.New("sidecar is not a hex SHA-1 digest")
)

// ParseSidecar extracts the digest from sidecar content. Only the first
// whitespace-separated token is significant, so both bare digests and
// "sha1sum"-style "<digest>  <file>" lines are accepted. Publishers that strip
// leading zeros are tolerated: the digest is left-padded back to 40 digits.
func ParseSidecar(data []byte) (string, error) {
	fields := bytes.Fields(data)
	if len(fields) == 0 {
		return "", errEmptySidecar
	}
	token := strings.ToLower(string(fields[0]))
	if len(token) > digestHexLen || !isHex(token) {
		return "", fmt.Errorf("%w: %q", errMalformedSidecar, token)
	}
	return strings.Repeat("0", digestHexLen-len(token)) + token, nil
}

// ComputeFileHash returns the lowercase hex SHA-1 digest of the file at path.
func ComputeFileHash(path string) (_ string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		// Read-only file handle; close errors are exotic (NFS edge cases).
		_ = f.Close()
	}()

	h := sha1.New() //nolint:gosec // sidecar format
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing file %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify checks a local artifact against its sidecar. It returns nil on a
// match and an *IntegrityError otherwise, including when either file is
// missing or the sidecar is malformed.
func Verify(local artifact.LocalArtifact) error {
	data, err := readSidecar(local.SidecarPath)
	if err != nil {
		return &IntegrityError{Path: local.Path, Cause: err}
	}
	expected, err := ParseSidecar(data)
	if err != nil {
		return &IntegrityError{Path: local.Path, Cause: err}
	}
	got, err := ComputeFileHash(local.Path)
	if err != nil {
		return &IntegrityError{Path: local.Path, Expected: expected, Cause: err}
	}
	if got != expected {
		return &IntegrityError{Path: local.Path, Expected: expected, Got: got}
	}
	return nil
}

func readSidecar(path string) (_ []byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }() // read-only handle

	data, err := io.ReadAll(io.LimitReader(f, maxSidecarBytes))
	if err != nil {
		return nil, fmt.Errorf("reading sidecar %s: %w", path, err)
	}
	return data, nil
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return s != ""
}
