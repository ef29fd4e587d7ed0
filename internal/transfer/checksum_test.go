// SPDX-License-Identifier: MPL-2.0

package transfer

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"modboot/internal/testutil"
	"modboot/pkg/artifact"
)

func TestParseSidecar(t *testing.T) {
	t.Parallel()

	digest := testutil.SHA1Hex([]byte("payload"))

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare digest", input: digest, want: digest},
		{name: "trailing newline", input: digest + "\n", want: digest},
		{name: "uppercase", input: strings.ToUpper(digest), want: digest},
		{name: "sha1sum format", input: digest + "  demo-1.0.jar\n", want: digest},
		{name: "leading zeros stripped", input: "abc", want: strings.Repeat("0", 37) + "abc"},
		{name: "empty", input: "  \n", wantErr: true},
		{name: "too long", input: digest + "0", wantErr: true},
		{name: "not hex", input: "<html>not found</html>", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseSidecar([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSidecar(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSidecar(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseSidecar(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	local := artifact.LocalArtifact{
		Path:        filepath.Join(dir, "demo-1.0.jar"),
		SidecarPath: filepath.Join(dir, "demo-1.0.jar.sha1"),
	}

	var ie *IntegrityError
	if err := Verify(local); !errors.As(err, &ie) {
		t.Fatalf("Verify(missing) = %v, want *IntegrityError", err)
	}

	testutil.MustWriteFile(t, local.Path, []byte("payload"))
	testutil.MustWriteFile(t, local.SidecarPath, []byte(testutil.SHA1Hex([]byte("payload"))))
	if err := Verify(local); err != nil {
		t.Fatalf("Verify(valid) = %v", err)
	}

	testutil.MustWriteFile(t, local.SidecarPath, []byte(testutil.SHA1Hex([]byte("other"))))
	err := Verify(local)
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("Verify(mismatch) = %v, want ErrIntegrity", err)
	}
	if !errors.As(err, &ie) || ie.Got != testutil.SHA1Hex([]byte("payload")) {
		t.Errorf("IntegrityError = %+v", ie)
	}
}
