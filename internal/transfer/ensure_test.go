// SPDX-License-Identifier: MPL-2.0

package transfer_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"modboot/internal/metrics"
	"modboot/internal/testutil"
	"modboot/internal/transfer"
	"modboot/pkg/artifact"
)

const (
	group   = "org.example"
	name    = "demo"
	version = "1.0"
)

func newEnsurer(t *testing.T, opts ...transfer.Option) (*transfer.Ensurer, string) {
	t.Helper()
	dir := t.TempDir()
	opts = append([]transfer.Option{transfer.WithLogger(log.New(io.Discard))}, opts...)
	return transfer.NewEnsurer(dir, opts...), dir
}

func TestEnsure_DownloadThenCacheHit(t *testing.T) {
	t.Parallel()

	repo := testutil.NewRepository(t)
	payload := []byte("demo archive bytes")
	repo.Publish(group, name, version, payload)

	e, dir := newEnsurer(t)
	c := artifact.NewCoordinate(repo.URL(), group, name, version)
	ctx := context.Background()

	first, err := e.Ensure(ctx, c, transfer.EnsureOptions{})
	if err != nil {
		t.Fatalf("first Ensure() error: %v", err)
	}
	if !first.Downloaded {
		t.Error("first Ensure() Downloaded = false")
	}
	wantPath := filepath.Join(dir, "org", "example", "demo", "1.0", "demo-1.0.jar")
	if first.Artifact.Path != wantPath {
		t.Errorf("Artifact.Path = %q, want %q", first.Artifact.Path, wantPath)
	}
	if got := string(testutil.MustReadFile(t, wantPath)); got != string(payload) {
		t.Errorf("cached content = %q", got)
	}
	requests := repo.Requests()
	if requests != 2 {
		t.Errorf("requests after first Ensure = %d, want 2", requests)
	}

	second, err := e.Ensure(ctx, c, transfer.EnsureOptions{})
	if err != nil {
		t.Fatalf("second Ensure() error: %v", err)
	}
	if second.Downloaded || second.Bytes != 0 {
		t.Errorf("second Ensure() = %+v, want cache hit", second)
	}
	if repo.Requests() != requests {
		t.Errorf("second Ensure() made %d network calls, want 0", repo.Requests()-requests)
	}
}

func TestEnsure_ValidCacheSkipsNetwork(t *testing.T) {
	t.Parallel()

	repo := testutil.NewRepository(t)
	rec := metrics.New()
	e, dir := newEnsurer(t, transfer.WithMetrics(rec))

	c := artifact.NewCoordinate(repo.URL(), group, name, version)
	local := artifact.NewLayout(dir).Artifact(c)
	testutil.MustWriteFile(t, local.Path, []byte("cached"))
	testutil.MustWriteFile(t, local.SidecarPath, []byte(testutil.SHA1Hex([]byte("cached"))+"\n"))

	res, err := e.Ensure(context.Background(), c, transfer.EnsureOptions{})
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if res.Downloaded || res.Bytes != 0 {
		t.Errorf("Ensure() = %+v, want zero bytes transferred", res)
	}
	if repo.Requests() != 0 {
		t.Errorf("requests = %d, want 0", repo.Requests())
	}
}

func TestEnsure_ForceRedownloads(t *testing.T) {
	t.Parallel()

	repo := testutil.NewRepository(t)
	repo.Publish(group, name, version, []byte("fresh"))

	e, dir := newEnsurer(t)
	c := artifact.NewCoordinate(repo.URL(), group, name, version)
	local := artifact.NewLayout(dir).Artifact(c)
	testutil.MustWriteFile(t, local.Path, []byte("stale"))
	testutil.MustWriteFile(t, local.SidecarPath, []byte(testutil.SHA1Hex([]byte("stale"))))

	res, err := e.Ensure(context.Background(), c, transfer.EnsureOptions{Force: true})
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if !res.Downloaded {
		t.Error("Downloaded = false with Force")
	}
	if got := string(testutil.MustReadFile(t, local.Path)); got != "fresh" {
		t.Errorf("content = %q, want fresh", got)
	}
}

func TestEnsure_CorruptedSidecarRedownloadsOnce(t *testing.T) {
	t.Parallel()

	repo := testutil.NewRepository(t)
	artifactPath := testutil.ArtifactPath(group, name, version)
	repo.Put(artifactPath, []byte("payload"))
	repo.Put(artifactPath+".sha1", []byte(testutil.SHA1Hex([]byte("something else"))))

	rec := metrics.New()
	e, dir := newEnsurer(t, transfer.WithMetrics(rec))
	c := artifact.NewCoordinate(repo.URL(), group, name, version)
	local := artifact.NewLayout(dir).Artifact(c)
	testutil.MustWriteFile(t, local.Path, []byte("payload"))
	testutil.MustWriteFile(t, local.SidecarPath, []byte("corrupted sidecar"))

	_, err := e.Ensure(context.Background(), c, transfer.EnsureOptions{})
	if !errors.Is(err, transfer.ErrIntegrity) {
		t.Fatalf("Ensure() error = %v, want ErrIntegrity", err)
	}
	var ie *transfer.IntegrityError
	if !errors.As(err, &ie) || ie.Path != local.Path {
		t.Errorf("IntegrityError = %+v", ie)
	}
	if got := repo.RequestsFor(artifactPath); got != 1 {
		t.Errorf("artifact downloads = %d, want exactly 1", got)
	}
	if testutil.FileExists(local.Path) || testutil.FileExists(local.SidecarPath) {
		t.Error("invalid artifact left in the library")
	}
}

func TestEnsure_CorruptedSidecarRecovers(t *testing.T) {
	t.Parallel()

	repo := testutil.NewRepository(t)
	repo.Publish(group, name, version, []byte("payload"))

	e, dir := newEnsurer(t)
	c := artifact.NewCoordinate(repo.URL(), group, name, version)
	local := artifact.NewLayout(dir).Artifact(c)
	testutil.MustWriteFile(t, local.Path, []byte("payload"))
	testutil.MustWriteFile(t, local.SidecarPath, []byte("0000"))

	res, err := e.Ensure(context.Background(), c, transfer.EnsureOptions{})
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if !res.Downloaded {
		t.Error("Downloaded = false after sidecar mismatch")
	}
}

func TestEnsure_NotFound(t *testing.T) {
	t.Parallel()

	repo := testutil.NewRepository(t)
	e, dir := newEnsurer(t)
	c := artifact.NewCoordinate(repo.URL(), group, name, version)

	_, err := e.Ensure(context.Background(), c, transfer.EnsureOptions{})
	if !errors.Is(err, transfer.ErrFetch) {
		t.Fatalf("Ensure() error = %v, want ErrFetch", err)
	}
	var fe *transfer.FetchError
	if !errors.As(err, &fe) || fe.Status != http.StatusNotFound {
		t.Errorf("FetchError = %+v, want status 404", fe)
	}
	if testutil.FileExists(artifact.NewLayout(dir).Artifact(c).Path) {
		t.Error("artifact created for a failed fetch")
	}
}

func TestEnsure_AnySuccessStatus(t *testing.T) {
	t.Parallel()

	payload := []byte("served by a proxy")
	tests := []struct {
		status  int
		wantErr bool
	}{
		{status: http.StatusOK},
		{status: http.StatusNonAuthoritativeInfo},
		{status: http.StatusPartialContent},
		{status: http.StatusMultipleChoices, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()

			path := testutil.ArtifactPath(group, name, version)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case path:
					w.WriteHeader(tt.status)
					_, _ = w.Write(payload)
				case path + ".sha1":
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte(testutil.SHA1Hex(payload)))
				default:
					w.WriteHeader(http.StatusNotFound)
				}
			}))
			t.Cleanup(srv.Close)

			e, _ := newEnsurer(t)
			res, err := e.Ensure(context.Background(), artifact.NewCoordinate(srv.URL, group, name, version), transfer.EnsureOptions{})
			if tt.wantErr {
				var fe *transfer.FetchError
				if !errors.As(err, &fe) || fe.Status != tt.status {
					t.Fatalf("Ensure() error = %v, want FetchError with status %d", err, tt.status)
				}
				return
			}
			if err != nil {
				t.Fatalf("Ensure() error: %v", err)
			}
			if got := string(testutil.MustReadFile(t, res.Artifact.Path)); got != string(payload) {
				t.Errorf("content = %q", got)
			}
		})
	}
}

func TestEnsure_MalformedRemoteSidecar(t *testing.T) {
	t.Parallel()

	repo := testutil.NewRepository(t)
	p := testutil.ArtifactPath(group, name, version)
	repo.Put(p, []byte("payload"))
	repo.Put(p+".sha1", []byte("<html>gateway error</html>"))

	e, _ := newEnsurer(t)
	_, err := e.Ensure(context.Background(), artifact.NewCoordinate(repo.URL(), group, name, version), transfer.EnsureOptions{})
	if !errors.Is(err, transfer.ErrIntegrity) {
		t.Fatalf("Ensure() error = %v, want ErrIntegrity", err)
	}
}

func TestEnsure_UnsupportedScheme(t *testing.T) {
	t.Parallel()

	e, _ := newEnsurer(t)
	_, err := e.Ensure(context.Background(), artifact.NewCoordinate("ftp://mirror.example", group, name, version), transfer.EnsureOptions{})
	if !errors.Is(err, transfer.ErrFetch) {
		t.Fatalf("Ensure() error = %v, want ErrFetch", err)
	}
}

func TestEnsure_InvalidCoordinate(t *testing.T) {
	t.Parallel()

	e, _ := newEnsurer(t)
	_, err := e.Ensure(context.Background(), artifact.NewCoordinate("https://x", "../etc", name, version), transfer.EnsureOptions{})
	if !errors.Is(err, artifact.ErrInvalidCoordinate) {
		t.Fatalf("Ensure() error = %v, want ErrInvalidCoordinate", err)
	}
}

func TestEnsure_FileRepository(t *testing.T) {
	t.Parallel()

	mirror := t.TempDir()
	payload := []byte("mirrored")
	p := filepath.Join(mirror, filepath.FromSlash(strings.TrimPrefix(testutil.ArtifactPath(group, name, version), "/")))
	testutil.MustWriteFile(t, p, payload)
	testutil.MustWriteFile(t, p+".sha1", []byte(testutil.SHA1Hex(payload)))

	repoURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(mirror)}).String()
	e, _ := newEnsurer(t)
	res, err := e.Ensure(context.Background(), artifact.NewCoordinate(repoURL, group, name, version), transfer.EnsureOptions{})
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if got := string(testutil.MustReadFile(t, res.Artifact.Path)); got != "mirrored" {
		t.Errorf("content = %q", got)
	}
}

func TestEnsure_S3Repository(t *testing.T) {
	t.Parallel()

	payload := []byte("from object storage")
	key := "maven" + testutil.ArtifactPath(group, name, version)
	objects := map[string][]byte{
		"/artifacts/" + key:          payload,
		"/artifacts/" + key + ".sha1": []byte(testutil.SHA1Hex(payload)),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := objects[r.URL.Path]
		if r.Method != http.MethodGet || !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)

	e, _ := newEnsurer(t, transfer.WithS3Config(transfer.S3Config{
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
	}))
	c := artifact.NewCoordinate("s3://artifacts/maven", group, name, version)

	res, err := e.Ensure(context.Background(), c, transfer.EnsureOptions{})
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	data, err := os.ReadFile(res.Artifact.Path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("content = %q", data)
	}

	_, err = e.Ensure(context.Background(), artifact.NewCoordinate("s3://artifacts/maven", group, "missing", version), transfer.EnsureOptions{})
	if !errors.Is(err, transfer.ErrFetch) {
		t.Errorf("missing object error = %v, want ErrFetch", err)
	}
}

func TestEnsure_CustomSource(t *testing.T) {
	t.Parallel()

	payload := []byte("custom")
	var calls int
	src := transfer.SourceFunc(func(_ context.Context, rawURL string) (io.ReadCloser, error) {
		calls++
		if strings.HasSuffix(rawURL, ".sha1") {
			return io.NopCloser(strings.NewReader(testutil.SHA1Hex(payload))), nil
		}
		return io.NopCloser(strings.NewReader(string(payload))), nil
	})

	e, _ := newEnsurer(t, transfer.WithSource("mem", src))
	if _, err := e.Ensure(context.Background(), artifact.NewCoordinate("mem://repo", group, name, version), transfer.EnsureOptions{}); err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if calls != 2 {
		t.Errorf("source calls = %d, want 2", calls)
	}
}
