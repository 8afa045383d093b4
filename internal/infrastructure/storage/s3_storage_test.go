package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erp/fiscal/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		wantErr string
	}{
		{name: "nil config", cfg: nil, wantErr: "configuration is required"},
		{name: "missing bucket", cfg: &config.StorageConfig{AccessKey: "k", SecretKey: "s"}, wantErr: "bucket is required"},
		{name: "missing access key", cfg: &config.StorageConfig{Bucket: "b", SecretKey: "s"}, wantErr: "access key is required"},
		{name: "missing secret key", cfg: &config.StorageConfig{Bucket: "b", AccessKey: "k"}, wantErr: "secret key is required"},
		{name: "bad endpoint", cfg: &config.StorageConfig{Bucket: "b", AccessKey: "k", SecretKey: "s", Endpoint: "http://"}, wantErr: "invalid storage endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3ObjectStorage(tt.cfg)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	got, err := normalizeEndpoint("minio:9000", false)
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000", got)

	got, err = normalizeEndpoint("s3.example.com", true)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.com", got)

	got, err = normalizeEndpoint("", true)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestS3ObjectStorage_ObjectKey(t *testing.T) {
	s, err := NewS3ObjectStorage(&config.StorageConfig{Bucket: "b", AccessKey: "k", SecretKey: "s", KeyPrefix: "/seniat/"})
	require.NoError(t, err)
	assert.Equal(t, "seniat/arc/iva/x.txt", s.ObjectKey("arc/iva/x.txt"))

	s.keyPrefix = ""
	assert.Equal(t, "arc/iva/x.txt", s.ObjectKey("arc/iva/x.txt"))
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
}

func newFakeS3(t *testing.T) (*fakeS3, *httptest.Server) {
	f := &fakeS3{objects: map[string]string{}, types: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			f.objects[r.URL.Path] = string(body)
			f.types[r.URL.Path] = r.Header.Get("Content-Type")
			w.WriteHeader(http.StatusOK)
		case http.MethodHead:
			if _, ok := f.objects[r.URL.Path]; ok {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func newTestStorage(t *testing.T, endpoint string) *S3ObjectStorage {
	t.Helper()
	s, err := NewS3ObjectStorage(&config.StorageConfig{
		Endpoint:     endpoint,
		Bucket:       "fiscal-exports",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		UsePathStyle: true,
		KeyPrefix:    "seniat",
	}, WithLogger(zaptest.NewLogger(t)), WithPresignExpiration(10*time.Minute))
	require.NoError(t, err)
	return s
}

func TestS3ObjectStorage_UploadAndExists(t *testing.T) {
	fake, srv := newFakeS3(t)
	s := newTestStorage(t, srv.URL)
	ctx := context.Background()
	key := "arc/iva/t1/2026/03/20260401T120000-ARC_IVA_032026.txt"

	require.NoError(t, s.Upload(ctx, key, []byte("J123456789\t032026\n"), "text/plain; charset=utf-8"))

	fake.mu.Lock()
	stored, ok := fake.objects["/fiscal-exports/seniat/"+key]
	contentType := fake.types["/fiscal-exports/seniat/"+key]
	fake.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, "J123456789\t032026\n", stored)
	assert.Equal(t, "text/plain; charset=utf-8", contentType)

	exists, err := s.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.ObjectExists(ctx, "arc/iva/missing.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestS3ObjectStorage_DownloadURL(t *testing.T) {
	_, srv := newFakeS3(t)
	s := newTestStorage(t, srv.URL)

	link, expiresAt, err := s.DownloadURL(context.Background(), "books/sales/x.txt", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, srv.URL+"/fiscal-exports/seniat/books/sales/x.txt?"))
	assert.Contains(t, link, "X-Amz-Expires=600")
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), expiresAt, 5*time.Second)
}

func TestS3ObjectStorage_EmptyKey(t *testing.T) {
	_, srv := newFakeS3(t)
	s := newTestStorage(t, srv.URL)
	ctx := context.Background()

	assert.ErrorIs(t, s.Upload(ctx, "", nil, "text/plain"), ErrEmptyKey)
	_, _, err := s.DownloadURL(ctx, "", time.Minute)
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, err = s.ObjectExists(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.Equal(t, "fiscal-exports", s.GetBucket())
}
