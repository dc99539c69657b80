package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewS3ImageStorage_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ImageStorage(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3ImageStorage(&config.StorageConfig{AccessKey: "k", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		_, err := NewS3ImageStorage(&config.StorageConfig{Bucket: "b", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		_, err := NewS3ImageStorage(&config.StorageConfig{Bucket: "b", AccessKey: "k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("valid config creates storage", func(t *testing.T) {
		s, err := NewS3ImageStorage(&config.StorageConfig{
			Bucket:       "images",
			AccessKey:    "k",
			SecretKey:    "s",
			Endpoint:     "http://localhost:9000",
			UsePathStyle: true,
		}, WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, "images", s.GetBucket())
	})
}

func TestS3ImageStorage_PublicURL(t *testing.T) {
	base := config.StorageConfig{Bucket: "images", AccessKey: "k", SecretKey: "s"}

	t.Run("path style on endpoint without scheme", func(t *testing.T) {
		cfg := base
		cfg.Endpoint = "minio.local:9000"
		cfg.UsePathStyle = true
		s, err := NewS3ImageStorage(&cfg)
		require.NoError(t, err)
		assert.Equal(t, "http://minio.local:9000/images/products/a b.jpg", unescape(t, s.PublicURL("products/a b.jpg")))
		assert.Equal(t, "http://minio.local:9000/images/products/a%20b.jpg", s.PublicURL("products/a b.jpg"))
	})

	t.Run("ssl adds https", func(t *testing.T) {
		cfg := base
		cfg.Endpoint = "s3.example.com"
		cfg.UseSSL = true
		s, err := NewS3ImageStorage(&cfg)
		require.NoError(t, err)
		assert.Equal(t, "https://images.s3.example.com/products/x.png", s.PublicURL("products/x.png"))
	})

	t.Run("public base url wins", func(t *testing.T) {
		cfg := base
		cfg.PublicBaseURL = "https://cdn.example.com/"
		s, err := NewS3ImageStorage(&cfg)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/products/x.png", s.PublicURL("products/x.png"))
	})
}

type recordedRequest struct {
	method      string
	path        string
	contentType string
	body        []byte
}

func newFakeS3(t *testing.T) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestS3ImageStorage_UploadAndDelete(t *testing.T) {
	srv, requests := newFakeS3(t)
	s, err := NewS3ImageStorage(&config.StorageConfig{
		Bucket:       "images",
		AccessKey:    "k",
		SecretKey:    "s",
		Endpoint:     srv.URL,
		UsePathStyle: true,
	})
	require.NoError(t, err)

	url, err := s.Upload(context.Background(), "products/rose.jpg", []byte("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/images/products/rose.jpg", url)

	require.NoError(t, s.Delete(context.Background(), "products/rose.jpg"))

	require.Len(t, *requests, 2)
	put := (*requests)[0]
	assert.Equal(t, http.MethodPut, put.method)
	assert.Equal(t, "/images/products/rose.jpg", put.path)
	assert.Equal(t, "image/jpeg", put.contentType)
	assert.Contains(t, string(put.body), "jpeg-bytes")
	assert.Equal(t, http.MethodDelete, (*requests)[1].method)

	t.Run("empty key is rejected before any request", func(t *testing.T) {
		_, err := s.Upload(context.Background(), "", nil, "image/png")
		assert.Error(t, err)
		assert.Error(t, s.Delete(context.Background(), ""))
		assert.Len(t, *requests, 2)
	})
}

func TestUnavailableImageStorage(t *testing.T) {
	_, err := UnavailableImageStorage{}.Upload(context.Background(), "k", nil, "image/png")
	assert.ErrorIs(t, err, ErrStorageDisabled)
	assert.ErrorIs(t, UnavailableImageStorage{}.Delete(context.Background(), "k"), ErrStorageDisabled)
}

func unescape(t *testing.T, s string) string {
	t.Helper()
	out, err := url.PathUnescape(s)
	require.NoError(t, err)
	return out
}
