package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewS3Archive(t *testing.T) {
	t.Run("keeps bucket and region", func(t *testing.T) {
		cfg := S3Config{
			Bucket:          "test-bucket",
			Region:          "eu-west-1",
			Endpoint:        "http://localhost:4566",
			AccessKeyID:     "test-access-key",
			SecretAccessKey: "test-secret-key",
		}

		archive, err := NewS3Archive(context.Background(), cfg)
		if err != nil {
			t.Fatalf("NewS3Archive() error = %v", err)
		}

		if archive.bucket != cfg.Bucket {
			t.Errorf("bucket = %v, want %v", archive.bucket, cfg.Bucket)
		}
		if archive.region != cfg.Region {
			t.Errorf("region = %v, want %v", archive.region, cfg.Region)
		}
	})

	t.Run("defaults the region", func(t *testing.T) {
		cfg := S3Config{
			Bucket:          "test-bucket",
			Endpoint:        "http://localhost:4566",
			AccessKeyID:     "test-access-key",
			SecretAccessKey: "test-secret-key",
		}

		archive, err := NewS3Archive(context.Background(), cfg)
		if err != nil {
			t.Fatalf("NewS3Archive() error = %v", err)
		}

		if archive.region != "us-east-1" {
			t.Errorf("region = %v, want us-east-1", archive.region)
		}
	})
}

func TestS3Archive_Upload_MockServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT method, got %s", r.Method)
		}

		if !strings.Contains(r.URL.Path, "/test-bucket/movies/film.mkv") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		if string(body) != "encoded video bytes" {
			t.Errorf("unexpected body: %s", string(body))
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	output := filepath.Join(t.TempDir(), "film.mkv")
	if err := os.WriteFile(output, []byte("encoded video bytes"), 0o600); err != nil {
		t.Fatalf("failed to write output file: %v", err)
	}

	cfg := S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}

	archive, err := NewS3Archive(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewS3Archive() error = %v", err)
	}

	url, err := archive.Upload(context.Background(), filepath.Join("movies", "film.mkv"), output)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	expectedURL := "https://test-bucket.s3.us-east-1.amazonaws.com/movies/film.mkv"
	if url != expectedURL {
		t.Errorf("url = %v, want %v", url, expectedURL)
	}
}

func TestS3Archive_Upload_MissingFile(t *testing.T) {
	cfg := S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        "http://127.0.0.1:1",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}

	archive, err := NewS3Archive(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewS3Archive() error = %v", err)
	}

	_, err = archive.Upload(context.Background(), "missing.mkv", filepath.Join(t.TempDir(), "missing.mkv"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected a not-exist error, got %v", err)
	}
}
