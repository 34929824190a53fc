package artifacts

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

// TestS3Sink returns a sink on an in-memory gofakes3 server with bucket
// already created, built through NewS3Sink the way the CLI builds one.
// The server is closed when the test completes.
func TestS3Sink(t testing.TB, bucket string) *S3Sink {
	t.Helper()

	backend := s3mem.New()
	if err := backend.CreateBucket(bucket); err != nil {
		t.Fatalf("create bucket %s: %v", bucket, err)
	}
	ts := httptest.NewServer(gofakes3.New(backend).Server())
	t.Cleanup(ts.Close)

	sink, err := NewS3Sink(context.Background(), S3Config{
		Endpoint:        ts.URL,
		Region:          "us-east-1",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		Bucket:          bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("artifact sink: %v", err)
	}
	return sink
}
