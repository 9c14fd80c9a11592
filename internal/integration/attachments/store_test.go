package attachments

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/tair/plantops/pkg/apperr"
)

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	store := NewS3Store(&fakeS3{objects: map[string][]byte{}}, "docs")
	ctx := context.Background()

	if err := store.Put(ctx, "purchase_order/1/a.pdf", []byte("pdf"), "application/pdf"); err != nil {
		t.Fatalf("put: %v", err)
	}
	data, err := store.Get(ctx, "purchase_order/1/a.pdf")
	if err != nil || string(data) != "pdf" {
		t.Fatalf("get: %q %v", data, err)
	}

	if _, err := store.Get(ctx, "missing"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStoreCopiesData(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	buf := []byte("abc")
	_ = store.Put(ctx, "k", buf, "text/plain")
	buf[0] = 'x'

	data, err := store.Get(ctx, "k")
	if err != nil || string(data) != "abc" {
		t.Fatalf("stored data changed: %q %v", data, err)
	}
}

func TestObjectKeyStripsDirectories(t *testing.T) {
	key := ObjectKey("quote_request", 3, `C:\scans\..\note.pdf`)
	if !strings.HasPrefix(key, "quote_request/3/") || !strings.HasSuffix(key, "-note.pdf") {
		t.Fatalf("unexpected key %q", key)
	}
}
