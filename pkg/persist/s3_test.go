package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Fxcilities/state-pool/pkg/store"
)

// fakeS3 is an in-memory S3Client. Pagination is emulated with a
// one-object page size so Clear's continuation loop gets exercised.
type fakeS3 struct {
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Key] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b, ok := f.objects[*params.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(b)),
	}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(params.Prefix)) {
			keys = append(keys, k)
		}
	}

	// Resume after the continuation token, if any.
	start := 0
	if tok := aws.ToString(params.ContinuationToken); tok != "" {
		for i, k := range keys {
			if k == tok {
				start = i + 1
				break
			}
		}
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if start >= len(keys) {
		return out, nil
	}

	out.Contents = []types.Object{{Key: aws.String(keys[start])}}
	if start+1 < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[start])
	}
	return out, nil
}

func TestS3StorageRoundTrip(t *testing.T) {
	client := newFakeS3()
	storage := NewS3Storage(client, "bucket", "state/")

	if err := storage.Save("k", 42, true); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, ok := client.objects["state/k"]; !ok {
		t.Fatalf("object key = %v, want state/k (prefix applied)", client.objects)
	}

	v, found, err := storage.Load("k")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !found {
		t.Fatalf("Load(saved key) found = false")
	}
	if string(v.(json.RawMessage)) != "42" {
		t.Fatalf("loaded value = %s, want 42", v)
	}
}

func TestS3StorageLoadAbsent(t *testing.T) {
	storage := NewS3Storage(newFakeS3(), "bucket", "state/")

	_, found, err := storage.Load("ghost")
	if err != nil {
		t.Fatalf("Load(absent) error = %v, want NoSuchKey mapped to found=false", err)
	}
	if found {
		t.Fatalf("Load(absent key) found = true")
	}
}

func TestS3StorageRemove(t *testing.T) {
	client := newFakeS3()
	storage := NewS3Storage(client, "bucket", "state/")

	storage.Save("k", 1, true)
	if err := storage.Remove("k"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if err := storage.Remove("k"); err != nil {
		t.Fatalf("Remove(absent) error: %v", err)
	}
	if len(client.objects) != 0 {
		t.Fatalf("objects after remove = %v, want none", client.objects)
	}
}

func TestS3StorageClearPaginates(t *testing.T) {
	client := newFakeS3()
	storage := NewS3Storage(client, "bucket", "state/")

	storage.Save("a", 1, true)
	storage.Save("b", 2, true)
	storage.Save("c", 3, true)
	client.objects["other/keep"] = []byte("1")

	if err := storage.Clear(); err != nil {
		t.Fatalf("Clear error: %v", err)
	}

	if len(client.objects) != 1 {
		t.Fatalf("objects after clear = %v, want only other/keep", client.objects)
	}
	if _, ok := client.objects["other/keep"]; !ok {
		t.Fatalf("clear deleted an object outside the prefix")
	}
}

func TestS3StorageBacksStore(t *testing.T) {
	client := newFakeS3()
	storage := NewS3Storage(client, "bucket", "state/")

	s := store.New(store.WithPersistence(storage.Config()))

	cell, err := store.SetState(s, "count", 7, store.WithPersist(true))
	if err != nil {
		t.Fatalf("SetState error: %v", err)
	}
	if string(client.objects["state/count"]) != "7" {
		t.Fatalf("initial save wrote %s, want 7", client.objects["state/count"])
	}

	cell.Set(8)
	if string(client.objects["state/count"]) != "8" {
		t.Fatalf("write-through wrote %s, want 8", client.objects["state/count"])
	}
}
