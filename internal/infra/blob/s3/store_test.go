package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"hsecore/internal/blob/core"
)

type fakeObject struct {
	body        []byte
	contentType string
	metadata    map[string]string
}

// fakeAPI is an in-memory bucket that pages List results one key at a time.
type fakeAPI struct {
	objects map[string]fakeObject
	puts    int
	putErr  error
}

func newFakeAPI() *fakeAPI { return &fakeAPI{objects: map[string]fakeObject{}} }

func (f *fakeAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.body))),
		ContentType:   aws.String(obj.contentType),
		ETag:          aws.String(`"etag-` + aws.ToString(in.Key) + `"`),
		Metadata:      obj.metadata,
		LastModified:  aws.Time(time.Date(2024, 9, 22, 9, 0, 0, 0, time.UTC)),
	}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.body)),
		ContentLength: aws.Int64(int64(len(obj.body))),
		ContentType:   aws.String(obj.contentType),
		Metadata:      obj.metadata,
	}, nil
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts++
	f.objects[aws.ToString(in.Key)] = fakeObject{body: body, contentType: aws.ToString(in.ContentType), metadata: in.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeAPI) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if start < len(keys) {
		k := keys[start]
		out.Contents = []types.Object{{Key: aws.String(k), Size: aws.Int64(int64(len(f.objects[k].body)))}}
		if start+1 < len(keys) {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = aws.String(strconv.Itoa(start + 1))
		}
	}
	return out, nil
}

func testPresigner() *s3.PresignClient {
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider("AKIDTEST", "SECRET", ""),
		BaseEndpoint: aws.String("http://minio.local:9000"),
		UsePathStyle: true,
	})
	return s3.NewPresignClient(client)
}

func TestStoreObjectLifecycle(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newStore(api, testPresigner(), "hse-exports")

	info, err := store.Put(ctx, "exports/medicines/a.csv", strings.NewReader("id\nm1\n"), core.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"collection": "medicines"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 6 || info.ContentType != "text/csv" || info.ETag != "etag-exports/medicines/a.csv" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "exports/medicines/a.csv", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if api.puts != 1 {
		t.Fatalf("duplicate put must not upload, puts=%d", api.puts)
	}

	got, body, err := store.Get(ctx, "exports/medicines/a.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(body)
	_ = body.Close()
	if string(data) != "id\nm1\n" || got.Metadata["collection"] != "medicines" {
		t.Fatalf("unexpected object %+v %q", got, data)
	}

	for _, key := range []string{"exports/visits/b.json", "exports/incidents/c.csv"} {
		if _, err := store.Put(ctx, key, strings.NewReader("[]"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].Key != "exports/incidents/c.csv" || list[2].Key != "exports/visits/b.json" {
		t.Fatalf("unexpected paged list %+v", list)
	}

	deleted, err := store.Delete(ctx, "exports/visits/b.json")
	if err != nil || !deleted {
		t.Fatalf("expected delete, got %v %v", deleted, err)
	}
	if deleted, err := store.Delete(ctx, "exports/visits/b.json"); err != nil || deleted {
		t.Fatalf("second delete should be false, got %v %v", deleted, err)
	}
	if _, _, err := store.Get(ctx, "exports/visits/b.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
	if _, err := store.Head(ctx, "exports/visits/b.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
}

func TestStorePutError(t *testing.T) {
	api := newFakeAPI()
	api.putErr = errors.New("denied")
	store := newStore(api, testPresigner(), "hse-exports")
	if _, err := store.Put(context.Background(), "k", strings.NewReader("x"), core.PutOptions{}); err == nil || !strings.Contains(err.Error(), "denied") {
		t.Fatalf("expected wrapped put error, got %v", err)
	}
	if _, err := store.Put(context.Background(), "", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestStorePresignURL(t *testing.T) {
	store := newStore(newFakeAPI(), testPresigner(), "hse-exports")
	url, err := store.PresignURL(context.Background(), "exports/a.csv", core.SignedURLOptions{Expiry: 5 * time.Minute})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.Contains(url, "/hse-exports/exports/a.csv") || !strings.Contains(url, "X-Amz-Signature") || !strings.Contains(url, "X-Amz-Expires=300") {
		t.Fatalf("unexpected presigned url %s", url)
	}
	if _, err := store.PresignURL(context.Background(), "exports/a.csv", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for PUT, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
	t.Setenv(EnvBucket, "")
	if _, err := OpenFromEnv(context.Background()); err == nil || !strings.Contains(err.Error(), EnvBucket) {
		t.Fatalf("expected missing bucket error, got %v", err)
	}
}

func TestOpenFromEnvStaticCredentials(t *testing.T) {
	t.Setenv(EnvBucket, "hse-exports")
	t.Setenv(EnvRegion, "eu-central-1")
	t.Setenv(EnvEndpoint, "http://minio.local:9000")
	t.Setenv(EnvPathStyle, "true")
	t.Setenv(EnvAccessKeyID, "AKIDENV")
	t.Setenv(EnvSecretAccessKey, "SECRET")
	store, err := OpenFromEnv(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != core.DriverS3 || store.Bucket() != "hse-exports" {
		t.Fatalf("unexpected store %+v", store)
	}
	url, err := store.PresignURL(context.Background(), "exports/a.csv", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(url, "http://minio.local:9000/hse-exports/exports/a.csv") || !strings.Contains(url, "AKIDENV") {
		t.Fatalf("unexpected url %s", url)
	}
}
