package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lodging-cli/internal/config"
	"github.com/sells-group/lodging-cli/internal/resilience"
)

var testLayout = Layout{
	ByYearGlob: "processed/by_year/long_*.csv",
	LongCSV:    "processed/all/all_years_long.csv",
	Transition: "raw/Transition.xlsx",
}

const longHeader = "year,city,metric,cat1,table,value\n"

func writeFile(t *testing.T, root, name string, data []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestLayoutPlan(t *testing.T) {
	files := testLayout.plan([]string{
		"processed/by_year/long_2024.csv",
		"processed/by_year/long_2023.csv",
		"processed/by_year/notes.txt",
		"processed/all/all_years_long.csv",
		"raw/Transition.xlsx",
		"raw/R5.xlsx",
	})
	assert.Equal(t, []File{
		{Name: "raw/Transition.xlsx", Kind: KindTransition},
		{Name: "processed/all/all_years_long.csv", Kind: KindLongCSV},
		{Name: "processed/by_year/long_2023.csv", Kind: KindLongCSV},
		{Name: "processed/by_year/long_2024.csv", Kind: KindLongCSV},
	}, files)

	assert.Empty(t, testLayout.plan(nil))
}

func TestDirSource(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "processed/by_year/long_2024.csv", []byte(longHeader))
	writeFile(t, root, "processed/all/all_years_long.csv", []byte(longHeader))

	src := &DirSource{Root: root, Layout: testLayout}
	files, err := src.Files(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []File{
		{Name: "processed/all/all_years_long.csv", Kind: KindLongCSV},
		{Name: "processed/by_year/long_2024.csv", Kind: KindLongCSV},
	}, files)

	rc, err := src.Open(context.Background(), files[0])
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, longHeader, string(data))

	_, err = src.Open(context.Background(), File{Name: "missing.csv"})
	assert.Error(t, err)
	assert.Equal(t, "dir:"+root, src.String())
}

// memS3 serves ListObjectsV2 and GetObject for path-style requests from an
// in-memory bucket.
type memS3 struct {
	objects map[string][]byte
	pageLen int
}

func (m *memS3) RoundTrip(req *http.Request) (*http.Response, error) {
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && strings.Contains(req.URL.RawQuery, "list-type=2") {
		return m.list(req), nil
	}
	if req.Method == http.MethodGet {
		if body, ok := m.objects[key]; ok {
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(body)), Header: http.Header{
				"Content-Length": {fmt.Sprintf("%d", len(body))},
			}}, nil
		}
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader("<Error><Code>NoSuchKey</Code></Error>")),
			Header:     http.Header{"Content-Type": {"application/xml"}},
		}, nil
	}
	return &http.Response{StatusCode: http.StatusNotImplemented, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
}

func (m *memS3) list(req *http.Request) *http.Response {
	prefix := req.URL.Query().Get("prefix")
	after := req.URL.Query().Get("continuation-token")
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) && k > after {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	truncated := m.pageLen > 0 && len(keys) > m.pageLen
	if truncated {
		keys = keys[:m.pageLen]
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult>`)
	fmt.Fprintf(&b, "<IsTruncated>%t</IsTruncated>", truncated)
	if truncated {
		fmt.Fprintf(&b, "<NextContinuationToken>%s</NextContinuationToken>", keys[len(keys)-1])
	}
	for _, k := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size></Contents>", k, len(m.objects[k]))
	}
	b.WriteString("</ListBucketResult>")
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(b.String())), Header: http.Header{"Content-Type": {"application/xml"}}}
}

func newMemS3Client(t *testing.T, m *memS3) *s3.Client {
	t.Helper()
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion("ap-northeast-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: m}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
	})
}

func TestS3Source(t *testing.T) {
	mem := &memS3{pageLen: 2, objects: map[string][]byte{
		"lodging/processed/by_year/long_2023.csv":  []byte(longHeader + "2023,那覇市,rooms,total,scale_class,10\n"),
		"lodging/processed/by_year/long_2024.csv":  []byte(longHeader + "2024,那覇市,rooms,total,scale_class,12\n"),
		"lodging/processed/all/all_years_long.csv": []byte(longHeader),
		"other/processed/by_year/long_2022.csv":    []byte(longHeader),
	}}
	src := &S3Source{Client: newMemS3Client(t, mem), Bucket: "stats", Prefix: "lodging/", Layout: testLayout}

	files, err := src.Files(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []File{
		{Name: "processed/all/all_years_long.csv", Kind: KindLongCSV},
		{Name: "processed/by_year/long_2023.csv", Kind: KindLongCSV},
		{Name: "processed/by_year/long_2024.csv", Kind: KindLongCSV},
	}, files)

	rc, err := src.Open(context.Background(), files[2])
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Contains(t, string(data), "2024,那覇市")

	_, err = src.Open(context.Background(), File{Name: "processed/missing.csv"})
	assert.Error(t, err)
	assert.Equal(t, "s3://stats/lodging/", src.String())
}

func TestNewS3Client(t *testing.T) {
	client, err := NewS3Client(context.Background(), config.S3Config{
		Region:    "ap-northeast-1",
		Endpoint:  "http://localhost:9000",
		PathStyle: true,
		AccessKey: "minio",
		SecretKey: "minio123",
	})
	require.NoError(t, err)
	opts := client.Options()
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://localhost:9000", aws.ToString(opts.BaseEndpoint))
	assert.Equal(t, "ap-northeast-1", opts.Region)
	assert.Equal(t, 1, opts.RetryMaxAttempts)
}

// flakyS3 refuses the first call of each operation.
type flakyS3 struct {
	S3API
	lists, gets int
}

func (f *flakyS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.lists++
	if f.lists == 1 {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	}
	return &s3.ListObjectsV2Output{Contents: []types.Object{{Key: aws.String("processed/all/all_years_long.csv")}}}, nil
}

func (f *flakyS3) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gets++
	if f.gets == 1 {
		return nil, &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(longHeader))}, nil
}

func TestS3Source_RetriesTransientFailures(t *testing.T) {
	api := &flakyS3{}
	src := &S3Source{
		Client: api,
		Bucket: "stats",
		Layout: testLayout,
		Retry:  resilience.Policy{Attempts: 2, Backoff: time.Millisecond},
	}

	files, err := src.Files(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, 2, api.lists)

	rc, err := src.Open(context.Background(), files[0])
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, 2, api.gets)
}
