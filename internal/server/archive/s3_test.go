package archive

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/finsync/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestKey(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	got := Key(time.Date(2024, 3, 1, 2, 0, 0, 0, loc), "abc")
	assert.Equal(t, "inbound/2024/02/29/abc.json", got)
}

func TestS3Archive_Store(t *testing.T) {
	f := &fakeS3{}
	a := New(f, "inbound-bucket")
	a.now = func() time.Time { return time.Date(2024, 11, 5, 12, 0, 0, 0, time.UTC) }
	a.newID = func() string { return "id-1" }

	key, err := a.Store(context.Background(), []byte(`{"to":"a@b"}`))

	require.NoError(t, err)
	assert.Equal(t, "inbound/2024/11/05/id-1.json", key)
	assert.Equal(t, "inbound-bucket", aws.ToString(f.input.Bucket))
	assert.Equal(t, key, aws.ToString(f.input.Key))
	assert.Equal(t, "application/json", aws.ToString(f.input.ContentType))
	assert.Equal(t, int64(12), aws.ToInt64(f.input.ContentLength))
	assert.Equal(t, `{"to":"a@b"}`, string(f.body))
}

func TestS3Archive_StoreError(t *testing.T) {
	a := New(&fakeS3{err: errors.New("access denied")}, "b")

	_, err := a.Store(context.Background(), []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestS3Archive_DefaultIDsAreUnique(t *testing.T) {
	f := &fakeS3{}
	a := New(f, "b")

	k1, err := a.Store(context.Background(), []byte("{}"))
	require.NoError(t, err)
	k2, err := a.Store(context.Background(), []byte("{}"))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestNewS3Client(t *testing.T) {
	c, err := NewS3Client(context.Background(), &config.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "admin",
		S3RootPassword: "secret",
		S3BaseEndpoint: "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", c.Options().Region)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(c.Options().BaseEndpoint))
	assert.True(t, c.Options().UsePathStyle)
}
