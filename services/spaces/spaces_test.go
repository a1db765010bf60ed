package spaces

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "missing", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestFetch(t *testing.T) {
	api := &fakeS3{objects: map[string][]byte{"datasets/courses.json": []byte(`{"courses":[]}`)}}
	c := NewClientWithAPI(api, "reviews")

	data, err := c.Fetch(context.Background(), "datasets/courses.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"courses":[]}`, string(data))

	_, err = c.Fetch(context.Background(), "missing.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestUploadThenFetch(t *testing.T) {
	api := &fakeS3{objects: map[string][]byte{}}
	c := NewClientWithAPI(api, "reviews")

	require.NoError(t, c.Upload(context.Background(), "reports/import.txt", strings.NewReader("ok"), "text/plain"))

	data, err := c.Fetch(context.Background(), "reports/import.txt")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
}

func TestNewClientRequiresBucket(t *testing.T) {
	_, err := NewClient(Config{Region: "nyc3"})
	assert.Error(t, err)
}
