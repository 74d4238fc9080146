package upload

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuxthub/cli/internal/assets"
)

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	puts    int
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[aws.ToString(in.Key)]; ok {
		return &s3.HeadObjectOutput{}, nil
	}
	return nil, errors.New("NotFound")
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts++
	f.objects[aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestS3TargetSkipsExistingKeys(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"assets/existing": []byte("x")}, types: map[string]string{}}
	target := NewS3TargetWithClient(fake, "bucket", "assets")

	batch := []assets.FileArtifact{
		{Path: "/a.css", Data: []byte("body{}"), Size: 6, ContentType: "text/css; charset=utf-8", Hash: "existing"},
		{Path: "/b.js", Data: []byte("1"), Size: 1, ContentType: "application/javascript", Hash: "fresh"},
	}
	require.NoError(t, target.UploadBatch(context.Background(), batch))

	assert.Equal(t, 1, fake.puts)
	assert.Equal(t, []byte("1"), fake.objects["assets/fresh"])
	assert.Equal(t, "application/javascript", fake.types["assets/fresh"])
}

func TestNewS3TargetRequiresBucket(t *testing.T) {
	_, err := NewS3Target(context.Background(), S3Options{})
	assert.Error(t, err)
}
