package s3

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	pages     [][]types.Object
	tags      map[string][]types.Tag
	listErr   error
	deleteErr error
	deleted   []string
	prefixes  []string
}

func (f *fakeAPI) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.prefixes = append(f.prefixes, aws.ToString(in.Prefix))

	page := 0
	if in.ContinuationToken != nil {
		page = int((*in.ContinuationToken)[0] - '0')
	}
	out := &s3.ListObjectsV2Output{Contents: f.pages[page]}
	if page+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(string(rune('0' + page + 1)))
	}
	return out, nil
}

func (f *fakeAPI) GetObjectTagging(_ context.Context, in *s3.GetObjectTaggingInput, _ ...func(*s3.Options)) (*s3.GetObjectTaggingOutput, error) {
	return &s3.GetObjectTaggingOutput{TagSet: f.tags[aws.ToString(in.Key)]}, nil
}

func (f *fakeAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func object(key string, size int64, modified time.Time) types.Object {
	return types.Object{Key: aws.String(key), Size: aws.Int64(size), LastModified: aws.Time(modified)}
}

func TestClient_ListBlobs(t *testing.T) {
	modified := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	api := &fakeAPI{
		pages: [][]types.Object{
			{object("builds/build-1.zip", 100, modified)},
			{object("builds/build-2.zip", 200, modified.Add(time.Hour))},
		},
		tags: map[string][]types.Tag{
			"builds/build-2.zip": {{Key: aws.String("retention"), Value: aws.String("permanent")}},
		},
	}
	client := NewWithAPI(api, Config{}, nil)

	blobs, err := client.ListBlobs(context.Background(), "artifacts", "builds/")
	require.NoError(t, err)
	require.Len(t, blobs, 2)

	assert.Equal(t, "builds/build-1.zip", blobs[0].Name)
	assert.Equal(t, "artifacts", blobs[0].Container)
	assert.Equal(t, int64(100), blobs[0].Size)
	assert.Equal(t, modified, blobs[0].LastModified)
	assert.Nil(t, blobs[0].Tags)
	assert.Equal(t, map[string]string{"retention": "permanent"}, blobs[1].Tags)
	assert.Equal(t, []string{"builds/", "builds/"}, api.prefixes)
}

func TestClient_ListBlobsSkipTags(t *testing.T) {
	api := &fakeAPI{
		pages: [][]types.Object{{object("a", 1, time.Now())}},
		tags:  map[string][]types.Tag{"a": {{Key: aws.String("k"), Value: aws.String("v")}}},
	}
	client := NewWithAPI(api, Config{SkipTags: true}, nil)

	blobs, err := client.ListBlobs(context.Background(), "b", "")
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	assert.Nil(t, blobs[0].Tags)
}

func TestClient_ListBlobsError(t *testing.T) {
	client := NewWithAPI(&fakeAPI{listErr: errors.New("access denied")}, Config{}, nil)

	_, err := client.ListBlobs(context.Background(), "b", "")
	var objErr *ObjectError
	require.ErrorAs(t, err, &objErr)
	assert.Equal(t, "list", objErr.Op)
	assert.ErrorContains(t, err, "access denied")
}

func TestClient_DeleteBlob(t *testing.T) {
	api := &fakeAPI{}
	client := NewWithAPI(api, Config{}, nil)

	require.NoError(t, client.DeleteBlob(context.Background(), "artifacts", "build-1.zip"))
	assert.Equal(t, []string{"artifacts/build-1.zip"}, api.deleted)

	api.deleteErr = &types.NoSuchKey{}
	assert.NoError(t, client.DeleteBlob(context.Background(), "artifacts", "gone.zip"))

	api.deleteErr = errors.New("throttled")
	assert.ErrorContains(t, client.DeleteBlob(context.Background(), "artifacts", "x"), "throttled")
}
