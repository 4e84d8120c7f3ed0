package blockstorage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

const sampleManifest = `
topicDirectives:
  - topic: orders
    role: producer
  - topic: receipts
    role: consumer
    eventFilters:
      - eventType: OrderReceived
        version: "1"
userGluePackages:
  - github.com/example/glue
tags:
  team: commerce
`

type fakeS3 struct {
	getObjectFunc func(*s3.GetObjectInput) (*s3.GetObjectOutput, error)
	listObjects   []types.Object
	putObjects    map[string][]byte
}

func (f *fakeS3) GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return f.getObjectFunc(input)
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putObjects == nil {
		f.putObjects = make(map[string][]byte)
	}
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.putObjects[aws.ToString(input.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return &s3.ListObjectsV2Output{Contents: f.listObjects}, nil
}

func TestAdapter_Fetch_ParsesManifestAndFeatureFiles(t *testing.T) {
	testID := domain.NewTestID()
	prefix := bundlePrefix(testID)

	fake := &fakeS3{
		getObjectFunc: func(input *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(sampleManifest))}, nil
		},
		listObjects: []types.Object{
			{Key: aws.String(prefix + "/scenarios/order_flow.feature")},
			{Key: aws.String(prefix + "/directive.yaml")},
		},
	}
	adapter := NewWithClient(fake)

	directive, err := adapter.Fetch(context.Background(), testID, "test-bucket")
	require.NoError(t, err)

	require.Len(t, directive.TopicDirectives, 2)
	assert.Equal(t, "orders", directive.TopicDirectives[0].Topic)
	assert.Equal(t, domain.RoleProducer, directive.TopicDirectives[0].Role)
	assert.Equal(t, "receipts", directive.TopicDirectives[1].Topic)
	require.Len(t, directive.TopicDirectives[1].EventFilters, 1)
	assert.Equal(t, "OrderReceived", directive.TopicDirectives[1].EventFilters[0].EventType)
	assert.Equal(t, []string{"github.com/example/glue"}, directive.UserGluePackages)
	assert.Equal(t, "commerce", directive.Tags["team"])
	require.Len(t, directive.FeatureFiles, 1)
	assert.Equal(t, "scenarios/order_flow.feature", directive.FeatureFiles[0])
}

const manifestWithBootstrapOverrides = `
topicDirectives:
  - topic: orders
    role: producer
  - topic: receipts
    role: consumer
    bootstrapServers: ""
  - topic: shipments
    role: producer
    bootstrapServers: "broker1:9092"
`

func TestAdapter_Fetch_DistinguishesOmittedFromEmptyBootstrapOverride(t *testing.T) {
	testID := domain.NewTestID()
	prefix := bundlePrefix(testID)

	fake := &fakeS3{
		getObjectFunc: func(input *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(manifestWithBootstrapOverrides))}, nil
		},
		listObjects: []types.Object{{Key: aws.String(prefix + "/directive.yaml")}},
	}
	adapter := NewWithClient(fake)

	directive, err := adapter.Fetch(context.Background(), testID, "test-bucket")
	require.NoError(t, err)
	require.Len(t, directive.TopicDirectives, 3)

	assert.Nil(t, directive.TopicDirectives[0].BootstrapServers, "omitted key must decode to nil, not an empty override")
	if assert.NotNil(t, directive.TopicDirectives[1].BootstrapServers) {
		assert.Equal(t, "", *directive.TopicDirectives[1].BootstrapServers)
	}
	if assert.NotNil(t, directive.TopicDirectives[2].BootstrapServers) {
		assert.Equal(t, "broker1:9092", *directive.TopicDirectives[2].BootstrapServers)
	}
}

func TestAdapter_Store_UploadsEveryFileUnderEvidenceDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cucumber.json"), []byte(`{"ok":true}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logs", "run.log"), []byte("log line"), 0o644))

	fake := &fakeS3{}
	adapter := NewWithClient(fake)
	testID := domain.NewTestID()

	err := adapter.Store(context.Background(), testID, "test-bucket", dir)
	require.NoError(t, err)

	require.Len(t, fake.putObjects, 2)
	prefix := bundlePrefix(testID) + "/evidence/"
	assert.Contains(t, fake.putObjects, prefix+"cucumber.json")
	assert.Contains(t, fake.putObjects, prefix+filepath.Join("logs", "run.log"))
}
