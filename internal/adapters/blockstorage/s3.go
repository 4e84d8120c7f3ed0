// Package blockstorage is the concrete StorageFunctions (C5) implementation
// backed by S3-compatible object storage. Grounded on the teacher's
// mapbox adapter shape (one small HTTP/SDK client struct per external
// dependency, wrapped behind the domain's collaborator interface) and on
// aws-sdk-go-v2 usage conventions from the rest of the pack.
package blockstorage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gopkg.in/yaml.v3"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

const directiveObjectName = "directive.yaml"

// S3Client is the subset of *s3.Client the adapter calls, narrowed for
// testability.
type S3Client interface {
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Adapter implements domain.StorageFunctions.
type Adapter struct {
	client S3Client
}

var _ domain.StorageFunctions = (*Adapter)(nil)

// New builds an Adapter from the default AWS config chain (env vars,
// shared config file, instance role).
func New(ctx context.Context) (*Adapter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Adapter{client: s3.NewFromConfig(cfg)}, nil
}

// NewWithClient builds an Adapter around an already-configured client,
// used by tests to inject a fake.
func NewWithClient(client S3Client) *Adapter {
	return &Adapter{client: client}
}

// Fetch downloads the test bundle's directive manifest and enumerates its
// feature files, returning the parsed BlockStorageDirective.
func (a *Adapter) Fetch(ctx context.Context, testID domain.TestID, bucket string) (domain.BlockStorageDirective, error) {
	prefix := bundlePrefix(testID)

	obj, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path.Join(prefix, directiveObjectName)),
	})
	if err != nil {
		return domain.BlockStorageDirective{}, fmt.Errorf("fetch directive manifest: %w", err)
	}
	defer obj.Body.Close()

	raw, err := io.ReadAll(obj.Body)
	if err != nil {
		return domain.BlockStorageDirective{}, fmt.Errorf("read directive manifest: %w", err)
	}

	var manifest directiveManifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return domain.BlockStorageDirective{}, fmt.Errorf("parse directive manifest: %w", err)
	}

	features, err := a.listFeatureFiles(ctx, bucket, prefix)
	if err != nil {
		return domain.BlockStorageDirective{}, err
	}

	return manifest.toDomain(bucket, prefix, features), nil
}

// Store uploads every file under evidenceDir to
// {bucket}/tests/{testId}/evidence/.
func (a *Adapter) Store(ctx context.Context, testID domain.TestID, bucket, evidenceDir string) error {
	files, err := listLocalFiles(evidenceDir)
	if err != nil {
		return fmt.Errorf("enumerate evidence dir: %w", err)
	}

	destPrefix := path.Join(bundlePrefix(testID), "evidence")
	for _, f := range files {
		body, err := readLocalFile(f.fullPath)
		if err != nil {
			return fmt.Errorf("read evidence file %q: %w", f.relPath, err)
		}
		_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(path.Join(destPrefix, f.relPath)),
			Body:   bytes.NewReader(body),
		})
		if err != nil {
			return fmt.Errorf("upload evidence file %q: %w", f.relPath, err)
		}
	}
	return nil
}

func (a *Adapter) listFeatureFiles(ctx context.Context, bucket, prefix string) ([]string, error) {
	out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("list bundle objects: %w", err)
	}

	var features []string
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if strings.HasSuffix(key, ".feature") {
			features = append(features, strings.TrimPrefix(key, prefix+"/"))
		}
	}
	return features, nil
}

func bundlePrefix(testID domain.TestID) string {
	return path.Join("tests", testID.String())
}

// directiveManifest is the on-disk shape of directive.yaml (spec §4.5,
// §6.4), kept separate from domain.BlockStorageDirective so a manifest
// format change doesn't ripple into the engine's types.
type directiveManifest struct {
	TopicDirectives  []manifestTopicDirective `yaml:"topicDirectives"`
	UserGluePackages []string                 `yaml:"userGluePackages"`
	Tags             map[string]string        `yaml:"tags"`
}

type manifestTopicDirective struct {
	Topic           string                `yaml:"topic"`
	Role            string                `yaml:"role"`
	ClientPrincipal string                `yaml:"clientPrincipal"`
	EventFilters    []manifestEventFilter `yaml:"eventFilters"`
	Metadata        map[string]string     `yaml:"metadata"`
	// *string so an omitted key (nil) and an explicit bootstrapServers: ""
	// (non-nil, empty) decode to distinct values; the latter is invalid
	// per spec §4.11 rather than a synonym for "no override".
	BootstrapServers *string `yaml:"bootstrapServers"`
}

type manifestEventFilter struct {
	EventType string `yaml:"eventType"`
	Version   string `yaml:"version"`
}

func (m directiveManifest) toDomain(bucket, prefix string, features []string) domain.BlockStorageDirective {
	directives := make([]domain.TopicDirective, 0, len(m.TopicDirectives))
	for _, td := range m.TopicDirectives {
		filters := make([]domain.EventFilter, 0, len(td.EventFilters))
		for _, f := range td.EventFilters {
			filters = append(filters, domain.EventFilter{EventType: f.EventType, Version: f.Version})
		}
		directives = append(directives, domain.TopicDirective{
			Topic:            td.Topic,
			Role:             domain.TopicRole(td.Role),
			ClientPrincipal:  td.ClientPrincipal,
			EventFilters:     filters,
			Metadata:         td.Metadata,
			BootstrapServers: td.BootstrapServers,
		})
	}

	return domain.BlockStorageDirective{
		ObjectStorageLocation: path.Join(bucket, prefix),
		EvidenceDir:           path.Join(prefix, "evidence"),
		Bucket:                bucket,
		TopicDirectives:       directives,
		UserGluePackages:      m.UserGluePackages,
		Tags:                  m.Tags,
		FeatureFiles:          features,
	}
}
