package storagechild

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

type fakeStorage struct {
	fetchResult domain.BlockStorageDirective
	fetchErr    error
	storeErr    error
	storeCalled bool
}

func (f *fakeStorage) Fetch(ctx context.Context, testID domain.TestID, bucket string) (domain.BlockStorageDirective, error) {
	return f.fetchResult, f.fetchErr
}

func (f *fakeStorage) Store(ctx context.Context, testID domain.TestID, bucket, evidenceDir string) error {
	f.storeCalled = true
	return f.storeErr
}

func TestChild_Load_ReturnsDirectiveOnSuccess(t *testing.T) {
	fake := &fakeStorage{fetchResult: domain.BlockStorageDirective{Bucket: "b"}}
	c := New(fake)

	directive, err := c.Load(context.Background(), domain.NewTestID(), "b")
	require.NoError(t, err)
	assert.Equal(t, "b", directive.Bucket)
}

func TestChild_Load_WrapsError(t *testing.T) {
	fake := &fakeStorage{fetchErr: errors.New("not found")}
	c := New(fake)

	_, err := c.Load(context.Background(), domain.NewTestID(), "b")
	assert.Error(t, err)
}

func TestChild_Store_DelegatesToCollaborator(t *testing.T) {
	fake := &fakeStorage{}
	c := New(fake)

	err := c.Store(context.Background(), domain.NewTestID(), "b", "/tmp/evidence")
	require.NoError(t, err)
	assert.True(t, fake.storeCalled)
}
