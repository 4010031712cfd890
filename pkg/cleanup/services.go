package cleanup

import (
	"context"
	"errors"
	"time"

	"azops-hq/sweeper/pkg/config"
)

var (
	// ErrUnknownPattern is returned for a VM pattern type that is not declared.
	ErrUnknownPattern = errors.New("unknown VM pattern type")

	// ErrUnknownArtifactType is returned for a blob artifact type without a retention policy.
	ErrUnknownArtifactType = errors.New("unknown artifact type")

	// ErrNoContainers is returned when neither the policy nor its storage
	// account names a container.
	ErrNoContainers = errors.New("no containers configured")

	// ErrUnknownStorageAccount is returned for an account missing from storage_accounts.
	ErrUnknownStorageAccount = errors.New("unknown storage account")
)

// VM is a virtual machine as reported by a VMService. CreatedAt is zero when
// the backend does not report a creation time.
type VM struct {
	Name              string            `json:"name" yaml:"name"`
	ResourceGroup     string            `json:"resource_group" yaml:"resource_group"`
	ID                string            `json:"id,omitempty" yaml:"id"`
	Location          string            `json:"location,omitempty" yaml:"location"`
	Size              string            `json:"vm_size,omitempty" yaml:"vm_size"`
	ProvisioningState string            `json:"provisioning_state,omitempty" yaml:"provisioning_state"`
	CreatedAt         time.Time         `json:"created_date" yaml:"created_at"`
	Tags              map[string]string `json:"tags,omitempty" yaml:"tags"`
}

// VMService lists and deletes virtual machines.
type VMService interface {
	ListVMs(ctx context.Context) ([]VM, error)
	DeleteVM(ctx context.Context, vm VM) error
}

// Blob is a stored object as reported by a BlobService.
type Blob struct {
	Name         string            `json:"name" yaml:"name"`
	Container    string            `json:"container" yaml:"container"`
	LastModified time.Time         `json:"last_modified" yaml:"last_modified"`
	Size         int64             `json:"size" yaml:"size"`
	Tags         map[string]string `json:"tags,omitempty" yaml:"tags"`
}

// BlobService lists and deletes blobs of one storage account.
type BlobService interface {
	// ListBlobs returns the blobs of container whose names start with prefix.
	ListBlobs(ctx context.Context, container, prefix string) ([]Blob, error)
	DeleteBlob(ctx context.Context, container, name string) error
}

// BlobServiceFactory returns the BlobService for a configured storage account.
type BlobServiceFactory func(ctx context.Context, account config.StorageAccount) (BlobService, error)

// StaticBlobService returns a factory that serves every account with svc.
func StaticBlobService(svc BlobService) BlobServiceFactory {
	return func(context.Context, config.StorageAccount) (BlobService, error) {
		return svc, nil
	}
}
