package azure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"azops-hq/sweeper/pkg/cleanup"
)

// blobAPI is the subset of *azblob.Client used by BlobClient.
type blobAPI interface {
	NewListBlobsFlatPager(containerName string, o *azblob.ListBlobsFlatOptions) *runtime.Pager[azblob.ListBlobsFlatResponse]
	DeleteBlob(ctx context.Context, containerName, blobName string, o *azblob.DeleteBlobOptions) (azblob.DeleteBlobResponse, error)
}

// BlobConfig configures a BlobClient.
type BlobConfig struct {
	// AccountName is the storage account. It forms the default service URL.
	AccountName string

	// Endpoint overrides the service URL, e.g. an Azurite endpoint.
	Endpoint string

	// ConnectionString authenticates with a shared key instead of a token
	// credential. It takes precedence over Endpoint.
	ConnectionString string
}

// ServiceURL returns the blob endpoint of the account.
func (c BlobConfig) ServiceURL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net/", c.AccountName)
}

// BlobClient implements cleanup.BlobService with azblob.
type BlobClient struct {
	api     blobAPI
	account string
	logger  *slog.Logger
}

var _ cleanup.BlobService = (*BlobClient)(nil)

// NewBlobClient creates a BlobClient. cred is ignored when cfg carries a
// connection string.
func NewBlobClient(cfg BlobConfig, cred azcore.TokenCredential, logger *slog.Logger) (*BlobClient, error) {
	var (
		client *azblob.Client
		err    error
	)
	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	case cfg.AccountName == "" && cfg.Endpoint == "":
		return nil, errors.New("azure: storage account name or endpoint is required")
	default:
		client, err = azblob.NewClient(cfg.ServiceURL(), cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("azure: create blob client: %w", err)
	}
	return newBlobClient(client, cfg.AccountName, logger), nil
}

func newBlobClient(api blobAPI, account string, logger *slog.Logger) *BlobClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobClient{
		api:     api,
		account: account,
		logger:  logger.With("component", "cloud.azure.blob", "account", account),
	}
}

// ListBlobs lists the blobs of container under prefix with their index tags.
func (c *BlobClient) ListBlobs(ctx context.Context, container, prefix string) ([]cleanup.Blob, error) {
	opts := &azblob.ListBlobsFlatOptions{
		Include: azblob.ListBlobsInclude{Tags: true},
	}
	if prefix != "" {
		opts.Prefix = to.Ptr(prefix)
	}

	var blobs []cleanup.Blob
	pager := c.api.NewListBlobsFlatPager(container, opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("azure: list blobs in %s: %w", container, err)
		}
		if page.Segment == nil {
			continue
		}

		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			blob := cleanup.Blob{Name: *item.Name, Container: container}
			if p := item.Properties; p != nil {
				if p.LastModified != nil {
					blob.LastModified = p.LastModified.UTC()
				}
				if p.ContentLength != nil {
					blob.Size = *p.ContentLength
				}
			}
			if item.BlobTags != nil && len(item.BlobTags.BlobTagSet) > 0 {
				blob.Tags = make(map[string]string, len(item.BlobTags.BlobTagSet))
				for _, tag := range item.BlobTags.BlobTagSet {
					if tag != nil && tag.Key != nil {
						blob.Tags[*tag.Key] = deref(tag.Value)
					}
				}
			}
			blobs = append(blobs, blob)
		}
	}

	c.logger.DebugContext(ctx, "listed blobs", "container", container, "prefix", prefix, "count", len(blobs))
	return blobs, nil
}

// DeleteBlob deletes a blob with its snapshots. A missing blob is not an error.
func (c *BlobClient) DeleteBlob(ctx context.Context, container, name string) error {
	_, err := c.api.DeleteBlob(ctx, container, name, &azblob.DeleteBlobOptions{
		DeleteSnapshots: to.Ptr(azblob.DeleteSnapshotsOptionTypeInclude),
	})
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			c.logger.WarnContext(ctx, "blob already deleted", "container", container, "blob", name)
			return nil
		}
		return fmt.Errorf("azure: delete blob %s/%s: %w", container, name, err)
	}
	return nil
}
