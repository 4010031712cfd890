// Package cloud selects the concrete VM and blob services for a run.
//
// Providers:
//
//	azure      Azure Resource Manager and Azure Blob Storage
//	s3         Amazon S3 or an S3-compatible endpoint
//	inventory  a local YAML snapshot (see package inventory)
package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"azops-hq/sweeper/pkg/cleanup"
	"azops-hq/sweeper/pkg/cloud/azure"
	"azops-hq/sweeper/pkg/cloud/inventory"
	"azops-hq/sweeper/pkg/cloud/s3"
	"azops-hq/sweeper/pkg/config"
)

// Provider names accepted in storage_accounts[].provider.
const (
	ProviderAzure     = "azure"
	ProviderS3        = "s3"
	ProviderInventory = "inventory"
)

// Options configures a Factory.
type Options struct {
	// Inventory, when set, serves every account and every VM.
	Inventory *inventory.Inventory

	// AzureCredential overrides the default Azure credential chain.
	AzureCredential azcore.TokenCredential

	// AzureConnectionString authenticates Azure blob accounts with a shared key.
	AzureConnectionString string

	// S3 holds settings shared by every s3 account. Region and Endpoint of
	// the account take precedence.
	S3 s3.Config

	Logger *slog.Logger
}

// Factory builds and caches services per storage account.
type Factory struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	cred     azcore.TokenCredential
	services map[string]cleanup.BlobService
}

// NewFactory creates a Factory.
func NewFactory(opts Options) *Factory {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		opts:     opts,
		logger:   logger,
		cred:     opts.AzureCredential,
		services: make(map[string]cleanup.BlobService),
	}
}

// BlobService implements cleanup.BlobServiceFactory.
func (f *Factory) BlobService(ctx context.Context, account config.StorageAccount) (cleanup.BlobService, error) {
	if f.opts.Inventory != nil {
		return f.opts.Inventory, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := account.Provider + "/" + account.Name
	if svc, ok := f.services[key]; ok {
		return svc, nil
	}

	var (
		svc cleanup.BlobService
		err error
	)
	switch account.Provider {
	case ProviderAzure, "":
		svc, err = f.azureBlob(account)
	case ProviderS3:
		cfg := f.opts.S3
		if account.Region != "" {
			cfg.Region = account.Region
		}
		if account.Endpoint != "" {
			cfg.Endpoint = account.Endpoint
		}
		svc, err = s3.New(ctx, cfg)
	default:
		err = fmt.Errorf("unsupported storage provider %q", account.Provider)
	}
	if err != nil {
		return nil, err
	}

	f.services[key] = svc
	f.logger.Debug("blob service created", "account", account.Name, "provider", account.Provider)
	return svc, nil
}

func (f *Factory) azureBlob(account config.StorageAccount) (cleanup.BlobService, error) {
	cfg := azure.BlobConfig{
		AccountName:      account.Name,
		Endpoint:         account.Endpoint,
		ConnectionString: f.opts.AzureConnectionString,
	}
	var cred azcore.TokenCredential
	if cfg.ConnectionString == "" {
		var err error
		if cred, err = f.credential(); err != nil {
			return nil, err
		}
	}
	return azure.NewBlobClient(cfg, cred, f.logger)
}

// VMService returns the inventory or an Azure compute client for the
// subscription and resource groups of the azure_resources document.
func (f *Factory) VMService(cfg config.AzureConfig) (cleanup.VMService, error) {
	if f.opts.Inventory != nil {
		return f.opts.Inventory, nil
	}

	f.mu.Lock()
	cred, err := f.credential()
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return azure.NewComputeClient(azure.ComputeConfig{
		SubscriptionID: cfg.SubscriptionID,
		ResourceGroups: cfg.ResourceGroups,
	}, cred, f.logger)
}

// credential returns the Azure credential, creating it once. Callers hold f.mu.
func (f *Factory) credential() (azcore.TokenCredential, error) {
	if f.cred != nil {
		return f.cred, nil
	}
	cred, err := azure.DefaultCredential()
	if err != nil {
		return nil, err
	}
	f.cred = cred
	return cred, nil
}
