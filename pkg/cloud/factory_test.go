package cloud

import (
	"context"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azops-hq/sweeper/pkg/cloud/azure"
	"azops-hq/sweeper/pkg/cloud/inventory"
	"azops-hq/sweeper/pkg/config"
)

type staticCredential struct{}

func (staticCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "test"}, nil
}

func TestFactory_Inventory(t *testing.T) {
	inv, err := inventory.Parse([]byte("vms: []\n"), inventory.Options{})
	require.NoError(t, err)
	f := NewFactory(Options{Inventory: inv})

	svc, err := f.BlobService(context.Background(), config.StorageAccount{Name: "x", Provider: ProviderS3})
	require.NoError(t, err)
	assert.Same(t, inv, svc)

	vms, err := f.VMService(config.AzureConfig{})
	require.NoError(t, err)
	assert.Same(t, inv, vms)
}

func TestFactory_AzureBlobCached(t *testing.T) {
	f := NewFactory(Options{AzureCredential: staticCredential{}})
	account := config.StorageAccount{Name: "buildartifacts", Provider: ProviderAzure}

	first, err := f.BlobService(context.Background(), account)
	require.NoError(t, err)
	assert.IsType(t, &azure.BlobClient{}, first)

	second, err := f.BlobService(context.Background(), account)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestFactory_UnsupportedProvider(t *testing.T) {
	f := NewFactory(Options{})

	_, err := f.BlobService(context.Background(), config.StorageAccount{Name: "x", Provider: "gcs"})
	assert.ErrorContains(t, err, "unsupported storage provider")
}

func TestFactory_VMServiceRequiresSubscription(t *testing.T) {
	f := NewFactory(Options{AzureCredential: staticCredential{}})

	_, err := f.VMService(config.AzureConfig{})
	assert.Error(t, err)

	svc, err := f.VMService(config.AzureConfig{SubscriptionID: "sub-1", ResourceGroups: []string{"rg-ci"}})
	require.NoError(t, err)
	assert.IsType(t, &azure.ComputeClient{}, svc)
}
