package azure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"

	"azops-hq/sweeper/pkg/cleanup"
)

// computeAPI is the subset of *armcompute.VirtualMachinesClient used by ComputeClient.
type computeAPI interface {
	NewListAllPager(options *armcompute.VirtualMachinesClientListAllOptions) *runtime.Pager[armcompute.VirtualMachinesClientListAllResponse]
	NewListPager(resourceGroupName string, options *armcompute.VirtualMachinesClientListOptions) *runtime.Pager[armcompute.VirtualMachinesClientListResponse]
	BeginDelete(ctx context.Context, resourceGroupName, vmName string, options *armcompute.VirtualMachinesClientBeginDeleteOptions) (*runtime.Poller[armcompute.VirtualMachinesClientDeleteResponse], error)
}

// ComputeConfig configures a ComputeClient.
type ComputeConfig struct {
	SubscriptionID string

	// ResourceGroups restricts listing to these groups. Empty lists the
	// whole subscription.
	ResourceGroups []string

	// ForceDelete requests a forced deletion of each VM.
	ForceDelete bool
}

// ComputeClient implements cleanup.VMService with armcompute.
type ComputeClient struct {
	api    computeAPI
	cfg    ComputeConfig
	logger *slog.Logger

	// deleteVM is replaced in tests; pollers cannot be faked.
	deleteVM func(ctx context.Context, group, name string) error
}

var _ cleanup.VMService = (*ComputeClient)(nil)

// NewComputeClient creates a ComputeClient for cfg.SubscriptionID.
func NewComputeClient(cfg ComputeConfig, cred azcore.TokenCredential, logger *slog.Logger) (*ComputeClient, error) {
	if cfg.SubscriptionID == "" {
		return nil, errors.New("azure: subscription ID is required")
	}
	vms, err := armcompute.NewVirtualMachinesClient(cfg.SubscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure: create virtual machines client: %w", err)
	}
	return newComputeClient(vms, cfg, logger), nil
}

func newComputeClient(api computeAPI, cfg ComputeConfig, logger *slog.Logger) *ComputeClient {
	if logger == nil {
		logger = slog.Default()
	}
	c := &ComputeClient{
		api:    api,
		cfg:    cfg,
		logger: logger.With("component", "cloud.azure.compute"),
	}
	c.deleteVM = c.beginDelete
	return c
}

// ListVMs lists the virtual machines of the subscription or of the
// configured resource groups.
func (c *ComputeClient) ListVMs(ctx context.Context) ([]cleanup.VM, error) {
	var out []cleanup.VM

	if len(c.cfg.ResourceGroups) == 0 {
		pager := c.api.NewListAllPager(nil)
		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("azure: list virtual machines: %w", err)
			}
			out = appendVMs(out, page.Value, "")
		}
		return out, nil
	}

	for _, group := range c.cfg.ResourceGroups {
		pager := c.api.NewListPager(group, nil)
		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("azure: list virtual machines in %s: %w", group, err)
			}
			out = appendVMs(out, page.Value, group)
		}
	}
	return out, nil
}

// DeleteVM deletes vm and waits for the operation to finish.
func (c *ComputeClient) DeleteVM(ctx context.Context, vm cleanup.VM) error {
	group := vm.ResourceGroup
	if group == "" && vm.ID != "" {
		if id, err := arm.ParseResourceID(vm.ID); err == nil {
			group = id.ResourceGroupName
		}
	}
	if group == "" {
		return fmt.Errorf("azure: resource group unknown for VM %s", vm.Name)
	}

	c.logger.InfoContext(ctx, "deleting virtual machine", "vm", vm.Name, "resource_group", group)
	if err := c.deleteVM(ctx, group, vm.Name); err != nil {
		return fmt.Errorf("azure: delete VM %s/%s: %w", group, vm.Name, err)
	}
	return nil
}

func (c *ComputeClient) beginDelete(ctx context.Context, group, name string) error {
	var opts *armcompute.VirtualMachinesClientBeginDeleteOptions
	if c.cfg.ForceDelete {
		force := true
		opts = &armcompute.VirtualMachinesClientBeginDeleteOptions{ForceDeletion: &force}
	}

	poller, err := c.api.BeginDelete(ctx, group, name, opts)
	if err != nil {
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

func appendVMs(out []cleanup.VM, items []*armcompute.VirtualMachine, group string) []cleanup.VM {
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, toVM(item, group))
	}
	return out
}

func toVM(item *armcompute.VirtualMachine, group string) cleanup.VM {
	vm := cleanup.VM{
		Name:          deref(item.Name),
		ID:            deref(item.ID),
		Location:      deref(item.Location),
		ResourceGroup: group,
	}

	if vm.ResourceGroup == "" && vm.ID != "" {
		if id, err := arm.ParseResourceID(vm.ID); err == nil {
			vm.ResourceGroup = id.ResourceGroupName
		}
	}

	if len(item.Tags) > 0 {
		vm.Tags = make(map[string]string, len(item.Tags))
		for k, v := range item.Tags {
			vm.Tags[k] = deref(v)
		}
	}

	if p := item.Properties; p != nil {
		if p.TimeCreated != nil {
			vm.CreatedAt = p.TimeCreated.UTC()
		}
		if p.HardwareProfile != nil && p.HardwareProfile.VMSize != nil {
			vm.Size = string(*p.HardwareProfile.VMSize)
		}
		vm.ProvisioningState = deref(p.ProvisioningState)
	}
	return vm
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
