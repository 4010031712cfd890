// Package inventory is an offline VM and blob service backed by a YAML
// file. It lets operators rehearse cleanups against a snapshot of their
// estate and serves as the fake collaborator in end-to-end tests.
//
// File format:
//
//	vms:
//	  - name: vhds-ci-wat-template-26-1-0.beta-20260201120000
//	    resource_group: rg-ci
//	    created_at: 2026-02-01T12:00:00Z
//	    tags: {owner: ci}
//	blobs:
//	  ci-builds:
//	    - name: build-2026-02-10.zip
//	      last_modified: 2026-02-10T00:00:00Z
//	      size: 104857600
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"azops-hq/sweeper/pkg/cleanup"
)

// ErrNotFound is wrapped by deletes of unknown resources.
var ErrNotFound = errors.New("inventory: resource not found")

type file struct {
	VMs   []cleanup.VM              `yaml:"vms"`
	Blobs map[string][]cleanup.Blob `yaml:"blobs"`
}

// Inventory holds VMs and blobs in memory. Deletions remove entries and,
// when Persist is set, rewrite the backing file.
type Inventory struct {
	path    string
	persist bool
	logger  *slog.Logger

	mu    sync.Mutex
	vms   []cleanup.VM
	blobs map[string][]cleanup.Blob
}

var (
	_ cleanup.VMService   = (*Inventory)(nil)
	_ cleanup.BlobService = (*Inventory)(nil)
)

// Options configures Load.
type Options struct {
	// Persist writes the file back after every deletion.
	Persist bool

	Logger *slog.Logger
}

// Load reads an inventory file.
func Load(path string, opts Options) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}
	inv, err := Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("parse inventory %s: %w", path, err)
	}
	inv.path = path
	return inv, nil
}

// Parse builds an in-memory inventory from YAML. Persist is ignored.
func Parse(data []byte, opts Options) (*Inventory, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	inv := &Inventory{
		persist: opts.Persist,
		logger:  logger.With("component", "cloud.inventory"),
		vms:     f.VMs,
		blobs:   make(map[string][]cleanup.Blob, len(f.Blobs)),
	}
	for container, blobs := range f.Blobs {
		for i := range blobs {
			blobs[i].Container = container
		}
		inv.blobs[container] = blobs
	}
	return inv, nil
}

// ListVMs implements cleanup.VMService.
func (inv *Inventory) ListVMs(ctx context.Context) ([]cleanup.VM, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return append([]cleanup.VM(nil), inv.vms...), nil
}

// DeleteVM implements cleanup.VMService.
func (inv *Inventory) DeleteVM(ctx context.Context, vm cleanup.VM) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()

	for i, v := range inv.vms {
		if v.Name == vm.Name && v.ResourceGroup == vm.ResourceGroup {
			inv.vms = append(inv.vms[:i], inv.vms[i+1:]...)
			inv.logger.InfoContext(ctx, "removed VM from inventory", "vm", vm.Name, "resource_group", vm.ResourceGroup)
			return inv.save()
		}
	}
	return fmt.Errorf("%w: VM %s/%s", ErrNotFound, vm.ResourceGroup, vm.Name)
}

// ListBlobs implements cleanup.BlobService.
func (inv *Inventory) ListBlobs(ctx context.Context, container, prefix string) ([]cleanup.Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()

	var out []cleanup.Blob
	for _, b := range inv.blobs[container] {
		if strings.HasPrefix(b.Name, prefix) {
			out = append(out, b)
		}
	}
	return out, nil
}

// DeleteBlob implements cleanup.BlobService.
func (inv *Inventory) DeleteBlob(ctx context.Context, container, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()

	blobs := inv.blobs[container]
	for i, b := range blobs {
		if b.Name == name {
			inv.blobs[container] = append(blobs[:i], blobs[i+1:]...)
			inv.logger.InfoContext(ctx, "removed blob from inventory", "container", container, "blob", name)
			return inv.save()
		}
	}
	return fmt.Errorf("%w: blob %s/%s", ErrNotFound, container, name)
}

// Containers returns the container names, sorted.
func (inv *Inventory) Containers() []string {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	names := make([]string, 0, len(inv.blobs))
	for name := range inv.blobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// save rewrites the backing file. Callers hold inv.mu.
func (inv *Inventory) save() error {
	if !inv.persist || inv.path == "" {
		return nil
	}

	data, err := yaml.Marshal(file{VMs: inv.vms, Blobs: inv.blobs})
	if err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}
	tmp := inv.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write inventory: %w", err)
	}
	if err := os.Rename(tmp, inv.path); err != nil {
		return fmt.Errorf("write inventory: %w", err)
	}
	return nil
}
