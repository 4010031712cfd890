// Package azure implements the VM and blob services used by cleanup on top
// of the Azure SDK.
//
// ComputeClient lists virtual machines across a subscription (or a set of
// resource groups) with armcompute and deletes them through long-running
// operations. BlobClient lists and deletes blobs of one storage account with
// azblob, including blob index tags.
//
// Credentials come from azidentity.NewDefaultAzureCredential: environment
// variables, workload identity, managed identity or the Azure CLI login.
package azure
