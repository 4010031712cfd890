// Package config resolves the layered YAML documents that drive cleanup runs.
//
// A Store reads named documents (azure_resources, storage_cleanup,
// build_monitoring, environments) from a DocumentSource and, for each one:
//
//  1. parses it as a YAML mapping
//  2. deep-merges the overlay of the active environment (environments.yaml[<env>])
//  3. replaces values that are exactly "${NAME}" with the environment variable NAME
//  4. checks the required sections and decodes the typed record
//  5. caches the result until a forced reload or ReloadAll
//
// # Environment Overlay
//
// The environment is chosen from Options.Environment, then $ENVIRONMENT, then
// "development". Its overlay is applied to every document, including the
// environments document itself. Mappings merge recursively; any other value in
// the overlay (sequences included) replaces the base value.
//
// # Usage
//
//	store, err := config.NewStore(config.Options{Dir: "configs"})
//	if err != nil {
//	    return err
//	}
//	policy, err := store.VMCleanup()
//
// Construct the Store once at startup and pass it to the components that need
// it. For tests, FSSource with an fstest.MapFS avoids touching disk.
//
// # Errors
//
// Every failure is a *ConfigError with a Kind (NotFound, ParseError, Empty,
// SchemaViolation). Use errors.Is with ErrNotFound, ErrParse, ErrEmpty or
// ErrSchemaViolation, or KindOf, to branch on the kind.
//
// # Hot Reload
//
// Watcher observes a configuration directory with fsnotify and calls back
// after a debounce interval; wiring it to Store.ReloadAll makes running
// schedulers pick up edited policies. The gitsource subpackage provides a
// DocumentSource backed by a git checkout.
package config
