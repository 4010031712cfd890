// Package health serves the liveness, readiness and version endpoints of
// the sweeper serve command.
//
// Components register a CheckFunc under a name. Readiness runs every check
// concurrently with a per-check timeout and reports 503 when any fails:
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("config", health.ConfigCheck(store))
//	checker.RegisterCheck("history", historyStore.Ping)
//	checker.Mount(mux, health.VersionInfo{Version: version})
//
// Paths are /healthz, /readyz and /version.
package health
