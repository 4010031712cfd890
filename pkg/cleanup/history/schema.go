package history

// schema creates the runs table. Timestamps are Unix nanoseconds in UTC.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	domain          TEXT NOT NULL,
	target          TEXT NOT NULL,
	environment     TEXT NOT NULL DEFAULT '',
	trigger_source  TEXT NOT NULL DEFAULT '',
	dry_run         INTEGER NOT NULL,
	outcome         TEXT NOT NULL,
	started_at      INTEGER NOT NULL,
	finished_at     INTEGER NOT NULL,
	matched         INTEGER NOT NULL DEFAULT 0,
	candidates      INTEGER NOT NULL DEFAULT 0,
	deleted         INTEGER NOT NULL DEFAULT 0,
	failed          INTEGER NOT NULL DEFAULT 0,
	deferred        INTEGER NOT NULL DEFAULT 0,
	bytes_reclaimed INTEGER NOT NULL DEFAULT 0,
	error           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_domain ON runs(domain, started_at);
`

const runColumns = `id, domain, target, environment, trigger_source, dry_run, outcome,
	started_at, finished_at, matched, candidates, deleted, failed, deferred,
	bytes_reclaimed, error`
