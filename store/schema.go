package store

// schemaSQL is the base DDL. Later changes go in migrations.
const schemaSQL = `
-- One row per prompt evaluation run
CREATE TABLE IF NOT EXISTS eval_runs (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL UNIQUE,
    model TEXT,
    workbook TEXT,
    dataset TEXT,
    prompts INTEGER DEFAULT 0,
    cases INTEGER DEFAULT 0,
    errors INTEGER DEFAULT 0,
    prompt_tokens INTEGER DEFAULT 0,
    completion_tokens INTEGER DEFAULT 0,
    total_tokens INTEGER DEFAULT 0,
    started_at TEXT NOT NULL,
    run_time_ms INTEGER DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per prompt x case request
CREATE TABLE IF NOT EXISTS eval_results (
    id INTEGER PRIMARY KEY,
    run_id INTEGER NOT NULL REFERENCES eval_runs(id) ON DELETE CASCADE,
    prompt_id TEXT NOT NULL,
    case_index INTEGER NOT NULL,
    image_url TEXT NOT NULL,
    expected TEXT,
    response TEXT,
    extracted TEXT,
    pattern INTEGER DEFAULT 0,
    low_confidence INTEGER DEFAULT 0,
    precision REAL NOT NULL DEFAULT 0,
    error TEXT,
    total_tokens INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_eval_results_run ON eval_results(run_id);
CREATE INDEX IF NOT EXISTS idx_eval_results_prompt ON eval_results(prompt_id);
`
