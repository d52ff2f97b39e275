package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
    key                  TEXT PRIMARY KEY,
    value                TEXT NOT NULL,
    updated_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS renewals (
    id                   TEXT PRIMARY KEY,
    applied_at           TEXT NOT NULL,
    previous_date        TEXT NOT NULL,
    new_date             TEXT NOT NULL,
    previous_hours       REAL NOT NULL,
    previous_minutes     REAL NOT NULL,
    new_hours            REAL NOT NULL,
    new_minutes          REAL NOT NULL,
    previous_blocks      INTEGER NOT NULL,
    new_blocks           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_renewals_applied ON renewals(applied_at);
`
