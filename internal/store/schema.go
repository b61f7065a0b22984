package store

// Schema definitions for the phrase store.
// Compatible with both SQLite and PostgreSQL.

const schemaPhrases = `
CREATE TABLE IF NOT EXISTS phrases (
    id TEXT PRIMARY KEY,
    original TEXT NOT NULL,
    original_key TEXT NOT NULL,
    simplified TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL,
    created_at BIGINT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_phrases_original_key ON phrases(original_key);
CREATE INDEX IF NOT EXISTS idx_phrases_category ON phrases(category, original);
`

const insertPhrase = `
INSERT INTO phrases (id, original, original_key, simplified, category, created_at)
VALUES (:id, :original, :original_key, :simplified, :category, :created_at)`
