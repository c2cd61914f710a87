// store/schema.go
package store

const Schema = `
CREATE TABLE IF NOT EXISTS indicators (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	source_type TEXT NOT NULL,
	source_config TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS data_points (
	indicator_id INTEGER NOT NULL REFERENCES indicators(id),
	date TEXT NOT NULL,
	value REAL,
	UNIQUE (indicator_id, date)
);

CREATE INDEX IF NOT EXISTS idx_data_points_indicator ON data_points(indicator_id, date);
`
