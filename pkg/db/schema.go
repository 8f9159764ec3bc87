package db

const migrationsSQL = `
CREATE TABLE IF NOT EXISTS word_records (
	language TEXT NOT NULL,
	word TEXT NOT NULL,
	ease_factor REAL NOT NULL,
	interval_days INTEGER NOT NULL DEFAULT 0,
	review_count INTEGER NOT NULL DEFAULT 0,
	streak INTEGER NOT NULL DEFAULT 0,
	last_reviewed_at TEXT,
	next_review_at TEXT,
	history TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (language, word)
);

CREATE INDEX IF NOT EXISTS idx_word_records_next_review ON word_records(language, next_review_at);

CREATE TABLE IF NOT EXISTS custom_entries (
	language TEXT NOT NULL,
	word TEXT NOT NULL,
	translations TEXT NOT NULL DEFAULT '[]',
	part_of_speech TEXT NOT NULL DEFAULT '',
	difficulty INTEGER NOT NULL DEFAULT 0,
	examples TEXT NOT NULL DEFAULT '[]',
	updated_at TEXT NOT NULL,
	PRIMARY KEY (language, word)
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sources (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_type TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	site_name TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT '',
	added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(url, title)
);

CREATE TABLE IF NOT EXISTS sentences (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS word_sightings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	language TEXT NOT NULL,
	word TEXT NOT NULL,
	source_id INTEGER NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	sentence_id INTEGER REFERENCES sentences(id),
	translation TEXT NOT NULL DEFAULT '',
	occurrence_count INTEGER NOT NULL DEFAULT 1,
	first_seen_at TEXT NOT NULL,
	last_seen_at TEXT NOT NULL,
	UNIQUE(language, word, source_id)
);

CREATE INDEX IF NOT EXISTS idx_word_sightings_word ON word_sightings(language, word);
`
