package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one generated QR code kept in the history.
type Record struct {
	ID          int64  `json:"id"`
	Text        string `json:"text"`
	Level       string `json:"level"`
	Version     int    `json:"version"`
	Scale       int    `json:"scale"`
	Transparent bool   `json:"transparent"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	PNGSize     int    `json:"png_size"`
	Source      string `json:"source"`
	Path        string `json:"path,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// HistoryStore manages SQLite storage for generated codes.
type HistoryStore struct {
	db *sql.DB
}

const createGenerationsTable = `
CREATE TABLE IF NOT EXISTS generations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    text TEXT NOT NULL,
    level TEXT NOT NULL,
    version INTEGER NOT NULL,
    scale INTEGER NOT NULL,
    transparent INTEGER NOT NULL DEFAULT 0,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    png_size INTEGER NOT NULL DEFAULT 0,
    source TEXT NOT NULL DEFAULT '',
    path TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);
`

const createFTSTable = `
CREATE VIRTUAL TABLE IF NOT EXISTS generations_fts USING fts5(
    text,
    content='generations',
    content_rowid='id'
);
`

const createFTSInsertTrigger = `
CREATE TRIGGER IF NOT EXISTS generations_ai AFTER INSERT ON generations BEGIN
    INSERT INTO generations_fts(rowid, text) VALUES (new.id, new.text);
END;
`

const createFTSDeleteTrigger = `
CREATE TRIGGER IF NOT EXISTS generations_ad AFTER DELETE ON generations BEGIN
    INSERT INTO generations_fts(generations_fts, rowid, text) VALUES ('delete', old.id, old.text);
END;
`

const createIndexes = `
CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at);
`

// NewHistoryStore opens (or creates) the SQLite database at dbPath and
// initialises the schema: the generations table, its FTS5 index and the
// triggers that keep the two in sync.
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, stmt := range []string{
		createGenerationsTable,
		createFTSTable,
		createFTSInsertTrigger,
		createFTSDeleteTrigger,
		createIndexes,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec schema statement: %w", err)
		}
	}

	return &HistoryStore{db: db}, nil
}

// Save inserts rec and sets its ID. A zero CreatedAt is set to now.
func (s *HistoryStore) Save(rec *Record) error {
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}

	const query = `
		INSERT INTO generations
			(text, level, version, scale, transparent, width, height, png_size, source, path, created_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.Exec(query,
		rec.Text,
		rec.Level,
		rec.Version,
		rec.Scale,
		boolToInt(rec.Transparent),
		rec.Width,
		rec.Height,
		rec.PNGSize,
		rec.Source,
		rec.Path,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read record id: %w", err)
	}
	rec.ID = id
	return nil
}

// List returns records newest first. Use limit and offset for pagination.
func (s *HistoryStore) List(limit, offset int) ([]Record, error) {
	const query = `
		SELECT id, text, level, version, scale, transparent, width, height,
		       png_size, source, path, created_at
		FROM generations
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Search performs a full-text search over encoded texts using the FTS5
// index. Results are ranked by relevance.
func (s *HistoryStore) Search(query string, limit int) ([]Record, error) {
	// Quote the query as a single phrase so user input is never FTS syntax.
	escaped := strings.ReplaceAll(query, `"`, `""`)
	ftsQuery := fmt.Sprintf(`"%s"`, escaped)

	const q = `
		SELECT g.id, g.text, g.level, g.version, g.scale, g.transparent, g.width, g.height,
		       g.png_size, g.source, g.path, g.created_at
		FROM generations g
		JOIN generations_fts fts ON g.id = fts.rowid
		WHERE generations_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`

	rows, err := s.db.Query(q, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Prune deletes records created before the cutoff and reports how many
// were removed.
func (s *HistoryStore) Prune(before time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM generations WHERE created_at < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune records: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// --- helpers ----------------------------------------------------------------

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var recs []Record
	for rows.Next() {
		var r Record
		var transparent int
		if err := rows.Scan(
			&r.ID, &r.Text, &r.Level, &r.Version, &r.Scale, &transparent,
			&r.Width, &r.Height, &r.PNGSize, &r.Source, &r.Path, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		r.Transparent = transparent != 0
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}
	return recs, nil
}
