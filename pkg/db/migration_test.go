package db

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func tableColumns(t *testing.T, conn *sql.DB, table string) map[string]bool {
	t.Helper()
	rows, err := conn.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("pragma %s: %v", table, err)
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var colName, ctype string
		var notnull, pk int
		var dfltVal interface{}
		if err := rows.Scan(&cid, &colName, &ctype, &notnull, &dfltVal, &pk); err != nil {
			t.Fatalf("scan col: %v", err)
		}
		cols[colName] = true
	}
	return cols
}

func TestInitDBCreatesSchema(t *testing.T) {
	dbConn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()
	dbConn.SetMaxOpenConns(1)

	if err := InitDB(context.Background(), dbConn); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}

	for _, table := range []string{"word_records", "custom_entries", "settings", "sources", "sentences", "word_sightings"} {
		var name string
		if err := dbConn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}

	cols := tableColumns(t, dbConn, "word_records")
	for _, c := range []string{"ease_factor", "interval_days", "next_review_at", "history"} {
		if !cols[c] {
			t.Fatalf("expected %s in word_records, got %v", c, cols)
		}
	}
	if cols := tableColumns(t, dbConn, "word_sightings"); !cols["sentence_id"] || !cols["occurrence_count"] {
		t.Fatalf("expected sentence_id and occurrence_count in word_sightings, got %v", cols)
	}
}

func TestInitDBIsIdempotent(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()
	if err := InitDB(context.Background(), conn); err != nil {
		t.Fatalf("second InitDB: %v", err)
	}
}
