package main

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

const articleHTML = `<!doctype html>
<html lang="en">
<head><title>Morning walk</title></head>
<body>
  <p>The old window faced a quiet garden near the river.</p>
  <p>Every morning the house smelled of fresh bread and coffee.</p>
  <p style="display:none">Hidden paragraph with secret words inside.</p>
</body>
</html>`

const esBundle = `{
  "language": "es",
  "source": "en",
  "entries": [
    {"word": "window", "translations": ["ventana"]},
    {"word": "garden", "translations": ["jardín"]},
    {"word": "river", "translations": ["río"]},
    {"word": "house", "translations": ["casa"]},
    {"word": "bread", "translations": ["pan"]},
    {"word": "coffee", "translations": ["café"]},
    {"word": "morning", "translations": ["mañana"]},
    {"word": "dog", "translations": ["perro"]}
  ]
}`

type env struct {
	dir    string
	dbPath string
	config string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	dictDir := filepath.Join(dir, "dictionaries")
	require.NoError(t, os.MkdirAll(dictDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dictDir, "es.json"), []byte(esBundle), 0o644))

	cfg := filepath.Join(dir, "vocabloom.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
log:
  level: error
languages:
  source: en
  target: es
gateway:
  dictionary_dir: `+dictDir+`
quiz:
  next_quiz_delay: 0s
usage:
  timezone: UTC
`), 0o644))
	return env{dir: dir, dbPath: filepath.Join(dir, "vocabloom.db"), config: cfg}
}

func (e env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.config, "--db", e.dbPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e env) mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := e.run(t, stdin, args...)
	require.NoError(t, err, out)
	return out
}

func (e env) count(t *testing.T, table string) int {
	t.Helper()
	conn, err := sql.Open("sqlite3", e.dbPath)
	require.NoError(t, err)
	defer conn.Close()
	var n int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func articleServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(articleHTML))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScanURL(t *testing.T) {
	e := newEnv(t)
	srv := articleServer(t)

	out := e.mustRun(t, "", "scan", "--url", srv.URL)
	assert.Contains(t, out, "Title: Morning walk")
	assert.Contains(t, out, "ventana")
	assert.Contains(t, out, "Scan complete")
	assert.NotContains(t, out, "secret")

	assert.Equal(t, 1, e.count(t, "sources"))
	assert.Greater(t, e.count(t, "word_sightings"), 5)
	assert.Greater(t, e.count(t, "word_records"), 5)

	// Scanning again reuses the source.
	e.mustRun(t, "", "scan", "--url", srv.URL)
	assert.Equal(t, 1, e.count(t, "sources"))
}

func TestScanFile(t *testing.T) {
	e := newEnv(t)
	page := filepath.Join(e.dir, "article.html")
	require.NoError(t, os.WriteFile(page, []byte(articleHTML), 0o644))

	out := e.mustRun(t, "", "scan", "--file", page)
	assert.Contains(t, out, "garden")
	assert.Contains(t, out, "jardín")
}

func TestScanNeedsAPage(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "scan")
	assert.Error(t, err)
}

func TestQuizSessions(t *testing.T) {
	e := newEnv(t)
	srv := articleServer(t)

	answers := strings.Repeat("1\n", 10)
	out := e.mustRun(t, answers, "quiz", "--url", srv.URL, "--sessions", "2")
	assert.Equal(t, 2, strings.Count(out, "Quiz complete:"), out)
	assert.Contains(t, out, "[1/5]")
	assert.Contains(t, out, "1) ")

	stats := e.mustRun(t, "", "stats")
	assert.Contains(t, stats, "Quizzes:   2 today")
	assert.Contains(t, stats, "Streak:    1 day(s)")
}

func TestQuizAbandonedOnEOF(t *testing.T) {
	e := newEnv(t)
	srv := articleServer(t)

	out := e.mustRun(t, "2\n", "quiz", "--url", srv.URL)
	assert.Contains(t, out, "Quiz abandoned.")
	assert.NotContains(t, out, "Quiz complete:")

	stats := e.mustRun(t, "", "stats")
	assert.Contains(t, stats, "Quizzes:   0 today")
}

func TestReviewExportImportReset(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun(t, "", "review", "Casa", "1")
	assert.Contains(t, out, "casa: next review in 1 day(s)")
	out = e.mustRun(t, "", "review", "perro", "5", "--raw")
	assert.Contains(t, out, "perro: next review in 1 day(s)")

	snapshot := filepath.Join(e.dir, "backup.json")
	out = e.mustRun(t, "", "export", "--out", snapshot)
	assert.Contains(t, out, "Exported 2 records")

	other := e
	other.dbPath = filepath.Join(e.dir, "other.db")
	out = other.mustRun(t, "", "import", snapshot)
	assert.Contains(t, out, "Imported 2 records.")
	assert.Equal(t, 2, other.count(t, "word_records"))

	out = e.mustRun(t, "", "reset", "casa")
	assert.Contains(t, out, "casa reset.")
	_, err := e.run(t, "", "reset", "casa")
	assert.Error(t, err)

	_, err = e.run(t, "", "review", "casa", "great")
	assert.Error(t, err)
}

func TestDue(t *testing.T) {
	e := newEnv(t)
	page := filepath.Join(e.dir, "article.html")
	require.NoError(t, os.WriteFile(page, []byte(articleHTML), 0o644))

	out := e.mustRun(t, "", "due")
	assert.Contains(t, out, "Nothing is due.")

	e.mustRun(t, "", "scan", "--file", page)
	out = e.mustRun(t, "", "due", "--limit", "3")
	assert.Contains(t, out, "WORD")
	assert.Equal(t, 4, strings.Count(strings.TrimSpace(out), "\n")+1, out)
}

func TestCustomEntries(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun(t, "", "lookup", "window")
	assert.Contains(t, out, "ventana (bundled)")

	e.mustRun(t, "", "custom", "add", "window", "vidrio", "--pos", "noun", "--example", "Abre el vidrio.")
	out = e.mustRun(t, "", "lookup", "window")
	assert.Contains(t, out, "vidrio (custom)")
	assert.Contains(t, out, "e.g. Abre el vidrio.")

	out = e.mustRun(t, "", "custom", "list")
	assert.Contains(t, out, "window → vidrio")

	e.mustRun(t, "", "custom", "remove", "window")
	out = e.mustRun(t, "", "lookup", "window")
	assert.Contains(t, out, "ventana (bundled)")

	out = e.mustRun(t, "", "lookup", "zeppelin")
	assert.Contains(t, out, "(fallback)")
}
