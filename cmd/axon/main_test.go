package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/toyz/axonroute/pkg/app"
	"github.com/toyz/axonroute/pkg/axon"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestRun_Commands(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage: axon <command>")

	stdout.Reset()
	assert.Equal(t, 0, run([]string{"help"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "check      Validate //axon:: annotations")

	stdout.Reset()
	assert.Equal(t, 0, run([]string{"version"}, &stdout, &stderr))
	assert.Equal(t, "axon "+version+"\n", stdout.String())

	stderr.Reset()
	assert.Equal(t, 2, run([]string{"generate"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "generate"`)
}

func TestRun_CheckOwnSource(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"check", "-verbose", "."}, &stdout, &stderr)
	require.Equal(t, 0, code, stdout.String()+stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "github.com/toyz/axonroute/cmd/axon")
	assert.Contains(t, out, "GET     /notes/:id  NotesController.Show")
	assert.Contains(t, out, "DELETE  /notes/:id  NotesController.Remove")
	assert.Contains(t, out, "Packages: 1  Controllers: 1  Routes: 4  Errors: 0  Warnings: 0")
}

func TestRun_CheckFindsErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/broken\n"), 0o644))
	src := "package broken\n\n//axon::controller /b\ntype B struct{}\n\n//axon::get /\n//axon::query 4 q\nfunc (B) Index(q string) {}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte(src), 0o644))

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"check", "-quiet", dir + "/..."}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "error: query index out of range for B.Index")
	assert.NotContains(t, stdout.String(), "Packages:")

	stdout.Reset()
	assert.Equal(t, 1, run([]string{"check", filepath.Join(dir, "missing")}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Error:")

	assert.Equal(t, 2, run([]string{"check", "-nope"}, &stdout, &stderr))
}

func TestRun_ServeRejectsBadInput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"serve", "-config", filepath.Join(t.TempDir(), "missing.yaml")}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Error:")

	stderr.Reset()
	assert.Equal(t, 1, run([]string{"serve", "-adapter", "martini"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown adapter "martini", expected one of chi|echo|fiber|gin`)
}

func do(ws axon.WebServerInterface, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ws.ServeHTTP(rec, req)
	return rec
}

func TestNotesService(t *testing.T) {
	for _, adapter := range []string{"chi", "echo", "gin"} {
		t.Run(adapter, func(t *testing.T) {
			cfg := app.DefaultConfig()
			cfg.GlobalPrefix = "/api"
			a, err := newApplication(cfg, adapter, &bytes.Buffer{}, zap.NewNop())
			require.NoError(t, err)
			ws, err := a.Build()
			require.NoError(t, err)

			rec := do(ws, http.MethodPost, "/api/notes", `{"title":"groceries","body":"milk"}`)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			assert.JSONEq(t, `{"id":1,"title":"groceries","body":"milk"}`, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

			rec = do(ws, http.MethodPost, "/api/notes", `{"body":"untitled"}`)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			rec = do(ws, http.MethodGet, "/api/notes/1", "")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `"groceries"`)

			rec = do(ws, http.MethodGet, "/api/notes", "")
			assert.JSONEq(t, `[{"id":1,"title":"groceries","body":"milk"}]`, rec.Body.String())

			rec = do(ws, http.MethodGet, "/api/health", "")
			assert.JSONEq(t, `{"status":"ok","notes":1}`, rec.Body.String())

			rec = do(ws, http.MethodDelete, "/api/notes/1", "")
			assert.Equal(t, http.StatusNoContent, rec.Code)

			rec = do(ws, http.MethodGet, "/api/notes/1", "")
			assert.Equal(t, http.StatusNotFound, rec.Code)
			rec = do(ws, http.MethodDelete, "/api/notes/1", "")
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestNoteStore(t *testing.T) {
	s := NewNoteStore()
	a := s.Add(Note{Title: "a"})
	b := s.Add(Note{Title: "b", ID: 99})
	assert.Equal(t, 1, a.ID)
	assert.Equal(t, 2, b.ID)
	assert.Equal(t, []Note{a, b}, s.List())

	got, ok := s.Get(2)
	assert.True(t, ok)
	assert.Equal(t, "b", got.Title)

	assert.True(t, s.Delete(1))
	assert.False(t, s.Delete(1))
	assert.Equal(t, 1, s.Len())
}
