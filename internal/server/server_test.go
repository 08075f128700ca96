package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentwerk/mietflow/internal/engine"
)

type fakeReconciler struct {
	summary *engine.Summary
	err     error

	gotLedger    string
	gotStatement string
	gotOut       string
}

func (f *fakeReconciler) Reconcile(_ context.Context, ledgerPath, statementPath, outPath string) (*engine.Summary, error) {
	f.gotLedger = ledgerPath
	f.gotStatement = statementPath
	f.gotOut = outPath
	if f.err != nil {
		return nil, f.err
	}
	// The real engine writes the artifact; mimic that so the download
	// route has something to serve.
	if err := os.WriteFile(outPath, []byte("xlsx"), 0644); err != nil {
		return nil, err
	}
	return f.summary, nil
}

func newTestServer(t *testing.T, rec *fakeReconciler) *Server {
	t.Helper()
	cfg := DefaultServerConfig()
	cfg.UploadDir = filepath.Join(t.TempDir(), "uploads")
	cfg.ResultsDir = filepath.Join(t.TempDir(), "results")
	cfg.ProcessTimeout = 5 * time.Second
	s, err := NewServer(cfg, rec, nil)
	require.NoError(t, err)
	return s
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, name := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("content"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHandleIndex(t *testing.T) {
	s := newTestServer(t, &fakeReconciler{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Mietabgleich")
}

func TestHandleProcess(t *testing.T) {
	fake := &fakeReconciler{summary: &engine.Summary{Posted: 7, Duplicates: 2}}
	s := newTestServer(t, fake)

	body, contentType := multipartBody(t, map[string]string{
		"excel": "mieter.xlsx",
		"konto": "konto.xlsx",
	})
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp processResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Mietabgleich abgeschlossen", resp.Message)
	assert.Equal(t, "/results/mieten_abgleich.xlsx", resp.Download)
	assert.Equal(t, 7, resp.Posted)

	assert.Equal(t, filepath.Base(fake.gotLedger), "mieter.xlsx")
	assert.Equal(t, filepath.Base(fake.gotStatement), "konto.xlsx")

	// Uploads landed in the configured directory.
	saved, err := os.ReadFile(fake.gotLedger)
	require.NoError(t, err)
	assert.Equal(t, "content", string(saved))
}

func TestHandleProcessMissingFile(t *testing.T) {
	s := newTestServer(t, &fakeReconciler{})

	body, contentType := multipartBody(t, map[string]string{"excel": "mieter.xlsx"})
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp processResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
}

func TestHandleProcessEngineFailure(t *testing.T) {
	s := newTestServer(t, &fakeReconciler{err: errors.New("kaputt")})

	body, contentType := multipartBody(t, map[string]string{
		"excel": "mieter.xlsx",
		"konto": "konto.xlsx",
	})
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp processResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	// Internal details stay out of the client message.
	assert.NotContains(t, resp.Message, "kaputt")
}

func TestHandleDownload(t *testing.T) {
	s := newTestServer(t, &fakeReconciler{})
	path := filepath.Join(s.cfg.ResultsDir, "mieten_abgleich.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("artifact"), 0644))

	req := httptest.NewRequest(http.MethodGet, "/results/mieten_abgleich.xlsx", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "artifact", string(body))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
}

func TestHandleDownloadUnknownFile(t *testing.T) {
	s := newTestServer(t, &fakeReconciler{})

	req := httptest.NewRequest(http.MethodGet, "/results/nope.xlsx", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSanitizeFilenameRejectsTraversal(t *testing.T) {
	for _, name := range []string{"../../etc/passwd", ".", "..", ".hidden"} {
		got := sanitizeFilename(&multipart.FileHeader{Filename: name})
		if name == "../../etc/passwd" {
			// Base of a traversal path is still a usable name.
			assert.Equal(t, "passwd", got)
			continue
		}
		assert.Empty(t, got, "name %q", name)
	}
}
