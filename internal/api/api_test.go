package api_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/inksync/internal/api"
	"github.com/starford/inksync/internal/metastore"
	"github.com/starford/inksync/internal/models"
	"github.com/starford/inksync/internal/modules"
	"github.com/starford/inksync/internal/render"
	"github.com/starford/inksync/internal/syncer"
	"github.com/starford/inksync/internal/testutil"
)

func newServer(t *testing.T, authEnabled bool, token string) (*httptest.Server, *metastore.Store) {
	t.Helper()
	_, docs := testutil.TestVault(t)
	store := testutil.TestStore(t)
	renderer, err := render.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	session := syncer.New(modules.NewDefaultConfig(), docs, store, renderer, log)

	h := api.NewHandler(store, session, t.TempDir())
	srv := httptest.NewServer(api.NewRouter(h, authEnabled, token))
	t.Cleanup(srv.Close)
	return srv, store
}

func TestListRecords(t *testing.T) {
	srv, store := newServer(t, false, "")
	err := store.Set(&models.NoteRecord{
		NoteID:       "n1",
		NotePath:     "Notes/Trip.md",
		LastModified: time.Date(2024, 3, 5, 12, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(srv.URL + "/records")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Records []models.NoteRecord `json:"records"`
		Total   int                 `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 1 || len(body.Records) != 1 || body.Records[0].NoteID != "n1" {
		t.Errorf("body = %+v", body)
	}
}

func TestGetRecordNotFound(t *testing.T) {
	srv, _ := newServer(t, false, "")

	resp, err := http.Get(srv.URL + "/records/absent")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetRecord(t *testing.T) {
	srv, store := newServer(t, false, "")
	if err := store.Set(&models.NoteRecord{NoteID: "n1", NotePath: "Notes/Trip.md"}); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(srv.URL + "/records/n1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var rec models.NoteRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.NotePath != "Notes/Trip.md" {
		t.Errorf("record = %+v", rec)
	}
}

func TestTriggerSyncEmptyInbox(t *testing.T) {
	srv, _ := newServer(t, false, "")

	resp, err := http.Post(srv.URL+"/sync", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Total int `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 0 {
		t.Errorf("total = %d, want 0", body.Total)
	}
}

func TestAuthMiddleware(t *testing.T) {
	srv, _ := newServer(t, true, "secret")

	resp, err := http.Get(srv.URL + "/records")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/records", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", resp.StatusCode)
	}

	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", resp.StatusCode)
	}
}
