package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/watchroom/server/internal/app"
	"github.com/watchroom/server/internal/core"
)

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestUploadStoresFile(t *testing.T) {
	cfg := testConfig(t)
	orch := app.NewOrchestrator(core.NewRoomStore(), app.NewHub())
	srv := httptest.NewServer(SetupRouter(context.Background(), cfg, orch))
	defer srv.Close()

	body, contentType := multipartBody(t, uploadFieldName, "movie.mp4", []byte("not really a video"))
	resp, err := http.Post(srv.URL+"/api/upload", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var out struct {
		Filename     string `json:"filename"`
		Originalname string `json:"originalname"`
		Path         string `json:"path"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Originalname != "movie.mp4" {
		t.Fatalf("originalname = %q", out.Originalname)
	}
	if !strings.HasSuffix(out.Filename, ".mp4") {
		t.Fatalf("stored name should keep the extension: %q", out.Filename)
	}
	if out.Path != "/uploads/"+out.Filename {
		t.Fatalf("path = %q", out.Path)
	}

	data, err := os.ReadFile(filepath.Join(cfg.UploadDir, out.Filename))
	if err != nil {
		t.Fatalf("stored file: %v", err)
	}
	if string(data) != "not really a video" {
		t.Fatalf("stored content = %q", data)
	}
}

func TestUploadMissingField(t *testing.T) {
	cfg := testConfig(t)
	orch := app.NewOrchestrator(core.NewRoomStore(), app.NewHub())
	srv := httptest.NewServer(SetupRouter(context.Background(), cfg, orch))
	defer srv.Close()

	body, contentType := multipartBody(t, "wrong-field", "movie.mp4", []byte("x"))
	resp, err := http.Post(srv.URL+"/api/upload", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadTooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.UploadLimit = 16
	orch := app.NewOrchestrator(core.NewRoomStore(), app.NewHub())
	srv := httptest.NewServer(SetupRouter(context.Background(), cfg, orch))
	defer srv.Close()

	body, contentType := multipartBody(t, uploadFieldName, "movie.mp4", bytes.Repeat([]byte("a"), 64))
	resp, err := http.Post(srv.URL+"/api/upload", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
	entries, err := os.ReadDir(cfg.UploadDir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatal("oversized upload must not be stored")
	}
}

func TestRoomsAPI(t *testing.T) {
	cfg := testConfig(t)
	store := core.NewRoomStore()
	orch := app.NewOrchestrator(store, app.NewHub())
	srv := httptest.NewServer(SetupRouter(context.Background(), cfg, orch))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/rooms/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	a := dialWS(t, srv.URL)
	a.send(app.EventJoinRoom, map[string]any{
		"user":   map[string]string{"id": "ua", "name": "alice"},
		"roomId": "r1",
	})
	a.read()

	resp, err = http.Get(srv.URL + "/api/rooms/r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var info struct {
		ID        string `json:"id"`
		UserCount int    `json:"userCount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.ID != "r1" || info.UserCount != 1 {
		t.Fatalf("room info = %+v", info)
	}
}
