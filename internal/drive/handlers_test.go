package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/drivemcp/drivemcp/internal/auth"
	"github.com/drivemcp/drivemcp/internal/logging"
	"github.com/drivemcp/drivemcp/internal/server"
)

// newLoggedInManager seeds a config dir with credentials and a valid token
// so tool handlers get past auth without touching the network.
func newLoggedInManager(t *testing.T) *auth.Manager {
	t.Helper()
	dir := t.TempDir()
	creds := `{"installed":{"client_id":"x","client_secret":"y","auth_uri":"https://a","token_uri":"https://t","redirect_uris":["http://localhost"]}}`
	if err := os.WriteFile(filepath.Join(dir, "credentials.json"), []byte(creds), 0o600); err != nil {
		t.Fatal(err)
	}
	tok, err := json.Marshal(&oauth2.Token{
		AccessToken: "test-access",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "token.json"), tok, 0o600); err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	mgr, err := auth.NewManager(dir, "", logger)
	if err != nil {
		t.Fatal(err)
	}
	return mgr
}

// newFakeDriveServer stands up an HTTP handler as the Drive API endpoint and
// returns a tool server whose handlers talk to it.
func newFakeDriveServer(t *testing.T, handler http.Handler) *server.Server {
	t.Helper()
	api := httptest.NewServer(handler)
	t.Cleanup(api.Close)

	extraClientOptions = []option.ClientOption{option.WithEndpoint(api.URL)}
	t.Cleanup(func() { extraClientOptions = nil })

	srv := server.NewServer(&mcp.Implementation{Name: "test-drive", Version: "test"}, nil)
	RegisterTools(srv, newLoggedInManager(t))
	return srv
}

// connectTestClient wires an in-memory MCP client to the server.
func connectTestClient(t *testing.T, srv *server.Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := srv.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callToolText(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	if res.IsError {
		t.Fatalf("%s failed: %v", name, res.Content)
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] is %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func TestCreateFolderTool(t *testing.T) {
	srv := newFakeDriveServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/files" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var body struct {
			Name     string `json:"name"`
			MimeType string `json:"mimeType"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding create body: %v", err)
		}
		if body.MimeType != folderMIMEType {
			t.Errorf("MimeType = %q, want folder", body.MimeType)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "folder-123",
			"name":        body.Name,
			"webViewLink": "https://drive.google.com/drive/folders/folder-123",
		})
	}))

	var logBuf bytes.Buffer
	srv.SetLogger(logging.New(&logBuf, slog.LevelInfo))

	cs := connectTestClient(t, srv)
	text := callToolText(t, cs, "create_folder", map[string]any{"name": "Reports"})

	if !strings.Contains(text, "Folder created.") {
		t.Errorf("result = %q, want creation confirmation", text)
	}
	if !strings.Contains(text, "Reports") {
		t.Errorf("result = %q, want the folder name echoed", text)
	}
	if !strings.Contains(text, "folder-123") {
		t.Errorf("result = %q, want the new folder ID", text)
	}

	logs := logBuf.String()
	for _, want := range []string{"tool=create_folder", "file_id=folder-123", "status=success"} {
		if !strings.Contains(logs, want) {
			t.Errorf("log output missing %q:\n%s", want, logs)
		}
	}
}

func TestDeleteFileTool(t *testing.T) {
	deleted := false
	srv := newFakeDriveServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/files/abc123" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		deleted = true
		w.WriteHeader(http.StatusNoContent)
	}))

	cs := connectTestClient(t, srv)
	text := callToolText(t, cs, "delete_file", map[string]any{"file_id": "abc123"})

	if !deleted {
		t.Error("delete_file never issued the Drive delete request")
	}
	if !strings.Contains(text, "abc123") || !strings.Contains(text, "permanently deleted") {
		t.Errorf("result = %q, want permanent deletion confirmation", text)
	}
}

func TestDeleteFileTool_Trash(t *testing.T) {
	var trashed bool
	srv := newFakeDriveServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/files/abc123" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var body struct {
			Trashed bool `json:"trashed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding update body: %v", err)
		}
		trashed = body.Trashed
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"abc123"}`)
	}))

	cs := connectTestClient(t, srv)
	text := callToolText(t, cs, "delete_file", map[string]any{"file_id": "abc123", "trash": true})

	if !trashed {
		t.Error("delete_file with trash=true did not set trashed on the file")
	}
	if !strings.Contains(text, "moved to trash") {
		t.Errorf("result = %q, want trash confirmation", text)
	}
}

func TestGetFileTool_NotFoundIsAPIError(t *testing.T) {
	srv := newFakeDriveServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":404,"message":"File not found: missing","errors":[{"reason":"notFound"}]}}`)
	}))

	cs := connectTestClient(t, srv)
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "get_file",
		Arguments: map[string]any{"file_id": "missing"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("get_file on a missing file did not fail")
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] is %T, want *mcp.TextContent", res.Content[0])
	}
	if !strings.Contains(tc.Text, "HTTP 404") {
		t.Errorf("error text = %q, want the original status code", tc.Text)
	}
}

func TestListFilesTool(t *testing.T) {
	srv := newFakeDriveServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/files" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if q := r.URL.Query().Get("q"); !strings.Contains(q, "trashed = false") {
			t.Errorf("query %q does not exclude trashed files", q)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"files":[{"id":"f1","name":"report.pdf","mimeType":"application/pdf","size":"2048"}]}`)
	}))

	cs := connectTestClient(t, srv)
	text := callToolText(t, cs, "list_files", map[string]any{})

	for _, want := range []string{"Found 1 files", "report.pdf", "f1"} {
		if !strings.Contains(text, want) {
			t.Errorf("result = %q, missing %q", text, want)
		}
	}
}
