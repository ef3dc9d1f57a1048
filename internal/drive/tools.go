// Package drive provides the MCP tools for interacting with the Google
// Drive API. Each tool performs a single authenticated API call; there is
// no retry, pagination, or rate-limit handling.
package drive

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/drivemcp/drivemcp/internal/auth"
	"github.com/drivemcp/drivemcp/internal/server"
)

const folderMIMEType = "application/vnd.google-apps.folder"

// Scopes required by the Drive tools: full Drive access plus per-file
// access for files created by this connector.
var Scopes = []string{
	drive.DriveScope,
	drive.DriveFileScope,
}

// RegisterTools registers all Drive MCP tools on the given server.
// Registration is static; each tool name is registered exactly once.
func RegisterTools(srv *server.Server, mgr *auth.Manager) {
	registerList(srv, mgr)
	registerSearch(srv, mgr)
	registerGet(srv, mgr)
	registerCreateFolder(srv, mgr)
	registerUpload(srv, mgr)
	registerRename(srv, mgr)
	registerMove(srv, mgr)
	registerDelete(srv, mgr)
	registerDownload(srv, mgr)
}

// AccountScopes returns the scopes to request during the consent flow.
func AccountScopes() []string {
	return Scopes
}

// extraClientOptions is appended to every Drive service's options.
// Tests use it to point the client at a fake endpoint.
var extraClientOptions []option.ClientOption

func newService(ctx context.Context, mgr *auth.Manager) (*drive.Service, error) {
	opt, err := mgr.ClientOption(ctx, Scopes)
	if err != nil {
		return nil, err
	}
	opts := append([]option.ClientOption{opt}, extraClientOptions...)
	return drive.NewService(ctx, opts...)
}

// isGoogleWorkspaceFile returns true if the MIME type is a Google Workspace
// type that requires export rather than direct download.
func isGoogleWorkspaceFile(mimeType string) bool {
	switch mimeType {
	case "application/vnd.google-apps.document",
		"application/vnd.google-apps.spreadsheet",
		"application/vnd.google-apps.presentation",
		"application/vnd.google-apps.drawing",
		"application/vnd.google-apps.script":
		return true
	}
	return false
}

// defaultExportMIME returns the default export MIME type for a Google
// Workspace file.
func defaultExportMIME(mimeType string) string {
	switch mimeType {
	case "application/vnd.google-apps.document":
		return "text/plain"
	case "application/vnd.google-apps.spreadsheet":
		return "text/csv"
	case "application/vnd.google-apps.presentation":
		return "text/plain"
	case "application/vnd.google-apps.drawing":
		return "image/png"
	case "application/vnd.google-apps.script":
		return "application/vnd.google-apps.script+json"
	default:
		return "text/plain"
	}
}

// formatFileList formats a list of Drive files for display.
func formatFileList(files []*drive.File) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d files:\n\n", len(files))
	for _, f := range files {
		fmt.Fprintf(&sb, "- Name: %s\n  File ID: %s\n  Type: %s\n", f.Name, f.Id, f.MimeType)
		if f.Size > 0 {
			fmt.Fprintf(&sb, "  Size: %d bytes\n", f.Size)
		}
		if f.ModifiedTime != "" {
			fmt.Fprintf(&sb, "  Modified: %s\n", f.ModifiedTime)
		}
		if f.WebViewLink != "" {
			fmt.Fprintf(&sb, "  Link: %s\n", f.WebViewLink)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
