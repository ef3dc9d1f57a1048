package drive

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/api/drive/v3"

	"github.com/drivemcp/drivemcp/internal/auth"
	"github.com/drivemcp/drivemcp/internal/logging"
	"github.com/drivemcp/drivemcp/internal/server"
)

// --- upload_file ---

type uploadInput struct {
	Name      string `json:"name,omitempty" jsonschema:"File name (e.g. 'report.txt'). Auto-detected from local_path if omitted."`
	Content   string `json:"content,omitempty" jsonschema:"File content as text, or base64-encoded binary data. Not needed when using local_path."`
	MIMEType  string `json:"mime_type,omitempty" jsonschema:"MIME type of the file (e.g. 'text/plain', 'application/pdf'). Auto-detected if omitted."`
	FolderID  string `json:"folder_id,omitempty" jsonschema:"Parent folder ID to upload into (default: root)"`
	Base64    bool   `json:"base64,omitempty" jsonschema:"Set to true if content is base64-encoded binary data"`
	LocalPath string `json:"local_path,omitempty" jsonschema:"Path to a local file to upload (relative to an allowed directory). Requires --allow-read-dir."`
}

func registerUpload(srv *server.Server, mgr *auth.Manager) {
	desc := `Upload a new file to Google Drive.

Content can be provided as:
- Plain text (content field)
- Base64-encoded binary (content field + base64=true)
- Local file path (local_path field, requires --allow-read-dir)

For local files, the name is auto-detected from the filename if not specified.` + srv.ReadDirsDescription()

	server.AddTool(srv, &mcp.Tool{
		Name: "upload_file",
		Annotations: &mcp.ToolAnnotations{
			DestructiveHint: server.BoolPtr(false),
		},
		Description: desc,
	}, func(ctx context.Context, req *mcp.CallToolRequest, input uploadInput) (*mcp.CallToolResult, any, error) {
		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, nil, fmt.Errorf("creating Drive service: %w", err)
		}

		var reader io.Reader

		if input.LocalPath != "" {
			lfs := srv.LocalFS()
			if lfs == nil {
				return nil, nil, fmt.Errorf("local file access is not enabled (use --allow-read-dir)")
			}
			rc, _, err := lfs.Open(input.LocalPath)
			if err != nil {
				return nil, nil, fmt.Errorf("reading local file: %w", err)
			}
			defer rc.Close()
			reader = rc
			if input.Name == "" {
				input.Name = filepath.Base(input.LocalPath)
			}
		} else if input.Content == "" {
			return nil, nil, fmt.Errorf("either content or local_path is required")
		} else if input.Base64 {
			data, err := base64.StdEncoding.DecodeString(input.Content)
			if err != nil {
				return nil, nil, fmt.Errorf("decoding base64 content: %w", err)
			}
			reader = bytes.NewReader(data)
		} else {
			reader = strings.NewReader(input.Content)
		}

		if input.Name == "" {
			return nil, nil, fmt.Errorf("name is required")
		}

		file := &drive.File{Name: input.Name}
		if input.MIMEType != "" {
			file.MimeType = input.MIMEType
		}
		if input.FolderID != "" {
			file.Parents = []string{input.FolderID}
		}

		created, err := svc.Files.Create(file).Media(reader).
			Fields("id,name,mimeType,size,webViewLink").Context(ctx).Do()
		if err != nil {
			return nil, nil, wrapAPIError("uploading file", err)
		}

		srv.Logger().Info("file uploaded",
			logging.Tool("upload_file"), logging.FileID(created.Id), logging.Status(logging.StatusSuccess))

		var sb strings.Builder
		fmt.Fprintf(&sb, "File uploaded.\n\n")
		fmt.Fprintf(&sb, "Name: %s\n", created.Name)
		fmt.Fprintf(&sb, "File ID: %s\n", created.Id)
		fmt.Fprintf(&sb, "MIME Type: %s\n", created.MimeType)
		if created.Size > 0 {
			fmt.Fprintf(&sb, "Size: %d bytes\n", created.Size)
		}
		if created.WebViewLink != "" {
			fmt.Fprintf(&sb, "Link: %s\n", created.WebViewLink)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: sb.String()},
			},
		}, nil, nil
	})
}

// --- download_file ---

type downloadInput struct {
	FileID     string `json:"file_id" jsonschema:"Google Drive file ID to download"`
	Path       string `json:"path" jsonschema:"Destination path for the downloaded file (relative to an allowed write directory)"`
	ExportMIME string `json:"export_mime,omitempty" jsonschema:"MIME type to export Google Docs/Sheets/Slides as (e.g. 'text/plain', 'application/pdf'). A per-type default is used if omitted."`
}

func registerDownload(srv *server.Server, mgr *auth.Manager) {
	desc := `Download a Google Drive file to a local directory. Content is streamed straight to disk and never enters the conversation.

For Google Docs/Sheets/Slides, the file is exported; set export_mime to choose the format.
Requires --allow-write-dir.` + srv.WriteDirsDescription()

	server.AddTool(srv, &mcp.Tool{
		Name:        "download_file",
		Description: desc,
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input downloadInput) (*mcp.CallToolResult, any, error) {
		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, nil, fmt.Errorf("creating Drive service: %w", err)
		}

		lfs := srv.LocalFS()
		if lfs == nil {
			return nil, nil, fmt.Errorf("local file access is not enabled (use --allow-write-dir)")
		}
		if input.Path == "" {
			return nil, nil, fmt.Errorf("path is required")
		}

		// Metadata first: Google Workspace files must be exported.
		file, err := svc.Files.Get(input.FileID).Fields("id,name,mimeType,size").Context(ctx).Do()
		if err != nil {
			return nil, nil, wrapAPIError("getting file metadata", err)
		}

		var body io.ReadCloser
		if isGoogleWorkspaceFile(file.MimeType) {
			exportMIME := input.ExportMIME
			if exportMIME == "" {
				exportMIME = defaultExportMIME(file.MimeType)
			}
			resp, err := svc.Files.Export(input.FileID, exportMIME).Context(ctx).Download()
			if err != nil {
				return nil, nil, wrapAPIError("exporting file", err)
			}
			body = resp.Body
		} else {
			resp, err := svc.Files.Get(input.FileID).Context(ctx).Download()
			if err != nil {
				return nil, nil, wrapAPIError("downloading file", err)
			}
			body = resp.Body
		}
		defer body.Close()

		written, dir, err := lfs.WriteFrom(input.Path, body)
		if err != nil {
			return nil, nil, fmt.Errorf("saving file: %w", err)
		}

		srv.Logger().Info("file downloaded",
			logging.Tool("download_file"),
			logging.FileID(file.Id),
			logging.Status(logging.StatusSuccess),
			slog.Int64("bytes", written))

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("File downloaded.\n\nName: %s\nMIME Type: %s\nBytes written: %d\nSaved to: %s/%s",
					file.Name, file.MimeType, written, dir, input.Path)},
			},
		}, nil, nil
	})
}
