package drive

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/api/drive/v3"

	"github.com/drivemcp/drivemcp/internal/auth"
	"github.com/drivemcp/drivemcp/internal/logging"
	"github.com/drivemcp/drivemcp/internal/server"
)

// --- list_files ---

type listInput struct {
	FolderID   string `json:"folder_id,omitempty" jsonschema:"Folder ID to list contents of (default: root)"`
	MaxResults int64  `json:"max_results,omitempty" jsonschema:"Maximum number of results (default 20, max 100)"`
	OrderBy    string `json:"order_by,omitempty" jsonschema:"Sort order (e.g. 'modifiedTime desc', 'name'). Default: 'modifiedTime desc'"`
}

func registerList(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "list_files",
		Description: "List files in Google Drive, optionally within a specific folder. Returns file IDs, names, and metadata. Trashed files are excluded.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input listInput) (*mcp.CallToolResult, any, error) {
		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, nil, fmt.Errorf("creating Drive service: %w", err)
		}

		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = 20
		}
		if maxResults > 100 {
			maxResults = 100
		}

		orderBy := input.OrderBy
		if orderBy == "" {
			orderBy = "modifiedTime desc"
		}

		call := svc.Files.List().
			PageSize(maxResults).
			OrderBy(orderBy).
			Fields("files(id,name,mimeType,size,createdTime,modifiedTime,webViewLink)")

		if input.FolderID != "" {
			call = call.Q(fmt.Sprintf("'%s' in parents and trashed = false", input.FolderID))
		} else {
			call = call.Q("trashed = false")
		}

		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, nil, wrapAPIError("listing files", err)
		}

		if len(resp.Files) == 0 {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{Text: "No files found."},
				},
			}, nil, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: formatFileList(resp.Files)},
			},
		}, nil, nil
	})
}

// --- search_files ---

type searchInput struct {
	Query      string `json:"query" jsonschema:"Drive search query (e.g. \"name contains 'report'\" or \"mimeType = 'application/pdf'\")"`
	MaxResults int64  `json:"max_results,omitempty" jsonschema:"Maximum number of results (default 10, max 50)"`
}

func registerSearch(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "search_files",
		Description: "Search Google Drive files using Drive query syntax. Returns file IDs, names, and metadata.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input searchInput) (*mcp.CallToolResult, any, error) {
		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, nil, fmt.Errorf("creating Drive service: %w", err)
		}

		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = 10
		}
		if maxResults > 50 {
			maxResults = 50
		}

		resp, err := svc.Files.List().
			Q(input.Query).
			PageSize(maxResults).
			Fields("files(id,name,mimeType,size,createdTime,modifiedTime,webViewLink)").
			Context(ctx).Do()
		if err != nil {
			return nil, nil, wrapAPIError("searching files", err)
		}

		if len(resp.Files) == 0 {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{Text: "No files found."},
				},
			}, nil, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: formatFileList(resp.Files)},
			},
		}, nil, nil
	})
}

// --- get_file ---

type getInput struct {
	FileID string `json:"file_id" jsonschema:"Google Drive file ID"`
}

func registerGet(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name:        "get_file",
		Description: "Get detailed metadata for a specific Google Drive file by ID, including size, timestamps, owners, and export formats.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input getInput) (*mcp.CallToolResult, any, error) {
		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, nil, fmt.Errorf("creating Drive service: %w", err)
		}

		file, err := svc.Files.Get(input.FileID).
			Fields("id,name,mimeType,size,description,modifiedTime,createdTime,owners,parents,webViewLink,webContentLink,exportLinks").
			Context(ctx).Do()
		if err != nil {
			return nil, nil, wrapAPIError("getting file", err)
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Name: %s\n", file.Name)
		fmt.Fprintf(&sb, "File ID: %s\n", file.Id)
		fmt.Fprintf(&sb, "MIME Type: %s\n", file.MimeType)
		if file.Size > 0 {
			fmt.Fprintf(&sb, "Size: %d bytes\n", file.Size)
		}
		if file.Description != "" {
			fmt.Fprintf(&sb, "Description: %s\n", file.Description)
		}
		fmt.Fprintf(&sb, "Created: %s\n", file.CreatedTime)
		fmt.Fprintf(&sb, "Modified: %s\n", file.ModifiedTime)
		if file.WebViewLink != "" {
			fmt.Fprintf(&sb, "Web Link: %s\n", file.WebViewLink)
		}
		if len(file.Owners) > 0 {
			var owners []string
			for _, o := range file.Owners {
				owners = append(owners, o.DisplayName)
			}
			fmt.Fprintf(&sb, "Owners: %s\n", strings.Join(owners, ", "))
		}
		if len(file.ExportLinks) > 0 {
			sb.WriteString("Export formats:\n")
			for mime := range file.ExportLinks {
				fmt.Fprintf(&sb, "  - %s\n", mime)
			}
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: sb.String()},
			},
		}, nil, nil
	})
}

// --- create_folder ---

type createFolderInput struct {
	Name     string `json:"name" jsonschema:"Folder name"`
	FolderID string `json:"folder_id,omitempty" jsonschema:"Parent folder ID (default: root)"`
}

func registerCreateFolder(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name: "create_folder",
		Annotations: &mcp.ToolAnnotations{
			DestructiveHint: server.BoolPtr(false),
		},
		Description: "Create a new folder in Google Drive, optionally inside an existing folder.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input createFolderInput) (*mcp.CallToolResult, any, error) {
		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, nil, fmt.Errorf("creating Drive service: %w", err)
		}

		if input.Name == "" {
			return nil, nil, fmt.Errorf("name is required")
		}

		folder := &drive.File{
			Name:     input.Name,
			MimeType: folderMIMEType,
		}
		if input.FolderID != "" {
			folder.Parents = []string{input.FolderID}
		}

		created, err := svc.Files.Create(folder).Fields("id,name,webViewLink").Context(ctx).Do()
		if err != nil {
			return nil, nil, wrapAPIError("creating folder", err)
		}

		srv.Logger().Info("folder created",
			logging.Tool("create_folder"), logging.FileID(created.Id), logging.Status(logging.StatusSuccess))

		var sb strings.Builder
		fmt.Fprintf(&sb, "Folder created.\n\n")
		fmt.Fprintf(&sb, "Name: %s\n", created.Name)
		fmt.Fprintf(&sb, "Folder ID: %s\n", created.Id)
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

// --- rename_file ---

type renameInput struct {
	FileID string `json:"file_id" jsonschema:"Google Drive file ID to rename"`
	Name   string `json:"name" jsonschema:"New name for the file"`
}

func registerRename(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name: "rename_file",
		Annotations: &mcp.ToolAnnotations{
			IdempotentHint: true,
		},
		Description: "Rename a file or folder in Google Drive.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input renameInput) (*mcp.CallToolResult, any, error) {
		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, nil, fmt.Errorf("creating Drive service: %w", err)
		}

		if input.Name == "" {
			return nil, nil, fmt.Errorf("name is required")
		}

		updated, err := svc.Files.Update(input.FileID, &drive.File{Name: input.Name}).
			Fields("id,name,mimeType,webViewLink").Context(ctx).Do()
		if err != nil {
			return nil, nil, wrapAPIError("renaming file", err)
		}

		srv.Logger().Info("file renamed",
			logging.Tool("rename_file"), logging.FileID(updated.Id), logging.Status(logging.StatusSuccess))

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("File renamed.\n\nName: %s\nFile ID: %s\nLink: %s",
					updated.Name, updated.Id, updated.WebViewLink)},
			},
		}, nil, nil
	})
}

// --- move_file ---

type moveInput struct {
	FileID   string `json:"file_id" jsonschema:"Google Drive file ID to move"`
	FolderID string `json:"folder_id" jsonschema:"Destination folder ID"`
}

func registerMove(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name: "move_file",
		Annotations: &mcp.ToolAnnotations{
			IdempotentHint: true,
		},
		Description: "Move a file to a different folder in Google Drive.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input moveInput) (*mcp.CallToolResult, any, error) {
		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, nil, fmt.Errorf("creating Drive service: %w", err)
		}

		// Current parents are removed when the file lands in its new folder.
		file, err := svc.Files.Get(input.FileID).Fields("parents").Context(ctx).Do()
		if err != nil {
			return nil, nil, wrapAPIError("getting file parents", err)
		}
		previousParents := strings.Join(file.Parents, ",")

		updated, err := svc.Files.Update(input.FileID, &drive.File{}).
			AddParents(input.FolderID).
			RemoveParents(previousParents).
			Fields("id,name,parents,webViewLink").Context(ctx).Do()
		if err != nil {
			return nil, nil, wrapAPIError("moving file", err)
		}

		srv.Logger().Info("file moved",
			logging.Tool("move_file"), logging.FileID(updated.Id), logging.Status(logging.StatusSuccess))

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("File moved.\n\nName: %s\nFile ID: %s\nNew parent: %s\nLink: %s",
					updated.Name, updated.Id, input.FolderID, updated.WebViewLink)},
			},
		}, nil, nil
	})
}

// --- delete_file ---

type deleteInput struct {
	FileID string `json:"file_id" jsonschema:"Google Drive file or folder ID to delete"`
	Trash  bool   `json:"trash,omitempty" jsonschema:"If true, move to trash instead of deleting permanently (default: false, permanent)"`
}

func registerDelete(srv *server.Server, mgr *auth.Manager) {
	server.AddTool(srv, &mcp.Tool{
		Name: "delete_file",
		Annotations: &mcp.ToolAnnotations{
			DestructiveHint: server.BoolPtr(true),
		},
		Description: `Delete a file or folder from Google Drive. Permanent by default (cannot be undone).

Set trash=true to move the file to trash instead.`,
	}, func(ctx context.Context, req *mcp.CallToolRequest, input deleteInput) (*mcp.CallToolResult, any, error) {
		svc, err := newService(ctx, mgr)
		if err != nil {
			return nil, nil, fmt.Errorf("creating Drive service: %w", err)
		}

		if input.Trash {
			_, err := svc.Files.Update(input.FileID, &drive.File{
				Trashed:         true,
				ForceSendFields: []string{"Trashed"},
			}).Context(ctx).Do()
			if err != nil {
				return nil, nil, wrapAPIError("trashing file", err)
			}
			srv.Logger().Info("file trashed",
				logging.Tool("delete_file"), logging.FileID(input.FileID), logging.Status(logging.StatusSuccess))
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{Text: fmt.Sprintf("File %s moved to trash.", input.FileID)},
				},
			}, nil, nil
		}

		if err := svc.Files.Delete(input.FileID).Context(ctx).Do(); err != nil {
			return nil, nil, wrapAPIError("deleting file", err)
		}

		srv.Logger().Info("file deleted",
			logging.Tool("delete_file"), logging.FileID(input.FileID), logging.Status(logging.StatusSuccess))

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("File %s permanently deleted.", input.FileID)},
			},
		}, nil, nil
	})
}
