package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// readLocalFileMaxSize caps read_local_file output so a large file cannot
// flood the conversation.
const readLocalFileMaxSize = 512 * 1024

// RegisterLocalFSTools registers the list_local_files and read_local_file
// tools, giving the agent visibility into the allowed local directories used
// by download_file and upload_file. No-op if the server has no local
// filesystem configured.
func RegisterLocalFSTools(s *Server) {
	if s.LocalFS() == nil {
		return
	}
	registerListLocalFiles(s)
	registerReadLocalFile(s)
}

type listLocalFilesInput struct {
	Path string `json:"path,omitempty" jsonschema:"Relative path within an allowed directory. Omit or use '.' to list the root of each allowed directory."`
}

func registerListLocalFiles(srv *Server) {
	AddTool(srv, &mcp.Tool{
		Name: "list_local_files",
		Description: "List files in an allowed local directory. Paths are relative to an allowed directory; omit path or use '.' for root contents." +
			srv.ReadDirsDescription(),
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input listLocalFilesInput) (*mcp.CallToolResult, any, error) {
		entries, dir, err := srv.LocalFS().ListDir(input.Path)
		if err != nil {
			return nil, nil, err
		}

		shown := dir
		if input.Path != "" && input.Path != "." {
			shown = dir + "/" + input.Path
		}

		var out strings.Builder
		fmt.Fprintf(&out, "%s: %d entries\n", shown, len(entries))
		for _, e := range entries {
			if e.IsDir {
				fmt.Fprintf(&out, "  %s/\n", e.Name)
			} else {
				fmt.Fprintf(&out, "  %s (%d bytes)\n", e.Name, e.Size)
			}
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: out.String()},
			},
		}, nil, nil
	})
}

type readLocalFileInput struct {
	Path string `json:"path" jsonschema:"Relative path to a file within an allowed directory"`
}

func registerReadLocalFile(srv *Server) {
	AddTool(srv, &mcp.Tool{
		Name: "read_local_file",
		Description: `Read a text file from an allowed local directory. Output is truncated at 512 KB.

Binary files are not returned; use download_file to save Drive content to disk instead.` +
			srv.ReadDirsDescription(),
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input readLocalFileInput) (*mcp.CallToolResult, any, error) {
		if input.Path == "" {
			return nil, nil, fmt.Errorf("path is required")
		}

		data, dir, err := srv.LocalFS().ReadFile(input.Path)
		if err != nil {
			return nil, nil, err
		}

		if !isTextContent(data) {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{Text: fmt.Sprintf("%s/%s is binary (%d bytes); not returning content.", dir, input.Path, len(data))},
				},
			}, nil, nil
		}

		text := string(data)
		if len(data) > readLocalFileMaxSize {
			text = string(data[:readLocalFileMaxSize]) + "\n\n--- truncated at 512 KB ---"
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, nil, nil
	})
}

// isTextContent reports whether data looks like text: no NUL bytes, and
// control characters other than tab/newline make up under 10% of the input.
// High-bit bytes count as text so UTF-8 passes.
func isTextContent(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	control := 0
	for _, b := range data {
		if b == 0 {
			return false
		}
		if b < 32 && b != '\n' && b != '\r' && b != '\t' {
			control++
		}
	}
	return control*10 < len(data)
}
