// Package server wraps the MCP SDK server to capture tool metadata at
// registration time, enabling runtime filtering by read-only status,
// whitelists, and blacklists, and carries the shared plumbing (sandboxed
// local filesystem, logger) that tool handlers need.
package server

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/drivemcp/drivemcp/internal/localfs"
)

// BoolPtr returns a pointer to a bool value. Useful for MCP ToolAnnotations
// fields like DestructiveHint and OpenWorldHint which are *bool.
func BoolPtr(v bool) *bool { return &v }

// ToolInfo describes a registered tool for filtering purposes.
type ToolInfo struct {
	Name     string
	ReadOnly bool
}

// Server wraps an mcp.Server. Register tools through AddTool so their name
// and read-only status are recorded; after registration, ApplyFilter removes
// tools that don't match the configured filter.
type Server struct {
	*mcp.Server
	tools   []ToolInfo
	localFS *localfs.FS
	logger  *slog.Logger
}

// NewServer creates a new Server wrapper around an mcp.Server.
func NewServer(impl *mcp.Implementation, opts *mcp.ServerOptions) *Server {
	return &Server{Server: mcp.NewServer(impl, opts)}
}

// SetLocalFS sets the sandboxed local filesystem for the server.
// Tools use LocalFS() to read/write local files within allowed directories.
func (s *Server) SetLocalFS(fs *localfs.FS) {
	s.localFS = fs
}

// LocalFS returns the local filesystem sandbox, or nil if not configured.
func (s *Server) LocalFS() *localfs.FS {
	return s.localFS
}

// SetLogger sets the logger used by tool handlers.
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Logger returns the configured logger, or slog.Default() if none was set.
func (s *Server) Logger() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}

// Tools returns the metadata for all registered tools.
func (s *Server) Tools() []ToolInfo {
	return s.tools
}

// AddTool registers a typed tool on the server and records its metadata.
// This is a free generic function because Go does not allow generic methods
// on types, the same pattern the MCP SDK uses for mcp.AddTool.
func AddTool[In, Out any](s *Server, t *mcp.Tool, h mcp.ToolHandlerFor[In, Out]) {
	s.tools = append(s.tools, ToolInfo{
		Name:     t.Name,
		ReadOnly: t.Annotations != nil && t.Annotations.ReadOnlyHint,
	})
	mcp.AddTool(s.Server, t, h)
}

// WriteDirsDescription returns a description snippet listing the configured
// write-enabled directories, suitable for appending to a tool description.
// Returns an empty string if no write directories are configured.
func (s *Server) WriteDirsDescription() string {
	if s.localFS == nil {
		return ""
	}
	var sb strings.Builder
	for _, d := range s.localFS.Dirs() {
		if d.Mode == localfs.ModeReadWrite {
			fmt.Fprintf(&sb, "  - %s\n", d.Path)
		}
	}
	if sb.Len() == 0 {
		return ""
	}
	return "\n\nAllowed write directories (for local paths):\n" + sb.String()
}

// ReadDirsDescription returns a description snippet listing all configured
// directories (both read-only and read-write), suitable for appending to a
// tool description. Returns an empty string if none are configured.
func (s *Server) ReadDirsDescription() string {
	if s.localFS == nil {
		return ""
	}
	dirs := s.localFS.Dirs()
	if len(dirs) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\nAllowed local directories (for local file paths):\n")
	for _, d := range dirs {
		mode := "read-only"
		if d.Mode == localfs.ModeReadWrite {
			mode = "read-write"
		}
		fmt.Fprintf(&sb, "  - %s (%s)\n", d.Path, mode)
	}
	return sb.String()
}

// ToolFilter configures which tools the server exposes.
type ToolFilter struct {
	// ReadOnly limits the server to read-only tools.
	ReadOnly bool
	// Enable is a whitelist of tool names to expose. Mutually exclusive with Disable.
	Enable []string
	// Disable is a blacklist of tool names to hide. Mutually exclusive with Enable.
	Disable []string
}

// ApplyFilter removes tools from the server based on the filter.
// Returns an error if the filter is invalid (enable and disable both set,
// or referencing unknown tool names).
func (s *Server) ApplyFilter(filter ToolFilter) error {
	if len(filter.Enable) > 0 && len(filter.Disable) > 0 {
		return fmt.Errorf("--enable and --disable are mutually exclusive")
	}

	// Base set: all tools, or read-only tools only.
	baseSet := make(map[string]bool, len(s.tools))
	allTools := make(map[string]bool, len(s.tools))
	for _, t := range s.tools {
		allTools[t.Name] = true
		if !filter.ReadOnly || t.ReadOnly {
			baseSet[t.Name] = true
		}
	}

	checkKnown := func(names []string) error {
		for _, name := range names {
			if baseSet[name] {
				continue
			}
			if allTools[name] && filter.ReadOnly {
				return fmt.Errorf("tool %q is not a read-only tool", name)
			}
			return fmt.Errorf("unknown tool %q", name)
		}
		return nil
	}

	if filter.ReadOnly {
		var remove []string
		for _, t := range s.tools {
			if !t.ReadOnly {
				remove = append(remove, t.Name)
			}
		}
		if len(remove) > 0 {
			s.RemoveTools(remove...)
		}
	}

	if len(filter.Enable) > 0 {
		if err := checkKnown(filter.Enable); err != nil {
			return err
		}
		enabled := make(map[string]bool, len(filter.Enable))
		for _, name := range filter.Enable {
			enabled[name] = true
		}
		var remove []string
		for name := range baseSet {
			if !enabled[name] {
				remove = append(remove, name)
			}
		}
		if len(remove) > 0 {
			s.RemoveTools(remove...)
		}
	}

	if len(filter.Disable) > 0 {
		if err := checkKnown(filter.Disable); err != nil {
			return err
		}
		s.RemoveTools(filter.Disable...)
	}

	return nil
}
