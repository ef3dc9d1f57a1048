package cmd

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/drivemcp/drivemcp/internal/drive"
	"github.com/drivemcp/drivemcp/internal/localfs"
	"github.com/drivemcp/drivemcp/internal/server"
)

// toolFilterFlags holds the CLI flags for tool filtering.
type toolFilterFlags struct {
	readOnly bool
	enable   []string
	disable  []string
}

// addToolFilterFlags adds --read-only, --enable, and --disable flags to a command.
func addToolFilterFlags(cmd *cobra.Command, f *toolFilterFlags) {
	cmd.Flags().BoolVar(&f.readOnly, "read-only", false, "only expose read-only tools (no mutations)")
	cmd.Flags().StringSliceVar(&f.enable, "enable", nil, "whitelist of tool names to expose (comma-separated)")
	cmd.Flags().StringSliceVar(&f.disable, "disable", nil, "blacklist of tool names to hide (comma-separated)")
	cmd.MarkFlagsMutuallyExclusive("enable", "disable")
}

func (f *toolFilterFlags) toToolFilter() server.ToolFilter {
	return server.ToolFilter{
		ReadOnly: f.readOnly,
		Enable:   f.enable,
		Disable:  f.disable,
	}
}

// localFSFlags holds the CLI flags for local filesystem access.
type localFSFlags struct {
	readDirs  []string
	writeDirs []string
}

// addLocalFSFlags adds --allow-read-dir and --allow-write-dir flags to a command.
func addLocalFSFlags(cmd *cobra.Command, f *localFSFlags) {
	cmd.Flags().StringSliceVar(&f.readDirs, "allow-read-dir", nil, "local directories to allow reading from (repeatable, comma-separated)")
	cmd.Flags().StringSliceVar(&f.writeDirs, "allow-write-dir", nil, "local directories to allow reading and writing (repeatable, comma-separated)")
}

// toLocalFS creates a localfs.FS from the CLI flags.
// Returns nil if no directories are configured (local file access disabled).
func (f *localFSFlags) toLocalFS() (*localfs.FS, error) {
	if len(f.readDirs) == 0 && len(f.writeDirs) == 0 {
		return nil, nil
	}
	var dirs []localfs.Dir
	for _, d := range f.readDirs {
		dirs = append(dirs, localfs.Dir{Path: d, Mode: localfs.ModeRead})
	}
	for _, d := range f.writeDirs {
		dirs = append(dirs, localfs.Dir{Path: d, Mode: localfs.ModeReadWrite})
	}
	return localfs.New(dirs)
}

func newServeCmd() *cobra.Command {
	var filterFlags toolFilterFlags
	var fsFlags localFSFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Google Drive MCP server (stdio)",
		Long: `Starts an MCP server over stdio with Drive tools:
  list_files, search_files, get_file, create_folder, upload_file,
  rename_file, move_file, delete_file, download_file.

Use --read-only to expose only read-only tools.
Use --enable or --disable for granular tool control.
Use --allow-read-dir to enable uploading local files.
Use --allow-write-dir to enable downloading to local disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}

			srv := server.NewServer(&mcp.Implementation{
				Name:    "drivemcp",
				Version: version,
			}, nil)
			srv.SetLogger(newLogger())

			lfs, err := fsFlags.toLocalFS()
			if err != nil {
				return err
			}
			if lfs != nil {
				defer lfs.Close()
				srv.SetLocalFS(lfs)
			}

			drive.RegisterTools(srv, mgr)
			server.RegisterLocalFSTools(srv)

			if err := srv.ApplyFilter(filterFlags.toToolFilter()); err != nil {
				return err
			}

			return srv.Run(context.Background(), &mcp.StdioTransport{})
		},
	}

	addToolFilterFlags(cmd, &filterFlags)
	addLocalFSFlags(cmd, &fsFlags)
	return cmd
}
