// Package cli implements the hubstore admin commands. Every command opens
// the lifecycle manager, performs one operation, and exits; the manager is
// otherwise consumed as a library by the host application.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DataDir string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the hubstore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "hubstore",
		Short: "hubstore - multi-tenant data-store lifecycle manager",
		Long:  "Manages the registry of users, organizations, and memberships,\nplus one isolated SQLite store per organization.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "application data directory (overrides HUBSTORE_DATA_DIR)")

	// Add subcommands
	cmd.AddCommand(NewCreateUserCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewCreateOrgCommand(opts))
	cmd.AddCommand(NewListOrgsCommand(opts))
	cmd.AddCommand(NewCreateStoreCommand(opts))
	cmd.AddCommand(NewDeleteUserCommand(opts))
	cmd.AddCommand(NewDeleteOrgCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
