package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prisken/hubstore/pkg/domain"
	"github.com/prisken/hubstore/pkg/lifecycle"
)

// CreateUserOptions holds flags for the create-user command.
type CreateUserOptions struct {
	*RootOptions
	Password string
}

// NewCreateUserCommand creates the create-user command.
func NewCreateUserCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateUserOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "create-user <name>",
		Short:         "Create a user account",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return createUser(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Password, "password", "", "password for the new user (required)")
	cmd.MarkFlagRequired("password")

	return cmd
}

func createUser(opts *CreateUserOptions, name string, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := a.opContext()
	defer cancel()

	user, err := a.passwords.CreateUser(ctx, name, opts.Password)
	if err != nil {
		if errors.Is(err, domain.ErrConstraintViolation) {
			return fmt.Errorf("user %q already exists", name)
		}
		return err
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
			"id":         user.ID,
			"name":       user.Name,
			"created_at": user.CreatedAt,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.Name, user.ID)
	return nil
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateUserOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "login <name>",
		Short:         "Authenticate a user and print a session token if configured",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return login(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Password, "password", "", "password (required)")
	cmd.MarkFlagRequired("password")

	return cmd
}

func login(opts *CreateUserOptions, name string, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := a.opContext()
	defer cancel()

	user, err := a.passwords.Authenticate(ctx, name, opts.Password)
	if err != nil {
		return err
	}

	out := map[string]any{"id": user.ID, "name": user.Name}
	if a.sessions != nil {
		token, err := a.sessions.IssueToken(user)
		if err != nil {
			return err
		}
		out["access_token"] = token
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "authenticated %s (%s)\n", user.Name, user.ID)
	if token, ok := out["access_token"]; ok {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", token)
	}
	return nil
}

// NewDeleteUserCommand creates the delete-user command.
func NewDeleteUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "delete-user <user-id>",
		Short:         "Delete a user, their organizations, and all owned tenant stores",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteUser(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func deleteUser(opts *RootOptions, rawID string, cmd *cobra.Command) error {
	userID, err := parseID(rawID)
	if err != nil {
		return err
	}

	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := a.opContext()
	defer cancel()

	err = a.orchestrator.DeleteUser(ctx, userID)
	var cleanup *lifecycle.CleanupError
	if errors.As(err, &cleanup) {
		// Registry deletion committed; only filesystem cleanup is pending.
		fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s; cleanup incomplete, run reconcile: %v\n", userID, cleanup)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", userID)
	return nil
}
