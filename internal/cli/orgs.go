package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/prisken/hubstore/pkg/lifecycle"
)

// CreateOrgOptions holds flags for the create-org command.
type CreateOrgOptions struct {
	*RootOptions
	Owner       string
	Description string
	WithStore   bool
}

// NewCreateOrgCommand creates the create-org command.
func NewCreateOrgCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOrgOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "create-org <name>",
		Short:         "Create an organization owned by a user",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return createOrg(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owner user id (required)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "optional description")
	cmd.Flags().BoolVar(&opts.WithStore, "with-store", true, "provision the tenant store after creation")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func createOrg(opts *CreateOrgOptions, name string, cmd *cobra.Command) error {
	ownerID, err := parseID(opts.Owner)
	if err != nil {
		return err
	}

	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := a.opContext()
	defer cancel()

	var description *string
	if opts.Description != "" {
		description = &opts.Description
	}

	org, err := a.registry.CreateOrganization(ctx, ownerID, name, description)
	if err != nil {
		return err
	}

	if opts.WithStore {
		if err := a.gateway.CreateOrganizationStore(ctx, org.ID); err != nil {
			return fmt.Errorf("organization %s created but store provisioning failed: %w", org.ID, err)
		}
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
			"id":         org.ID,
			"name":       org.Name,
			"owner":      org.OwnerUserID,
			"created_at": org.CreatedAt,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created organization %s (%s)\n", org.Name, org.ID)
	return nil
}

// NewListOrgsCommand creates the list-orgs command.
func NewListOrgsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list-orgs <user-id>",
		Short:         "List the organizations a user belongs to, newest first",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listOrgs(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func listOrgs(opts *RootOptions, rawID string, cmd *cobra.Command) error {
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

	orgs, err := a.registry.ListOrganizationsForUser(ctx, userID)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(orgs)
	}
	for _, org := range orgs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", org.ID, org.Name, org.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// NewCreateStoreCommand creates the create-store command.
func NewCreateStoreCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "create-store <org-id>",
		Short:         "Provision the tenant store for an organization",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return createStore(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func createStore(opts *RootOptions, rawID string, cmd *cobra.Command) error {
	orgID, err := parseID(rawID)
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

	if err := a.gateway.CreateOrganizationStore(ctx, orgID); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "tenant store ready at %s\n", a.tenants.Layout().OrgDir(orgID))
	return nil
}

// NewDeleteOrgCommand creates the delete-org command.
func NewDeleteOrgCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "delete-org <org-id>",
		Short:         "Delete an organization and its tenant store",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteOrg(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func deleteOrg(opts *RootOptions, rawID string, cmd *cobra.Command) error {
	orgID, err := parseID(rawID)
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

	err = a.orchestrator.DeleteOrganization(ctx, orgID)
	var cleanup *lifecycle.CleanupError
	if errors.As(err, &cleanup) {
		fmt.Fprintf(cmd.OutOrStdout(), "deleted organization %s; cleanup incomplete, run reconcile: %v\n", orgID, cleanup)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "deleted organization %s\n", orgID)
	return nil
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "reconcile",
		Short:         "Remove orphaned tenant stores left by failed teardowns",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reconcile(rootOpts, cmd)
		},
	}
	return cmd
}

func reconcile(opts *RootOptions, cmd *cobra.Command) error {
	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := a.opContext()
	defer cancel()

	report, err := a.orchestrator.Reconcile(ctx)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(report)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d orphaned store(s), %d failure(s)\n",
		len(report.Removed), len(report.Failed))
	for id, ferr := range report.Failed {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %v\n", id, ferr)
	}
	return nil
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", raw, err)
	}
	return id, nil
}
