package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	catalogsvc "github.com/mamadbah2/hotelerp/internal/service/catalog"
)

func newSeedCmd(e *env) *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "seed-superadmin",
		Short: "Create the first superadmin account",
		Long:  "Create the first superadmin account. The password is read from SUPERADMIN_PASSWORD.",
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("SUPERADMIN_PASSWORD")
			if password == "" {
				return errors.New("SUPERADMIN_PASSWORD must be provided")
			}

			svc := catalogsvc.NewService(e.store, e.logger.Named("svc.catalog"))
			user, created, err := svc.SeedSuperAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintf(cmd.OutOrStdout(), "user %s already exists (role %s)\n", user.Email, user.Role)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "superadmin %s created with id %s\n", user.Email, user.ID.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Super Admin", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
