package cli

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"topic-quiz-service/internal/app"
	"topic-quiz-service/internal/config"
	"topic-quiz-service/internal/domain"
	"topic-quiz-service/internal/infra/postgres"
)

// NewCreateAdminCmd stores an administrator credential. The password is
// bcrypt-hashed before it leaves this process.
func NewCreateAdminCmd(configPath *string) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create or replace an administrator credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			username = strings.TrimSpace(username)
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			hash, err := app.HashPassword(password)
			if err != nil {
				return err
			}

			db := openBunDB(cfg.Postgres.URL)
			defer db.Close()

			store := postgres.NewStore(db)
			if err := store.UpsertAdmin(cmd.Context(), domain.Admin{
				Username:     username,
				PasswordHash: hash,
			}); err != nil {
				return err
			}
			log.Printf("admin credential stored for %q", username)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	return cmd
}
