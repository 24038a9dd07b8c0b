package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/config"
)

// TokenCmd creates the token command, which mints an access token for the API
// using the JWT settings from the environment.
func TokenCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			role, _ := cmd.Flags().GetString("role")
			email, _ := cmd.Flags().GetString("email")
			expiry, _ := cmd.Flags().GetDuration("expiry")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cmd.Flags().Changed("expiry") {
				expiry = cfg.JWT.Expiration
			}

			tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Expiry: expiry})
			token, expiresAt, err := tokens.IssueToken(models.UserInfo{
				ID:    userID,
				Email: email,
				Role:  models.UserRole(strings.ToUpper(role)),
			})
			if err != nil {
				return err
			}
			app.logger().Info("token issued", zap.String("user", userID), zap.Time("expires_at", expiresAt))
			fmt.Fprintln(app.stdout(), token)
			return nil
		},
	}

	cmd.Flags().String("user", "cli", "Subject user ID")
	cmd.Flags().String("role", string(models.RoleAdmin), "Role: SUPERADMIN, ADMIN, TEACHER or STUDENT")
	cmd.Flags().String("email", "", "Email claim")
	cmd.Flags().Duration("expiry", 24*time.Hour, "Token lifetime")

	return cmd
}
