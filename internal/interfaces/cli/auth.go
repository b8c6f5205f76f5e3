package cli

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nudriin/humbet-cli/internal/core/domain"
	"github.com/nudriin/humbet-cli/internal/interfaces/di"
)

// NewAuthCommand creates the auth subcommand tree.
func NewAuthCommand(container *di.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the admin session",
		Long:  `Log in to the Humbet backend, inspect the stored session, log out, or register a new admin account.`,
	}

	cmd.AddCommand(newAuthLoginCommand(container))
	cmd.AddCommand(newAuthLogoutCommand(container))
	cmd.AddCommand(newAuthStatusCommand(container))
	cmd.AddCommand(newAuthRegisterCommand(container))

	return cmd
}

func newAuthLoginCommand(container *di.Container) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange credentials for a session",
		Example: `  humbet auth login --username admin
  humbet auth login --username admin --password secret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("username is required")
			}
			if password == "" {
				fmt.Print("Password: ")
				raw, err := term.ReadPassword(int(syscall.Stdin))
				fmt.Println()
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = string(raw)
			}

			resp, err := container.APIClient.PostLogin(cmd.Context(), domain.LoginRequest{
				Username: username,
				Password: password,
			})
			if err != nil {
				return fmt.Errorf("login failed: %s", userMessage(err))
			}

			err = container.SessionStore.Save(domain.Session{
				AccessToken:  resp.AccessToken,
				RefreshToken: resp.RefreshToken,
				User:         resp.User,
			})
			if err != nil {
				return fmt.Errorf("failed to persist session: %w", err)
			}

			who := username
			if resp.User != nil {
				who = resp.User.Username
			}
			fmt.Printf("%s Logged in as %s\n", successStyle.Render("✓"), who)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Admin username")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted when omitted)")
	cmd.MarkFlagRequired("username")

	return cmd
}

func newAuthLogoutCommand(container *di.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := container.SessionStore.Clear(""); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			fmt.Printf("%s Logged out\n", successStyle.Render("✓"))
			return nil
		},
	}
}

func newAuthStatusCommand(container *di.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := container.SessionStore.Load()
			if err != nil {
				return fmt.Errorf("failed to load session: %w", err)
			}

			if !session.IsAuthenticated() {
				fmt.Println("Not logged in")
				fmt.Println(dimStyle.Render("Run 'humbet auth login --username NAME' to log in"))
				return nil
			}

			masked := session.AccessToken
			if len(masked) > 10 {
				masked = masked[:6] + "..." + masked[len(masked)-4:]
			}
			if session.User != nil {
				fmt.Printf("%s %s\n", labelStyle.Render("User:"), session.User.Username)
				if session.User.Role != "" {
					fmt.Printf("%s %s\n", labelStyle.Render("Role:"), session.User.Role)
				}
			}
			fmt.Printf("%s %s\n", labelStyle.Render("Access token:"), masked)
			fmt.Printf("%s %s\n", labelStyle.Render("Backend:"), container.Config.APIBaseURL)
			return nil
		},
	}
}

func newAuthRegisterCommand(container *di.Container) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new admin account (privileged)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return fmt.Errorf("username and password are required")
			}

			resp, err := container.APIClient.PostAdminRegister(cmd.Context(), domain.AdminRegisterRequest{
				Username: username,
				Password: password,
			})
			if err != nil {
				return fmt.Errorf("registration failed: %s", userMessage(err))
			}

			fmt.Printf("%s Created admin account %s (id %d)\n", successStyle.Render("✓"), resp.Username, resp.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "New admin username")
	cmd.Flags().StringVar(&password, "password", "", "New admin password")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")

	return cmd
}
