package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskmaster/console/internal/ports"
	"github.com/taskmaster/console/internal/session"
)

// NewLoginCommand creates the login command
func NewLoginCommand(flags *globalFlags) *cobra.Command {
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session token",
		Long:  "Sign in against the backend. The password is read from stdin when --password is not given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				var err error
				if password, err = readLine(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			app, err := newCLIApp(flags)
			if err != nil {
				return err
			}
			defer app.close()

			res, err := app.ws.Auth.Login(cmd.Context(), ports.LoginRequest{Email: email, Password: password})
			if err != nil {
				return describe(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Signed in as %s (%s)\n", res.User.Name, res.User.Role.Label())
			fmt.Fprintf(out, "Landing page: %s\n", res.Redirect)
			fmt.Fprintf(out, "Token stored in %s\n", app.store.Path())
			return nil
		},
	}

	loginCmd.Flags().String("email", "", "Account email (required)")
	loginCmd.Flags().String("password", "", "Account password")
	return loginCmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newCLIApp(flags)
			if err != nil {
				return err
			}
			defer app.close()

			app.ws.Auth.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

// NewWhoamiCommand creates the whoami command
func NewWhoamiCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newCLIApp(flags)
			if err != nil {
				return err
			}
			defer app.close()

			state, err := app.requireUser(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", state.User.Name, state.User.Email)
			fmt.Fprintf(out, "Role: %s\n", state.Role.Label())

			// Cookie transports store an opaque value; only JWTs say when
			// they expire.
			if info, err := session.Inspect(app.ws.Session.GetToken()); err == nil && info.ExpiresAt != nil {
				fmt.Fprintf(out, "Session expires: %s (in %s)\n",
					info.ExpiresAt.Local().Format("02/01/2006 15:04"),
					time.Until(*info.ExpiresAt).Round(time.Minute))
			}
			return nil
		},
	}
}
