package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/turtacn/tokenlife/internal/app"
	"github.com/turtacn/tokenlife/internal/application/dto"
)

// readPassword is swapped in tests to avoid touching the terminal.
var readPassword = term.ReadPassword

var isTerminal = term.IsTerminal

func newUsersCommand(opts *rootOptions) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}
	usersCmd.AddCommand(newUsersCreateCommand(opts))
	return usersCmd
}

func newUsersCreateCommand(opts *rootOptions) *cobra.Command {
	req := &dto.RegisterRequest{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user; the password is read from the terminal or stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			req.Password = password

			return opts.withContainer(cmd.Context(), func(c *app.Container) error {
				user, err := c.AuthService.Register(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "created user %d (%s)\n", user.ID, user.Username)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "login name (required)")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&req.PhoneNumber, "phone", "", "phone number")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// promptPassword reads the password twice without echo on a terminal, or a
// single line from in otherwise.
func promptPassword(in io.Reader, w io.Writer) (string, error) {
	f, ok := in.(*os.File)
	if !ok || !isTerminal(int(f.Fd())) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(w, "Password: ")
	first, err := readPassword(int(f.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	fmt.Fprint(w, "Repeat password: ")
	second, err := readPassword(int(f.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	if !bytes.Equal(first, second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}

//Personal.AI order the ending
