package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bnema/we-quota-cli/internal/application"
	"github.com/bnema/we-quota-cli/internal/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const maxInteractiveLoginAttempts = 3

func newLoginCmd(app *app) *cobra.Command {
	var number string
	var password string
	var name string

	cmd := &cobra.Command{
		Use:   "login [service-number]",
		Short: "Sign in with a WE service number and password",
		Long:  "Sign in to the WE self-service portal. The credentials are checked with a live login before they are stored.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				number = args[0]
			}
			return runLogin(cmd, app, number, password, name)
		},
	}

	cmd.Flags().StringVar(&number, "number", "", "Service number (landline number used on the portal)")
	cmd.Flags().StringVar(&password, "password", "", "Portal password (prompted without echo when omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Display name for the account")

	return cmd
}

func runLogin(cmd *cobra.Command, app *app, number, password, name string) error {
	prompter := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())

	var err error
	if strings.TrimSpace(number) == "" {
		number, err = prompter.line("Service number: ")
		if err != nil {
			return err
		}
	}

	askPassword := password == ""
	for attempt := 1; ; attempt++ {
		if askPassword {
			password, err = prompter.secret("Password: ")
			if err != nil {
				return err
			}
		}

		account, err := app.service.SignIn(cmd.Context(), application.SignInCommand{
			Number:   number,
			Password: password,
			Name:     name,
		})
		if err == nil {
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", account.Name, account.ID)
			return err
		}

		retry := askPassword && prompter.interactive && attempt < maxInteractiveLoginAttempts &&
			errors.Is(err, domain.ErrInvalidCredentials)
		if !retry {
			return describeError(err)
		}

		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Service number or password is incorrect, try again.")
	}
}

type prompter struct {
	reader      *bufio.Reader
	out         io.Writer
	interactive bool
	fd          int
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{reader: bufio.NewReader(in), out: out}
	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		p.interactive = true
		p.fd = int(file.Fd())
	}
	return p
}

func (p *prompter) line(label string) (string, error) {
	if _, err := fmt.Fprint(p.out, label); err != nil {
		return "", err
	}

	value, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && value != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}

	return strings.TrimSpace(value), nil
}

// secret reads without echo on a terminal and falls back to a plain line otherwise.
func (p *prompter) secret(label string) (string, error) {
	if !p.interactive {
		return p.line(label)
	}

	if _, err := fmt.Fprint(p.out, label); err != nil {
		return "", err
	}
	value, err := term.ReadPassword(p.fd)
	_, _ = fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	return string(value), nil
}

func newLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout <service-number>",
		Short: "Sign out and delete the stored credentials of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.AccountID(domain.NormalizeServiceNumber(args[0]))
			if err := app.service.SignOut(cmd.Context(), id); err != nil {
				return describeError(err)
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Signed out %s\n", id)
			return err
		},
	}
}
