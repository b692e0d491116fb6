package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/rezzydesk/internal/session"
)

func newLoginCmd() *cobra.Command {
	var username string
	var passwordStdin bool

	c := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the Rezzy API and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{needStore: true})
			if err != nil {
				return err
			}
			defer a.Close()

			in := bufio.NewReader(cmd.InOrStdin())
			if username == "" {
				if username, err = prompt(cmd, in, "Username: "); err != nil {
					return err
				}
			}
			var password string
			if passwordStdin {
				password, err = readLine(in)
			} else {
				password, err = prompt(cmd, in, "Password: ")
			}
			if err != nil {
				return err
			}

			sess, err := a.client.Login(ctx, username, password)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "logged in as %s\n", sess.Username)
			if exp, ok := session.ExpiresAt(sess.Token); ok {
				fmt.Fprintf(out, "session expires %s\n", exp.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
	c.Flags().StringVarP(&username, "username", "u", "", "Rezzy username")
	c.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin without prompting")
	return c
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{needStore: true})
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.store.Load(ctx)
			if err != nil && !isNoSession(err) {
				return err
			}
			if err := a.client.Logout(ctx); err != nil {
				return err
			}
			if sess.Username != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "logged out %s\n", sess.Username)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "no stored session")
			}
			return nil
		},
	}
}

func prompt(cmd *cobra.Command, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	return readLine(in)
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
