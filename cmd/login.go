package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/brimoraa/plpchat/internal/api"
)

var loginUsername string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the session on this machine",
	RunE:  runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "username (prompted if empty)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	env, err := setup(false)
	if err != nil {
		return err
	}
	defer env.close()

	reader := bufio.NewReader(os.Stdin)
	username := strings.TrimSpace(loginUsername)
	if username == "" {
		fmt.Print("Username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
		username = strings.TrimSpace(line)
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	password, err := readPassword(reader)
	if err != nil {
		return err
	}

	client := api.New(env.cfg.Server.URL, env.cfg.Server.Timeout, env.session)
	resp, err := client.Login(context.Background(), username, password)
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}

	env.session.Login(resp.Token, *resp.User)
	fmt.Printf("Logged in as %s\n", resp.User.Username)
	return nil
}

func readPassword(reader *bufio.Reader) (string, error) {
	fmt.Print("Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		// Not a terminal; read the line as is.
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fmt.Println()
	return string(pw), nil
}
