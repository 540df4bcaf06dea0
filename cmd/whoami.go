package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brimoraa/plpchat/internal/api"
)

var whoamiOffline bool

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
	whoamiCmd.Flags().BoolVar(&whoamiOffline, "offline", false, "print the saved identity without asking the server")
}

func runWhoami(cmd *cobra.Command, args []string) error {
	env, err := setup(false)
	if err != nil {
		return err
	}
	defer env.close()

	if !env.session.Restore() {
		return fmt.Errorf("not logged in")
	}
	user, _ := env.session.User()

	if !whoamiOffline {
		client := api.New(env.cfg.Server.URL, env.cfg.Server.Timeout, env.session)
		me, err := client.GetMe(context.Background())
		switch {
		case errors.Is(err, api.ErrUnauthorized):
			env.session.Logout()
			return fmt.Errorf("saved session has expired, run plpchat login")
		case err != nil:
			return fmt.Errorf("failed to fetch profile: %w", err)
		}
		env.session.UpdateUser(*me)
		user = *me
	}

	fmt.Printf("%s (%s)\n", user.Username, user.ID)
	if user.Email != "" {
		fmt.Println(user.Email)
	}
	if id := env.session.ActiveChatID(); id != "" {
		fmt.Printf("last conversation: %s\n", id)
	}
	return nil
}
