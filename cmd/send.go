package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brimoraa/plpchat/internal/api"
)

var sendFile string

var sendCmd = &cobra.Command{
	Use:   "send <chat-id> [message]",
	Short: "Send a message to a conversation",
	Long: `Send a message to a conversation over the REST API, without opening the
interface. Use --file to attach a file; the message text is then optional.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendFile, "file", "f", "", "file to attach")
}

func runSend(cmd *cobra.Command, args []string) error {
	chatID := args[0]
	text := strings.TrimSpace(strings.Join(args[1:], " "))
	if text == "" && sendFile == "" {
		return fmt.Errorf("nothing to send")
	}

	env, err := setup(false)
	if err != nil {
		return err
	}
	defer env.close()

	if !env.session.Restore() {
		return fmt.Errorf("not logged in")
	}
	client := api.New(env.cfg.Server.URL, env.cfg.Server.Timeout, env.session)

	ctx := context.Background()
	if sendFile != "" {
		_, err = client.SendAttachment(ctx, chatID, text, sendFile)
	} else {
		_, err = client.SendMessage(ctx, chatID, text)
	}
	if errors.Is(err, api.ErrUnauthorized) {
		env.session.Logout()
		return fmt.Errorf("saved session has expired, run plpchat login")
	}
	if err != nil {
		return fmt.Errorf("failed to send: %w", err)
	}
	fmt.Println("Sent")
	return nil
}
