package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/brimoraa/plpchat/internal/models"
)

type bootstrapMsg struct {
	user  *models.User
	chats []models.Chat
	err   error
}

// bootstrapCmd fetches the profile and the conversation list concurrently.
func bootstrapCmd(d *Deps) tea.Cmd {
	client := d.API
	return func() tea.Msg {
		g, ctx := errgroup.WithContext(context.Background())

		var user *models.User
		var chats []models.Chat
		g.Go(func() error {
			u, err := client.GetMe(ctx)
			user = u
			return err
		})
		g.Go(func() error {
			c, err := client.GetChats(ctx)
			chats = c
			return err
		})

		err := g.Wait()
		return check(err, bootstrapMsg{user: user, chats: chats, err: err})
	}
}

// applyBootstrap installs the bootstrap result. A failure leaves the list
// empty; the user can refresh later.
func (d *Deps) applyBootstrap(msg bootstrapMsg) {
	if msg.err != nil {
		d.log.Warn().Err(msg.err).Msg("bootstrap failed")
		return
	}
	if msg.user != nil {
		d.Session.UpdateUser(*msg.user)
	}
	if dropped := d.List.Set(msg.chats); dropped > 0 {
		d.log.Warn().Int("dropped", dropped).Msg("server sent invalid conversations")
	}
}
