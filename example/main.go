// A minimal bot: logs in, joins a room, and echoes back any chat
// line that starts with "!echo ".
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/tokmz/showdown"
)

type echo struct {
	showdown.BasePlugin
}

func (echo) Match(_ context.Context, m *showdown.Message) (bool, error) {
	return m.Kind == showdown.KindChat && strings.HasPrefix(m.Text, "!echo "), nil
}

func (echo) Response(_ context.Context, m *showdown.Message) (string, error) {
	return strings.TrimPrefix(m.Text, "!echo "), nil
}

func main() {
	showdown.RegisterPlugin("echo", func(c *showdown.Client) []showdown.Plugin {
		return []showdown.Plugin{echo{}}
	})

	client, err := showdown.New(
		showdown.WithCredentials(os.Getenv("SHOWDOWN_USER"), os.Getenv("SHOWDOWN_PASS")),
		showdown.WithRooms("lobby"),
		showdown.WithPlugins("echo"),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := client.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
