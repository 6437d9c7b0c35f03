// Package showdown implements a client for the Pokémon Showdown chat
// protocol: a line-oriented, pipe-delimited real-time protocol delivered
// over a persistent WebSocket connection.
//
// # Features
//
//   - Total, panic-free parsing of every protocol line into a typed Message
//   - Room/user state tracking across unordered message arrival
//   - Reconnect loop with capped exponential backoff
//   - Challenge-response login with cookie reuse and bounded retries
//   - Pluggable message handlers with per-plugin error isolation
//   - Outbound throttling so bursts of replies stay under the server rate limit
//
// # Basic Usage
//
// Create a client and keep it connected:
//
//	client, err := showdown.New(
//	    showdown.WithCredentials("mybot", "hunter2"),
//	    showdown.WithRooms("lobby", "techcode"),
//	    showdown.WithPlugins("chatlog"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//	if err := client.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Plugins
//
// A plugin decides whether it handles a message and produces an optional
// reply. Register a factory under a name, then list that name in the client
// configuration:
//
//	type echo struct {
//	    showdown.BasePlugin
//	}
//
//	func (echo) Match(_ context.Context, m *showdown.Message) (bool, error) {
//	    return m.Kind == showdown.KindChat && strings.HasPrefix(m.Text, "!echo "), nil
//	}
//
//	func (echo) Response(_ context.Context, m *showdown.Message) (string, error) {
//	    return strings.TrimPrefix(m.Text, "!echo "), nil
//	}
//
//	showdown.RegisterPlugin("echo", func(c *showdown.Client) []showdown.Plugin {
//	    return []showdown.Plugin{echo{}}
//	})
//
// Replies to private messages are routed back to the sender; everything else
// is sent to the room the message arrived in. A plugin failure is logged and
// never aborts dispatch to the remaining plugins.
//
// # Dispatch ordering
//
// Messages are dispatched synchronously in arrival order, so ordering within
// a room is preserved. Plugins must mutate room state only through the
// client's room table (UpdateRoom), never through copies held across calls.
package showdown
