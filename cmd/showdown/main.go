// The showdown command runs a chat client against a Pokémon Showdown
// server, loading its settings from a config file and keeping the
// connection alive until interrupted.
package main

import "github.com/tokmz/showdown/cmd/showdown/cmd"

func main() {
	cmd.Execute()
}
