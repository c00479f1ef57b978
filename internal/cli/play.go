package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/tictactoe-server/internal/protocol"
)

// errQuit ends an interactive session at the user's request
var errQuit = errors.New("quit")

const playHelp = `Commands:
  0-8          place your symbol on a cell
  chat <text>  message your opponent
  leave        forfeit the game (or stop waiting for one)
  quit         disconnect`

func newPlayCmd() *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "play <username>",
		Short: "Log in, find an opponent and play one game",
		Long: `Log in, join matchmaking and play one game interactively.

Moves and chat are read from stdin, one command per line.

` + playHelp,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			secret = secretFrom(secret)
			if secret == "" {
				return fmt.Errorf("--secret or TTT_SECRET is required")
			}
			return play(cmd, username, secret)
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "Account secret (env: TTT_SECRET)")

	return cmd
}

func play(cmd *cobra.Command, username, secret string) error {
	ctx := cmd.Context()
	out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())

	c, err := dial(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	login, err := c.Login(ctx, username, secret)
	if err != nil {
		return err
	}
	out.Print(login)

	if err := c.CreateGame(); err != nil {
		return err
	}

	lines := readLines(cmd.InOrStdin())
	for {
		select {
		case msg, ok := <-c.Events():
			if !ok {
				if err := c.Err(); err != nil {
					return err
				}
				return errors.New("server closed the connection")
			}
			out.Print(msg)
			if _, over := msg.(protocol.GameOver); over {
				return nil
			}

		case line, ok := <-lines:
			if !ok {
				// stdin exhausted; keep following the game
				lines = nil
				continue
			}
			msg, err := parseCommand(line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				out.PrintError(err)
				continue
			}
			if msg == nil {
				continue
			}
			if err := c.Send(msg); err != nil {
				return err
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// parseCommand turns one line of user input into a protocol message.
// Blank lines yield nil.
func parseCommand(line string) (protocol.Inbound, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}

	word, rest, _ := strings.Cut(line, " ")
	switch strings.ToLower(word) {
	case "chat", "say":
		text := strings.TrimSpace(rest)
		if text == "" {
			return nil, errors.New("chat needs some text")
		}
		return protocol.ChatRequest{Text: text}, nil
	case "leave":
		return protocol.LeaveGame{}, nil
	case "quit", "exit":
		return nil, errQuit
	case "help", "?":
		return nil, errors.New(playHelp)
	}

	cell, err := strconv.Atoi(word)
	if err != nil || rest != "" {
		return nil, fmt.Errorf("unknown command %q, type help for commands", line)
	}
	return protocol.Move{CellIndex: cell}, nil
}

func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
