package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mcoot/tictactoe-server/internal/protocol"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	out    io.Writer
	errOut io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, out, errOut io.Writer) *Output {
	return &Output{format: format, out: out, errOut: errOut}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(o.errOut, string(data))
	} else {
		fmt.Fprintf(o.errOut, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.out, string(data))
	} else {
		fmt.Fprintln(o.out, msg)
	}
}

// printJSON writes one object per line; protocol messages keep their envelope
func (o *Output) printJSON(data any) {
	if msg, ok := data.(protocol.Message); ok {
		if frame, err := protocol.Encode(msg); err == nil {
			fmt.Fprintln(o.out, string(frame))
			return
		}
	}
	_ = json.NewEncoder(o.out).Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case protocol.RegisterResponse:
		fmt.Fprintf(o.out, "Registered %s: %s\n", v.Username, v.Message)
	case protocol.LoginResponse:
		fmt.Fprintf(o.out, "Logged in as %s: %s\n", v.Username, v.Message)
	case protocol.Waiting:
		fmt.Fprintf(o.out, "%s (position %d)\n", v.Message, v.Position)
	case protocol.GameStart:
		fmt.Fprintf(o.out, "Game %s started against %s. You are %s.\n", v.GameID, v.OpponentName, v.YourSymbol)
		o.printBoard(v.Board)
		fmt.Fprintf(o.out, "Next turn: %s\n", v.NextTurn)
	case protocol.GameUpdate:
		fmt.Fprintf(o.out, "%s played %s at %d\n", v.LastMove.By, v.LastMove.Symbol, v.LastMove.CellIndex)
		o.printBoard(v.Board)
		if v.NextTurn != "" {
			fmt.Fprintf(o.out, "Next turn: %s\n", v.NextTurn)
		}
	case protocol.GameOver:
		o.printGameOver(v)
	case protocol.Chat:
		fmt.Fprintf(o.out, "[%s] %s: %s\n", v.Timestamp.Format("15:04:05"), v.FromUsername, v.Text)
	case protocol.Error:
		if v.Reason != "" {
			fmt.Fprintf(o.errOut, "Error: %s (%s, %s)\n", v.Message, v.Code, v.Reason)
		} else {
			fmt.Fprintf(o.errOut, "Error: %s (%s)\n", v.Message, v.Code)
		}
	case HealthResult:
		fmt.Fprintf(o.out, "Status: %s\n", v.Status)
	case StatsResult:
		fmt.Fprintf(o.out, "Connections: %d\n", v.Connections)
		fmt.Fprintf(o.out, "Authenticated: %d\n", v.Authenticated)
		fmt.Fprintf(o.out, "Queued: %d\n", v.Queued)
		fmt.Fprintf(o.out, "Live games: %d\n", v.LiveGames)
		fmt.Fprintf(o.out, "Registered users: %d\n", v.RegisteredUsers)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printGameOver(g protocol.GameOver) {
	var line string
	switch g.Outcome {
	case "win":
		line = "You won!"
	case "loss":
		line = "You lost."
	case "draw":
		line = "It's a draw."
	case "forfeit":
		line = "You won by forfeit."
	default:
		line = "Game over: " + g.Outcome
	}
	if g.Reason != "" {
		line += " (" + strings.ReplaceAll(g.Reason, "_", " ") + ")"
	}
	fmt.Fprintln(o.out, line)
	if len(g.WinningLine) > 0 {
		fmt.Fprintf(o.out, "Winning line: %v\n", g.WinningLine)
	}
}

// printBoard draws the 3x3 grid; empty cells show their index
func (o *Output) printBoard(cells []string) {
	for row := 0; row < 3; row++ {
		parts := make([]string, 3)
		for col := 0; col < 3; col++ {
			i := row*3 + col
			parts[col] = fmt.Sprintf("%d", i)
			if i < len(cells) && cells[i] != "" {
				parts[col] = cells[i]
			}
		}
		fmt.Fprintf(o.out, " %s \n", strings.Join(parts, " | "))
		if row < 2 {
			fmt.Fprintln(o.out, "---+---+---")
		}
	}
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

// StatsResult response type
type StatsResult struct {
	Connections     int `json:"connections"`
	Authenticated   int `json:"authenticated"`
	Queued          int `json:"queued"`
	LiveGames       int `json:"live_games"`
	RegisteredUsers int `json:"registered_users"`
}
