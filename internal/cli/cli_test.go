package cli

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	gameclient "github.com/mcoot/tictactoe-server/internal/client"
	"github.com/mcoot/tictactoe-server/internal/factory"
	"github.com/mcoot/tictactoe-server/internal/protocol"
	"github.com/mcoot/tictactoe-server/internal/testutil"
	"github.com/mcoot/tictactoe-server/internal/transport/tcp"
	"github.com/mcoot/tictactoe-server/internal/transport/ws"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    protocol.Inbound
		wantErr bool
	}{
		{line: "4", want: protocol.Move{CellIndex: 4}},
		{line: "  0  ", want: protocol.Move{CellIndex: 0}},
		{line: "12", want: protocol.Move{CellIndex: 12}},
		{line: "chat good game", want: protocol.ChatRequest{Text: "good game"}},
		{line: "say hi", want: protocol.ChatRequest{Text: "hi"}},
		{line: "leave", want: protocol.LeaveGame{}},
		{line: "", want: nil},
		{line: "chat   ", wantErr: true},
		{line: "4 5", wantErr: true},
		{line: "dance", wantErr: true},
		{line: "help", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseCommand(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseCommand("quit")
	assert.ErrorIs(t, err, errQuit)
}

func TestOutputText(t *testing.T) {
	var out, errOut bytes.Buffer
	o := NewOutput("text", &out, &errOut)

	o.Print(protocol.GameUpdate{
		GameID:   "g1",
		Board:    []string{"X", "", "", "", "O", "", "", "", ""},
		NextTurn: "alice",
		LastMove: protocol.LastMove{CellIndex: 4, Symbol: "O", By: "bob"},
	})
	o.Print(protocol.GameOver{GameID: "g1", Outcome: "forfeit", Reason: protocol.ReasonOpponentLeft})
	o.Print(protocol.Error{Code: "illegal_move", Message: "Illegal move", Reason: "occupied_cell"})

	text := out.String()
	assert.Contains(t, text, "bob played O at 4")
	assert.Contains(t, text, " X | 1 | 2 ")
	assert.Contains(t, text, " 3 | O | 5 ")
	assert.Contains(t, text, "Next turn: alice")
	assert.Contains(t, text, "You won by forfeit. (opponent left)")
	assert.Contains(t, errOut.String(), "occupied_cell")
}

func TestOutputJSONKeepsEnvelope(t *testing.T) {
	var out bytes.Buffer
	o := NewOutput("json", &out, io.Discard)

	o.Print(protocol.Waiting{Position: 1, Message: "Waiting for opponent"})

	assert.JSONEq(t, `{"type":"waiting","data":{"position":1,"message":"Waiting for opponent"}}`, strings.TrimSpace(out.String()))
}

type CommandSuite struct {
	suite.Suite
	app     *factory.TestApp
	tcp     *tcp.Server
	http    *httptest.Server
	ctx     context.Context
	cancel  context.CancelFunc
	baseCmd []string
}

func TestDecodeAPIError(t *testing.T) {
	err := decodeAPIError(503, []byte(`{"error":{"code":"UNAVAILABLE","message":"credential storage unreachable"}}`))
	assert.True(t, IsUnavailable(err))
	assert.EqualError(t, err, "credential storage unreachable (UNAVAILABLE)")

	err = decodeAPIError(404, []byte("404 page not found\n"))
	assert.False(t, IsUnavailable(err))
	assert.EqualError(t, err, "HTTP 404: 404 page not found")
}

func TestCommandSuite(t *testing.T) {
	suite.Run(t, new(CommandSuite))
}

func (s *CommandSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 10*time.Second)
	s.app = factory.NewTestApp()

	tcpCfg := tcp.DefaultConfig()
	tcpCfg.Addr = "127.0.0.1:0"
	s.tcp = s.app.NewTCPServer(tcpCfg)
	s.Require().NoError(s.tcp.Listen())
	go func() { _ = s.tcp.Start(s.ctx) }()

	s.http = httptest.NewServer(s.app.NewRouter(s.ctx, ws.DefaultConfig()))
	s.baseCmd = []string{"--server", s.tcp.Addr(), "--http", s.http.URL}
}

func (s *CommandSuite) TearDownTest() {
	s.http.Close()
	_ = s.tcp.Close()
	s.app.Sessions.Shutdown()
	_ = s.tcp.Shutdown(s.ctx)
	s.cancel()
}

func (s *CommandSuite) run(stdin io.Reader, args ...string) (string, error) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(append(append([]string{}, s.baseCmd...), args...))
	err := cmd.ExecuteContext(s.ctx)
	return out.String(), err
}

func (s *CommandSuite) TestHealth() {
	out, err := s.run(nil, "health")
	s.Require().NoError(err)
	s.Contains(out, "Status: ok")
}

func (s *CommandSuite) TestRegister() {
	out, err := s.run(nil, "register", "alice", "--secret", "pw")
	s.Require().NoError(err)
	s.Contains(out, "Registered alice")

	_, err = s.run(nil, "register", "alice", "--secret", "pw")
	s.Error(err)
}

func (s *CommandSuite) TestRegisterViaAPIAndStats() {
	_, err := s.run(nil, "register", "bob", "--secret", "pw", "--api")
	s.Require().NoError(err)

	out, err := s.run(nil, "--output", "json", "stats")
	s.Require().NoError(err)
	s.Contains(out, `"registered_users":1`)
}

func (s *CommandSuite) TestRegisterViaAPIDuplicate() {
	_, err := s.run(nil, "register", "carol", "--secret", "pw", "--api")
	s.Require().NoError(err)

	_, err = s.run(nil, "register", "carol", "--secret", "pw", "--api")
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(409, apiErr.Status)
	s.Equal("USERNAME_TAKEN", apiErr.Code)
}

func (s *CommandSuite) TestRegisterRequiresSecret() {
	s.T().Setenv("TTT_SECRET", "")
	_, err := s.run(nil, "register", "alice")
	s.Error(err)
}

func (s *CommandSuite) TestPlayUntilOpponentLeaves() {
	_, err := s.run(nil, "register", "alice", "--secret", "pw")
	s.Require().NoError(err)

	bob, err := gameclient.Dial(s.ctx, s.tcp.Addr(), testutil.NopLogger())
	s.Require().NoError(err)
	defer func() { _ = bob.Close() }()
	_, err = bob.Register(s.ctx, "bob", "pw")
	s.Require().NoError(err)
	_, err = bob.Login(s.ctx, "bob", "pw")
	s.Require().NoError(err)

	stdinR, stdinW := io.Pipe()
	defer func() { _ = stdinW.Close() }()

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := s.run(stdinR, "play", "alice", "--secret", "pw")
		done <- result{out, err}
	}()

	// alice queues first and so plays X
	s.Eventually(func() bool { return s.app.Queue.Len() == 1 }, 5*time.Second, 10*time.Millisecond)
	s.Require().NoError(bob.CreateGame())
	start := s.nextOf(bob).(protocol.GameStart)
	s.Equal("O", start.YourSymbol)

	_, err = io.WriteString(stdinW, "4\n")
	s.Require().NoError(err)
	update := s.nextOf(bob).(protocol.GameUpdate)
	s.Equal("alice", update.LastMove.By)
	s.Equal(4, update.LastMove.CellIndex)

	s.Require().NoError(bob.LeaveGame())

	select {
	case r := <-done:
		s.Require().NoError(r.err)
		s.Contains(r.out, "Logged in as alice")
		s.Contains(r.out, "started against bob")
		s.Contains(r.out, "You won by forfeit.")
	case <-s.ctx.Done():
		s.FailNow("play did not finish")
	}
}

func (s *CommandSuite) nextOf(c *gameclient.Client) protocol.Outbound {
	msg, err := c.Next(s.ctx)
	s.Require().NoError(err)
	return msg
}
