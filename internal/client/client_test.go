package client_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/tictactoe-server/internal/client"
	"github.com/mcoot/tictactoe-server/internal/factory"
	"github.com/mcoot/tictactoe-server/internal/model"
	"github.com/mcoot/tictactoe-server/internal/protocol"
	"github.com/mcoot/tictactoe-server/internal/testutil"
	"github.com/mcoot/tictactoe-server/internal/transport/tcp"
)

type ClientSuite struct {
	suite.Suite
	app    *factory.TestApp
	server *tcp.Server
	ctx    context.Context
	cancel context.CancelFunc
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 10*time.Second)
	s.app = factory.NewTestApp()

	cfg := tcp.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	s.server = s.app.NewTCPServer(cfg)
	s.Require().NoError(s.server.Listen())
	go func() { _ = s.server.Start(s.ctx) }()
}

func (s *ClientSuite) TearDownTest() {
	_ = s.server.Close()
	s.app.Sessions.Shutdown()
	_ = s.server.Shutdown(s.ctx)
	s.cancel()
}

func (s *ClientSuite) dial() *client.Client {
	c, err := client.Dial(s.ctx, s.server.Addr(), testutil.NopLogger())
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = c.Close() })
	return c
}

func (s *ClientSuite) TestRegisterAndLogin() {
	c := s.dial()

	reg, err := c.Register(s.ctx, "alice", "pw")
	s.Require().NoError(err)
	s.Equal("alice", reg.Username)

	login, err := c.Login(s.ctx, "alice", "pw")
	s.Require().NoError(err)
	s.Equal("alice", login.Username)
}

func (s *ClientSuite) TestServerErrorIsTyped() {
	c := s.dial()

	_, err := c.Login(s.ctx, "nobody", "pw")
	s.Require().Error(err)

	var serverErr *client.ServerError
	s.Require().ErrorAs(err, &serverErr)
	s.Equal(protocol.CodeInvalidCredentials, serverErr.Code)
}

func (s *ClientSuite) TestEventsClosedWhenServerGoesAway() {
	c := s.dial()
	_, err := c.Register(s.ctx, "alice", "pw")
	s.Require().NoError(err)

	s.app.Sessions.Shutdown()

	_, err = c.Next(s.ctx)
	s.ErrorIs(err, client.ErrClosed)
}

func (s *ClientSuite) TestMatchAndPlay() {
	x := s.dial()
	o := s.dial()
	for name, c := range map[string]*client.Client{"xavier": x, "olga": o} {
		_, err := c.Register(s.ctx, name, "pw")
		s.Require().NoError(err)
		_, err = c.Login(s.ctx, name, "pw")
		s.Require().NoError(err)
	}

	s.Require().NoError(x.CreateGame())
	s.IsType(protocol.Waiting{}, s.next(x))
	s.Require().NoError(o.CreateGame())

	startX := s.next(x).(protocol.GameStart)
	startO := s.next(o).(protocol.GameStart)
	s.Equal("X", startX.YourSymbol)
	s.Equal("O", startO.YourSymbol)
	s.Equal("xavier", startX.NextTurn)

	s.Require().NoError(x.Move(4))
	s.IsType(protocol.GameUpdate{}, s.next(x))
	update := s.next(o).(protocol.GameUpdate)
	s.Equal(4, update.LastMove.CellIndex)
	s.Equal("olga", update.NextTurn)

	s.Require().NoError(o.Chat("nice move"))
	chat := s.next(x).(protocol.Chat)
	s.Equal("olga", chat.FromUsername)
	s.Equal("nice move", chat.Text)

	s.Require().NoError(o.LeaveGame())
	overO := s.next(o).(protocol.GameOver)
	overX := s.next(x).(protocol.GameOver)
	s.Equal(string(model.OutcomeLoss), overO.Outcome)
	s.Equal(string(model.OutcomeForfeit), overX.Outcome)
}

func (s *ClientSuite) next(c *client.Client) protocol.Outbound {
	msg, err := c.Next(s.ctx)
	s.Require().NoError(err)
	return msg
}
