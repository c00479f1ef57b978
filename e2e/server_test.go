package e2e_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/tictactoe-server/internal/api"
	"github.com/mcoot/tictactoe-server/internal/client"
	"github.com/mcoot/tictactoe-server/internal/factory"
	"github.com/mcoot/tictactoe-server/internal/protocol"
	sqlitestorage "github.com/mcoot/tictactoe-server/internal/storage/sqlite"
	"github.com/mcoot/tictactoe-server/internal/testutil"
	"github.com/mcoot/tictactoe-server/internal/transport/tcp"
	"github.com/mcoot/tictactoe-server/internal/transport/ws"
)

// testServer runs the full server on loopback ports with real dependencies
type testServer struct {
	app     *factory.App
	tcpAddr string
	httpURL string
	wsURL   string
}

func startTestServer(t *testing.T, cfg factory.Config) *testServer {
	t.Helper()

	app, err := factory.New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	tcpCfg := tcp.DefaultConfig()
	tcpCfg.Addr = "127.0.0.1:0"
	tcpServer := app.NewTCPServer(tcpCfg)
	require.NoError(t, tcpServer.Listen())
	go func() { _ = tcpServer.Start(ctx) }()

	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = "127.0.0.1:0"
	httpServer := api.NewServer(app.NewRouter(ctx, ws.DefaultConfig()), serverCfg, testutil.NopLogger())
	require.NoError(t, httpServer.Listen())
	go func() { _ = httpServer.Start() }()

	t.Cleanup(func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = tcpServer.Close()
		_ = httpServer.Shutdown(shutdownCtx)
		_ = app.Close()
		_ = tcpServer.Shutdown(shutdownCtx)
		cancel()
	})

	ts := &testServer{
		app:     app,
		tcpAddr: tcpServer.Addr(),
		httpURL: "http://" + httpServer.Addr(),
		wsURL:   "ws://" + httpServer.Addr() + "/ws",
	}
	waitForServer(t, ts.httpURL+"/api/v1/health")
	return ts
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	httpClient := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := httpClient.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// wsPlayer speaks the protocol over a WebSocket
type wsPlayer struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialWS(t *testing.T, url string) *wsPlayer {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return &wsPlayer{t: t, conn: conn}
}

func (p *wsPlayer) send(msg protocol.Inbound) {
	p.t.Helper()
	require.NoError(p.t, p.conn.WriteMessage(websocket.TextMessage, protocol.MustEncode(msg)))
}

func (p *wsPlayer) next() protocol.Outbound {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := p.conn.ReadMessage()
	require.NoError(p.t, err)
	msg, err := protocol.DecodeOutbound(data)
	require.NoError(p.t, err)
	return msg
}

func dialTCP(t *testing.T, ctx context.Context, addr string) *client.Client {
	t.Helper()
	c, err := client.Dial(ctx, addr, testutil.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func next(t *testing.T, ctx context.Context, c *client.Client) protocol.Outbound {
	t.Helper()
	msg, err := c.Next(ctx)
	require.NoError(t, err)
	return msg
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestTCPAgainstWebSocketGame(t *testing.T) {
	ts := startTestServer(t, factory.Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// X plays over TCP
	x := dialTCP(t, ctx, ts.tcpAddr)
	_, err := x.Register(ctx, "xena", "secret-x")
	require.NoError(t, err)
	_, err = x.Login(ctx, "xena", "secret-x")
	require.NoError(t, err)
	require.NoError(t, x.CreateGame())
	waiting := next(t, ctx, x).(protocol.Waiting)
	assert.Equal(t, 1, waiting.Position)

	// O plays over WebSocket
	o := dialWS(t, ts.wsURL)
	o.send(protocol.Register{Username: "otto", Secret: "secret-o"})
	assert.IsType(t, protocol.RegisterResponse{}, o.next())
	o.send(protocol.Login{Username: "otto", Secret: "secret-o"})
	assert.IsType(t, protocol.LoginResponse{}, o.next())
	o.send(protocol.CreateGame{})

	startX := next(t, ctx, x).(protocol.GameStart)
	startO := o.next().(protocol.GameStart)
	assert.Equal(t, startX.GameID, startO.GameID)
	assert.Equal(t, "X", startX.YourSymbol)
	assert.Equal(t, "otto", startX.OpponentName)
	assert.Equal(t, "O", startO.YourSymbol)
	assert.Equal(t, "xena", startO.NextTurn)

	var stats struct {
		Connections int `json:"connections"`
		LiveGames   int `json:"live_games"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts.httpURL+"/api/v1/stats", &stats))
	assert.Equal(t, 2, stats.Connections)
	assert.Equal(t, 1, stats.LiveGames)

	// X takes the top row: 0, 1, 2 with O on 3, 4
	moves := []struct {
		byX  bool
		cell int
	}{{true, 0}, {false, 3}, {true, 1}, {false, 4}}
	for _, m := range moves {
		if m.byX {
			require.NoError(t, x.Move(m.cell))
		} else {
			o.send(protocol.Move{CellIndex: m.cell})
		}
		assert.IsType(t, protocol.GameUpdate{}, next(t, ctx, x))
		assert.IsType(t, protocol.GameUpdate{}, o.next())
	}

	// out of turn
	o.send(protocol.Move{CellIndex: 8})
	errMsg := o.next().(protocol.Error)
	assert.Equal(t, protocol.CodeIllegalMove, errMsg.Code)
	assert.Equal(t, "wrong_turn", errMsg.Reason)

	o.send(protocol.ChatRequest{Text: "good luck"})
	chat := next(t, ctx, x).(protocol.Chat)
	assert.Equal(t, "otto", chat.FromUsername)

	require.NoError(t, x.Move(2))
	assert.IsType(t, protocol.GameUpdate{}, next(t, ctx, x))
	assert.IsType(t, protocol.GameUpdate{}, o.next())
	overX := next(t, ctx, x).(protocol.GameOver)
	overO := o.next().(protocol.GameOver)
	assert.Equal(t, "win", overX.Outcome)
	assert.Equal(t, []int{0, 1, 2}, overX.WinningLine)
	assert.Equal(t, "loss", overO.Outcome)
	assert.Equal(t, "xena", overO.Winner)

	require.Equal(t, http.StatusOK, getJSON(t, ts.httpURL+"/api/v1/stats", &stats))
	assert.Equal(t, 0, stats.LiveGames)
}

func TestDisconnectForfeitsToOpponent(t *testing.T) {
	ts := startTestServer(t, factory.Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := dialTCP(t, ctx, ts.tcpAddr)
	b := dialTCP(t, ctx, ts.tcpAddr)
	for name, c := range map[string]*client.Client{"ann": a, "ben": b} {
		_, err := c.Register(ctx, name, "pw")
		require.NoError(t, err)
		_, err = c.Login(ctx, name, "pw")
		require.NoError(t, err)
	}
	require.NoError(t, a.CreateGame())
	next(t, ctx, a)
	require.NoError(t, b.CreateGame())
	next(t, ctx, a)
	next(t, ctx, b)

	require.NoError(t, a.Close())

	over := next(t, ctx, b).(protocol.GameOver)
	assert.Equal(t, "forfeit", over.Outcome)
	assert.Equal(t, protocol.ReasonOpponentDisconnected, over.Reason)

	// ann can log in again once the old session is gone
	again := dialTCP(t, ctx, ts.tcpAddr)
	_, err := again.Login(ctx, "ann", "pw")
	require.NoError(t, err)
}

func TestCredentialsPersistAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	cfg := factory.Config{
		StorageType:  factory.StorageTypeSQLite,
		SQLiteConfig: &sqlitestorage.Config{Path: path},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first := startTestServer(t, cfg)
	resp, err := http.Post(first.httpURL+"/api/v1/users", "application/json",
		strings.NewReader(`{"username":"persisted","secret":"pw"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NoError(t, first.app.Close())

	second := startTestServer(t, cfg)
	c := dialTCP(t, ctx, second.tcpAddr)
	login, err := c.Login(ctx, "persisted", "pw")
	require.NoError(t, err)
	assert.Equal(t, "persisted", login.Username)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := startTestServer(t, factory.Config{})

	resp, err := http.Get(ts.httpURL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "ttt_connections")
}
