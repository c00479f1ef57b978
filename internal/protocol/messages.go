package protocol

import "time"

// Inbound message types
const (
	TypeRegister   = "register"
	TypeLogin      = "login"
	TypeCreateGame = "create_game"
	TypeMove       = "move"
	TypeChat       = "chat"
	TypeLeaveGame  = "leave_game"
)

// Outbound message types
const (
	TypeRegisterResponse = "register_response"
	TypeLoginResponse    = "login_response"
	TypeWaiting          = "waiting"
	TypeGameStart        = "game_start"
	TypeGameUpdate       = "game_update"
	TypeGameOver         = "game_over"
	TypeError            = "error"
	// TypeChat is used in both directions
)

// MaxChatLength is the longest chat text accepted, in characters
const MaxChatLength = 500

// Inbound is a decoded client message
type Inbound interface {
	Type() string
	inbound()
}

// Outbound is a server message
type Outbound interface {
	Type() string
	outbound()
}

// Client messages

type Register struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

type Login struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

type CreateGame struct{}

type Move struct {
	CellIndex int `json:"cellIndex"`
}

type ChatRequest struct {
	Text string `json:"text"`
}

type LeaveGame struct{}

func (Register) Type() string    { return TypeRegister }
func (Login) Type() string       { return TypeLogin }
func (CreateGame) Type() string  { return TypeCreateGame }
func (Move) Type() string        { return TypeMove }
func (ChatRequest) Type() string { return TypeChat }
func (LeaveGame) Type() string   { return TypeLeaveGame }

func (Register) inbound()    {}
func (Login) inbound()       {}
func (CreateGame) inbound()  {}
func (Move) inbound()        {}
func (ChatRequest) inbound() {}
func (LeaveGame) inbound()   {}

// Server messages

type RegisterResponse struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type LoginResponse struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type Waiting struct {
	Position int    `json:"position"`
	Message  string `json:"message"`
}

type GameStart struct {
	GameID       string   `json:"gameId"`
	YourSymbol   string   `json:"yourSymbol"`
	OpponentName string   `json:"opponentName"`
	Board        []string `json:"board"`
	NextTurn     string   `json:"nextTurn"`
}

type LastMove struct {
	CellIndex int    `json:"cellIndex"`
	Symbol    string `json:"symbol"`
	By        string `json:"by"`
}

type GameUpdate struct {
	GameID   string   `json:"gameId"`
	Board    []string `json:"board"`
	NextTurn string   `json:"nextTurn"` // empty once the game is over
	LastMove LastMove `json:"lastMove"`
}

// Game over reasons
const (
	ReasonOpponentLeft         = "opponent_left"
	ReasonLeftGame             = "left_game"
	ReasonOpponentDisconnected = "opponent_disconnected"
)

type GameOver struct {
	GameID      string `json:"gameId"`
	Outcome     string `json:"outcome"`
	WinningLine []int  `json:"winningLine,omitempty"`
	Winner      string `json:"winner,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type Chat struct {
	FromUsername string    `json:"fromUsername"`
	Text         string    `json:"text"`
	Timestamp    time.Time `json:"timestamp"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func (RegisterResponse) Type() string { return TypeRegisterResponse }
func (LoginResponse) Type() string    { return TypeLoginResponse }
func (Waiting) Type() string          { return TypeWaiting }
func (GameStart) Type() string        { return TypeGameStart }
func (GameUpdate) Type() string       { return TypeGameUpdate }
func (GameOver) Type() string         { return TypeGameOver }
func (Chat) Type() string             { return TypeChat }
func (Error) Type() string            { return TypeError }

func (RegisterResponse) outbound() {}
func (LoginResponse) outbound()    {}
func (Waiting) outbound()          {}
func (GameStart) outbound()        {}
func (GameUpdate) outbound()       {}
func (GameOver) outbound()         {}
func (Chat) outbound()             {}
func (Error) outbound()            {}
