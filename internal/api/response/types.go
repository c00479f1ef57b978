package response

import (
	"time"

	"github.com/mcoot/tictactoe-server/internal/model"
	"github.com/mcoot/tictactoe-server/internal/services/session"
)

// User represents a registered user in API responses
type User struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

// Health is the body of the health endpoint
type Health struct {
	Status string `json:"status"`
}

// Stats is the body of the stats endpoint
type Stats struct {
	Connections     int `json:"connections"`
	Authenticated   int `json:"authenticated"`
	Queued          int `json:"queued"`
	LiveGames       int `json:"live_games"`
	RegisteredUsers int `json:"registered_users"`
}

// StatsFromSession converts session stats for the API
func StatsFromSession(s session.Stats) Stats {
	return Stats{
		Connections:     s.Connections,
		Authenticated:   s.Authenticated,
		Queued:          s.Queued,
		LiveGames:       s.LiveGames,
		RegisteredUsers: s.RegisteredUsers,
	}
}
