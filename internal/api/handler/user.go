package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/tictactoe-server/internal/api/request"
	"github.com/mcoot/tictactoe-server/internal/api/response"
	"github.com/mcoot/tictactoe-server/internal/services/credentials"
)

// UserHandler handles user registration over HTTP
type UserHandler struct {
	credentials *credentials.Service
}

// NewUserHandler creates a new user handler
func NewUserHandler(credentials *credentials.Service) *UserHandler {
	return &UserHandler{
		credentials: credentials,
	}
}

// Register handles POST /api/v1/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" || req.Secret == "" {
		WriteError(w, NewInvalidRequestError("username and secret are required"))
		return
	}

	user, err := h.credentials.Register(r.Context(), req.Username, req.Secret)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.UserFromModel(user))
}
