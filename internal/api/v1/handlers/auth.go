package handlers

import (
	"advanced-todo/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type credentialsRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=255"`
}

type sessionResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token,omitempty"`
}

func (h *Handler) SignUp(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := h.bind(c, &req, "sign up"); err != nil {
		return badRequest(c, err)
	}

	user, err := h.deps.Auth.SignUp(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return storeError(c, err)
	}
	return h.issueSession(c, 201, "User registered successfully", user)
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := h.bind(c, &req, "login"); err != nil {
		return badRequest(c, err)
	}

	user, err := h.deps.Auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return storeError(c, err)
	}
	return h.issueSession(c, 200, "Login successful", user)
}

func (h *Handler) issueSession(c *fiber.Ctx, status int, message string, user models.User) error {
	token, err := h.deps.Tokens.Issue(user.ID)
	if err != nil {
		h.deps.Log.Error.Error("Error generating token", zap.String("user_id", user.ID.String()), zap.Error(err))
		return fail(c, 500, "Error generating token")
	}
	return success(c, status, message, sessionResponse{User: user, Token: token})
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	h.deps.Auth.Logout()
	return success(c, 200, "Logout successful", nil)
}

// Session reports the current session user, if any.
func (h *Handler) Session(c *fiber.Ctx) error {
	user, found := h.deps.Auth.CurrentUser()
	if !found {
		return fail(c, 401, "No user is logged in")
	}
	return success(c, 200, "Session fetched successfully", sessionResponse{User: user})
}
