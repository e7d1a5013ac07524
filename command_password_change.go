package session

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type ChangePasswordMessage struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
	OnResponse      func(resp *ChangePasswordResponse)
}

func (p ChangePasswordMessage) Type() string { return "session.password_change" }

type ChangePasswordResponse struct {
	Success bool
}

// ChangePasswordHandler rotates the password of the logged-in user. It holds
// the Manager rather than the bare API so it can refuse to fire without a
// live session.
type ChangePasswordHandler struct {
	api     API
	session *Manager
	logger  Logger
}

func NewChangePasswordHandler(api API, session *Manager) *ChangePasswordHandler {
	return &ChangePasswordHandler{api: api, session: session, logger: defLogger{}}
}

func (h *ChangePasswordHandler) WithLogger(logger Logger) *ChangePasswordHandler {
	h.logger = logger
	return h
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	if !h.session.Current().IsAuthenticated {
		return ErrNotAuthenticated
	}

	form := ChangePasswordForm{
		OldPassword:     event.OldPassword,
		NewPassword:     event.NewPassword,
		ConfirmPassword: event.ConfirmPassword,
	}
	if err := form.Validate(); err != nil {
		return validationErr(err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.api.ChangePassword(ctx, event.OldPassword, event.NewPassword); err != nil {
		h.logger.Error("password change failed", "error", err)
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&ChangePasswordResponse{Success: true})
	}
	return nil
}
