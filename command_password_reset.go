package session

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type ResetPasswordMessage struct {
	Token           string `json:"token" doc:"Reset token from the password-reset email."`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
	OnResponse      func(resp *ResetPasswordResponse)
}

func (p ResetPasswordMessage) Type() string { return "session.password_reset" }

type ResetPasswordResponse struct {
	Success bool
}

type ResetPasswordHandler struct {
	api    API
	logger Logger
}

func NewResetPasswordHandler(api API) *ResetPasswordHandler {
	return &ResetPasswordHandler{api: api, logger: defLogger{}}
}

func (h *ResetPasswordHandler) WithLogger(logger Logger) *ResetPasswordHandler {
	h.logger = logger
	return h
}

func (h *ResetPasswordHandler) Execute(ctx context.Context, event ResetPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResetPasswordHandler) execute(ctx context.Context, event ResetPasswordMessage) error {
	form := ResetPasswordForm{
		Token:           event.Token,
		NewPassword:     event.NewPassword,
		ConfirmPassword: event.ConfirmPassword,
	}
	if err := form.Validate(); err != nil {
		return validationErr(err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.api.ResetPassword(ctx, event.Token, event.NewPassword); err != nil {
		h.logger.Error("password reset failed", "error", err)
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&ResetPasswordResponse{Success: true})
	}
	return nil
}
