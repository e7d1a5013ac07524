package session

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type ForgotPasswordMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email address."`
	OnResponse func(resp *ForgotPasswordResponse)
}

func (p ForgotPasswordMessage) Type() string { return "session.password_forgot" }

// ForgotPasswordResponse reports the flow outcome. Accepted is true whenever
// the backend answered, whether or not the address exists; the backend keeps
// that indistinguishable on purpose.
type ForgotPasswordResponse struct {
	Email    string
	Accepted bool
}

type ForgotPasswordHandler struct {
	api    API
	logger Logger
}

func NewForgotPasswordHandler(api API) *ForgotPasswordHandler {
	return &ForgotPasswordHandler{api: api, logger: defLogger{}}
}

func (h *ForgotPasswordHandler) WithLogger(logger Logger) *ForgotPasswordHandler {
	h.logger = logger
	return h
}

func (h *ForgotPasswordHandler) Execute(ctx context.Context, event ForgotPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during forgot-password request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ForgotPasswordHandler) execute(ctx context.Context, event ForgotPasswordMessage) error {
	form := ForgotPasswordForm{Email: event.Email}
	if err := form.Validate(); err != nil {
		return validationErr(err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.api.ForgotPassword(ctx, event.Email); err != nil {
		h.logger.Error("forgot-password request failed", "error", err)
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&ForgotPasswordResponse{Email: event.Email, Accepted: true})
	}
	return nil
}
