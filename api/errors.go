package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	errorskg "github.com/sweetpotato0/enrichrag/errors"
)

// Error is the JSON body of every failed request.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e Error) Error() string {
	return e.Message
}

func NewError(code int, msg string) Error {
	return Error{Code: code, Message: msg}
}

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(fields map[string]string) ValidationError {
	return ValidationError{Status: fiber.StatusUnprocessableEntity, Errors: fields}
}

func ErrBadRequest() Error {
	return NewError(fiber.StatusBadRequest, "invalid JSON request")
}

func ErrNotFound(resource, id string) Error {
	return NewError(fiber.StatusNotFound, fmt.Sprintf("%s %s not found", resource, id))
}

// errorHandler renders errors returned by handlers; domain sentinels map to
// HTTP status codes and never leak wrapped provider messages on 5xx.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var (
			apiErr Error
			valErr ValidationError
			fbErr  *fiber.Error
		)
		switch {
		case errors.As(err, &valErr):
			return c.Status(valErr.Status).JSON(valErr)
		case errors.As(err, &apiErr):
			return c.Status(apiErr.Code).JSON(apiErr)
		case errors.As(err, &fbErr):
			return c.Status(fbErr.Code).JSON(NewError(fbErr.Code, fbErr.Message))
		}

		code, msg := statusOf(err)
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "status", code, "error", err)
		}
		return c.Status(code).JSON(NewError(code, msg))
	}
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, errorskg.ErrInvalidInput):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, errorskg.ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, errorskg.ErrNoDocuments):
		return fiber.StatusNotFound, errorskg.ErrNoDocuments.Error()
	case errors.Is(err, errorskg.ErrPipelineTimeout), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, errorskg.ErrPipelineTimeout.Error()
	case errors.Is(err, errorskg.ErrIndexUnavailable):
		return fiber.StatusServiceUnavailable, errorskg.ErrIndexUnavailable.Error()
	case errors.Is(err, errorskg.ErrEmbedding):
		return fiber.StatusBadGateway, errorskg.ErrEmbedding.Error()
	case errors.Is(err, errorskg.ErrGeneration):
		return fiber.StatusBadGateway, errorskg.ErrGeneration.Error()
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}
