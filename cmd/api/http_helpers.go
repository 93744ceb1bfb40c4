package main

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"movieweb/proj/internal/config"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Http writes every API response in the {success, message, data} envelope.
type Http struct {
	log *slog.Logger
	cfg *config.Config
}

type envelop map[string]any

type Response struct {
	Success bool    `json:"success"`
	Message string  `json:"message,omitempty"`
	Data    envelop `json:"data,omitempty"`
}

const serverErrorMsg = "Sorry! Can't process your request. Please try again later."

func (h *Http) reqLogger(r *http.Request) *slog.Logger {
	return h.log.With(
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

func (h *Http) write(w http.ResponseWriter, r *http.Request, status int, msg string, data envelop) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	render.Status(r, status)
	render.JSON(w, r, &Response{
		Success: status >= 200 && status < 400,
		Message: msg,
		Data:    data,
	})
}

// Error answers with a client error. The message is returned to the caller
// as is, so it must not leak internals.
func (h *Http) Error(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.reqLogger(r).Debug("client error", "status", status, "msg", msg)
	h.write(w, r, status, msg, nil)
}

func (h *Http) Ok(w http.ResponseWriter, r *http.Request, data envelop, msg string) {
	h.write(w, r, http.StatusOK, msg, data)
}

func (h *Http) Created(w http.ResponseWriter, r *http.Request, data envelop, msg string) {
	h.write(w, r, http.StatusCreated, msg, data)
}

func (h *Http) BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	h.Error(w, r, http.StatusBadRequest, msg)
}

func (h *Http) Unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	h.Error(w, r, http.StatusUnauthorized, msg)
}

func (h *Http) Forbidden(w http.ResponseWriter, r *http.Request, msg string) {
	h.Error(w, r, http.StatusForbidden, msg)
}

func (h *Http) NotFound(w http.ResponseWriter, r *http.Request, msg string) {
	h.Error(w, r, http.StatusNotFound, msg)
}

func (h *Http) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.Error(w, r, http.StatusMethodNotAllowed, "")
}

func (h *Http) Conflict(w http.ResponseWriter, r *http.Request, msg string) {
	h.Error(w, r, http.StatusConflict, msg)
}

// UnprocessableEntity reports per-field validation problems under data.errors.
func (h *Http) UnprocessableEntity(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	h.reqLogger(r).Debug("validation failed", "errors", errors)
	h.write(w, r, http.StatusUnprocessableEntity, "", envelop{"errors": errors})
}

func (h *Http) TooManyRequests(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusTooManyRequests, "Can't process request see an error below.", envelop{"error": "rate limit exceeded"})
}

func (h *Http) ServiceUnavailable(w http.ResponseWriter, r *http.Request, msg string) {
	h.Error(w, r, http.StatusServiceUnavailable, msg)
}

// BadGateway reports a failed call to an external provider.
func (h *Http) BadGateway(w http.ResponseWriter, r *http.Request, err error, msg string) {
	h.reqLogger(r).Error("upstream failure", "errMsg", err.Error())
	h.write(w, r, http.StatusBadGateway, msg, nil)
}

// ServerError logs err and hides it from the caller unless debug is on, in
// which case the error and the stack are written as plain text.
func (h *Http) ServerError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if err != nil {
		h.reqLogger(r).Error(err.Error())
	}
	if h.cfg.Debug && err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error() + "\n" + string(debug.Stack())))
		return
	}
	if msg == "" {
		msg = serverErrorMsg
	}
	h.write(w, r, http.StatusInternalServerError, msg, nil)
}
