package response

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindServer     Kind = "server"

	KindRateLimited Kind = "rate_limited"
)

// ErrorBody is the one shape every error response has.
type ErrorBody struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`
	// ErrorId is what the error was logged under
	ErrorId string `json:"errorId"`
}

type Responder struct {
	// DebugMode exposes server error details to clients
	DebugMode bool
}

// RespondAndLogError will respond with generic error code (500) and log with slog.LevelError level
func (rr *Responder) RespondAndLogError(w http.ResponseWriter, ctx context.Context, err error) {
	errId := uuid.NewString()
	log(ctx, slog.LevelError, err.Error(), slog.String("err_id", errId))

	body := ErrorBody{
		Kind:    KindServer,
		Message: "Unknown error occurred while processing your request. Error ID: " + errId,
		ErrorId: errId,
	}
	if rr.DebugMode {
		body.Detail = capitalize(err.Error())
	}

	rr.renderError(w, ctx, http.StatusInternalServerError, &body)
}

// RespondAndLogCustom answers with the given status and kind. Message and
// detail go to the client as is, err only to the log.
func (rr *Responder) RespondAndLogCustom(w http.ResponseWriter, ctx context.Context, err error,
	lvl slog.Level, status int, kind Kind, message string, detail any) {

	errId := uuid.NewString()
	log(ctx, lvl, err.Error(), slog.String("err_id", errId), slog.String("kind", string(kind)))

	body := ErrorBody{Kind: kind, Message: message, Detail: detail, ErrorId: errId}
	rr.renderError(w, ctx, status, &body)
}

func (rr *Responder) SendJson(w http.ResponseWriter, ctx context.Context, status int, data any) {
	bs, err := json.Marshal(data)
	if err != nil {
		rr.RespondAndLogError(w, ctx, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.Copy(w, bytes.NewReader(bs))
}

func (rr *Responder) renderError(w http.ResponseWriter, ctx context.Context, status int, body *ErrorBody) {
	bs, err := json.Marshal(body)
	if err == nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	} else {
		log(ctx, slog.LevelError, "cannot marshall error response body: "+err.Error())
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		bs = []byte("unknown error")
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.Copy(w, bytes.NewReader(bs))
}

func capitalize(message string) string {
	r, s := utf8.DecodeRuneInString(message)
	if r == utf8.RuneError {
		return message
	}
	return string(unicode.ToUpper(r)) + message[s:]
}

// Needed because it skips one more frame item than the slog.Log
func log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	l := slog.Default()

	if !l.Enabled(ctx, level) {
		return
	}

	var pc uintptr
	var pcs [1]uintptr
	// skip [runtime.Callers, this function, this function's caller]
	runtime.Callers(3, pcs[:])
	pc = pcs[0]

	r := slog.NewRecord(time.Now(), level, msg, pc)
	r.AddAttrs(attrs...)
	_ = l.Handler().Handle(ctx, r)
}
