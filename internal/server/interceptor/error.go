package interceptor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	goi18n "github.com/nicksnyder/go-i18n/i18n"
	"github.com/webitel/bot-report-exporter/internal/errors"
	outerror "github.com/webitel/webitel-go-kit/pkg/errors"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
)

// HandlerFunc is an HTTP handler that reports failures instead of writing them.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// ErrorResponder turns handler errors into ApplicationError responses.
type ErrorResponder struct {
	translate goi18n.TranslateFunc
	log       *slog.Logger
}

func NewErrorResponder(T goi18n.TranslateFunc, log *slog.Logger) *ErrorResponder {
	if log == nil {
		log = slog.Default()
	}
	return &ErrorResponder{translate: T, log: log}
}

// Wrap adapts h to http.Handler, answering its error if it returns one.
func (e *ErrorResponder) Wrap(h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			e.Respond(w, r, err)
		}
	})
}

// Respond logs err, records it on the active span and writes its response.
// Expected conditions with a notice are answered with the translated message.
func (e *ErrorResponder) Respond(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx) // OpenTelemetry tracing
	span.RecordError(err)

	if n, ok := errors.NoticeFrom(err, e.translate); ok {
		e.log.InfoContext(ctx, fmt.Sprintf("%s %s, notice: %s", r.Method, r.URL.Path, n.GetId()))
		writeError(w, &outerror.ApplicationError{
			Id:            n.GetId(),
			DetailedError: n.GetDetailedError(),
			StatusCode:    n.GetStatusCode(),
			Status:        http.StatusText(n.GetStatusCode()),
		})
		return
	}

	e.log.WarnContext(ctx, fmt.Sprintf("%s %s, error: %v", r.Method, r.URL.Path, err.Error()))
	e.log.ErrorContext(ctx, errors.Details(err))

	httpCode, id := statusOf(errors.Code(err))
	writeError(w, &outerror.ApplicationError{
		Id:            id,
		DetailedError: err.Error(),
		StatusCode:    httpCode,
		Status:        http.StatusText(httpCode),
	})
}

// Recover answers a panicking handler with an internal error.
func (e *ErrorResponder) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if panicErr := recover(); panicErr != nil {
				e.log.ErrorContext(r.Context(), "[PANIC RECOVER]", slog.Any("err", panicErr), slog.String("stack", string(debug.Stack())))
				e.Respond(w, r, errors.Internal(fmt.Sprint(panicErr), errors.WithID("api.process.panic")))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, appErr *outerror.ApplicationError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(appErr)
}

// statusOf maps an error code to its HTTP status and response id.
func statusOf(c codes.Code) (int, string) {
	switch c {
	case codes.Unauthenticated:
		return http.StatusUnauthorized, "api.process.unauthenticated"
	case codes.PermissionDenied:
		return http.StatusForbidden, "api.process.unauthorized"
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest, "api.process.bad_args"
	case codes.NotFound:
		return http.StatusNotFound, "api.process.not_found"
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict, "api.process.conflict"
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests, "api.process.exhausted"
	case codes.Unimplemented:
		return http.StatusNotImplemented, "api.process.unimplemented"
	case codes.Unavailable:
		return http.StatusServiceUnavailable, "api.process.unavailable"
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout, "api.process.timeout"
	default:
		return http.StatusInternalServerError, "api.process.internal"
	}
}
