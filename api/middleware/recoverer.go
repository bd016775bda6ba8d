package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/angelmondragon/taskrent-backend/api/responses"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
)

// Recoverer turns a handler panic into an INTERNAL envelope. The panic
// value and route are logged through the error writer, never returned.
// http.ErrAbortHandler is re-raised so the server drops the connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				err, ok := rec.(error)
				if ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				typed := pkgerrors.Wrap(pkgerrors.CodeInternal, err, "handler panicked").
					WithDetails(map[string]any{"step": r.Method + " " + r.URL.Path})
				responses.WriteError(r.Context(), logg, w, typed)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
