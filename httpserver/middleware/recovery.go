package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/pure-golang/mailrelay/logger"
)

// PanicBody is written when a handler panics, so callers still get a JSON error.
const PanicBody = `{"detail":"Internal Server Error"}`

// Recovery recovers panic and logs it on ERROR level. 500 http status is returned
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			var stack []string
			for _, line := range strings.Split(strings.ReplaceAll(string(debug.Stack()), "\t", ""), "\n") {
				if line != "" {
					stack = append(stack, line)
				}
			}

			logger.FromContext(r.Context()).
				With("err", err).
				With("stack", stack).
				Error("Panic recovered from handler")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(PanicBody))
		}()

		next.ServeHTTP(w, r)
	})
}
