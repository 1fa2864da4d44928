package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/tasklane-api/internal/api/shared"
	"github.com/phrazzld/tasklane-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
)

func TestTrace(t *testing.T) {
	var logBuf strings.Builder
	base := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var traceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})

	handler := chimw.RequestID(Trace(base)(next))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/project/task/query", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Len(t, traceID, shared.TraceIDLength)

	logs := logBuf.String()
	assert.Contains(t, logs, "request started")
	assert.Contains(t, logs, "inside handler")
	assert.Contains(t, logs, "request finished")
	assert.Contains(t, logs, "trace_id="+traceID)
	assert.Contains(t, logs, "request_id=")
	assert.Contains(t, logs, "status=418")
}
