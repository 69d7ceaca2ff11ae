package middleware

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/mailrelay/logger"
)

const RequestIDHeader = "X-Request-Id"

var (
	meter = otel.GetMeterProvider().Meter("github.com/pure-golang/mailrelay/httpserver/middleware")
	// nolint:errcheck // Sync OpenTelemetry instruments never return errors
	requestsCount, _       = meter.Int64Counter("http.request_count")
	requestTimeHist, _     = meter.Int64Histogram("http.request_time", metric.WithUnit("ms"))
	requestBodyLenHist, _  = meter.Int64Histogram("http.request_body_len", metric.WithUnit("KB"))
	responseBodyLenHist, _ = meter.Int64Histogram("http.response_body_len", metric.WithUnit("KB"))
	tracer                 = otel.Tracer("github.com/pure-golang/mailrelay/httpserver/middleware")
)

// Monitoring traces incoming http requests using open telemetry tracer + attaches logger to request context
func Monitoring(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqTime := time.Now()
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		log := slog.Default().With("method", r.Method, "path", r.URL.Path, "request_id", requestID)
		if sc := span.SpanContext(); sc.HasTraceID() {
			log = log.With("trace_id", sc.TraceID().String())
			w.Header().Set("X-Trace-Id", sc.TraceID().String())
		}
		w.Header().Set(RequestIDHeader, requestID)

		attrs := []attribute.KeyValue{
			attribute.String("http.method", r.Method),
			attribute.String("http.target", r.URL.Path),
			attribute.String("http.request_id", requestID),
			attribute.String("http.user_agent", r.UserAgent()),
			attribute.String("net.peer.addr", r.RemoteAddr),
		}

		reqBody, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("failed to read body", "error", err)
		}
		r.Body = io.NopCloser(bytes.NewReader(reqBody))
		attrs = append(attrs, attribute.String("http.request.body_2048", cut(reqBody)))

		// Reuse the router's context when mounted inside chi, otherwise give
		// chi one to fill so the matched route pattern is visible here.
		rctx := chi.RouteContext(ctx)
		if rctx == nil {
			rctx = chi.NewRouteContext()
			ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
		}

		ctx = logger.NewContext(ctx, log)
		srw := newStatefulRespWriter(w)

		next.ServeHTTP(srw, r.WithContext(ctx))

		route := r.URL.Path
		if rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
			span.SetName(r.Method + " " + route)
		}
		metricLabels := []attribute.KeyValue{
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
		}

		attrs = append(attrs,
			attribute.String("http.route", route),
			attribute.Int("http.response.status", srw.status),
			attribute.String("http.response.body_2048", cut(srw.body.Bytes())),
		)
		span.SetAttributes(attrs...)

		// metrics
		requestsCount.Add(ctx, 1, metric.WithAttributes(append(metricLabels,
			attribute.Int("http.response.code", srw.status))...))
		requestTimeHist.Record(ctx, time.Since(reqTime).Milliseconds(), metric.WithAttributes(metricLabels...))
		requestBodyLenHist.Record(ctx, int64(len(reqBody))/1024, metric.WithAttributes(metricLabels...))
		responseBodyLenHist.Record(ctx, int64(srw.size)/1024, metric.WithAttributes(metricLabels...))

		log.Info("request handled", "status", srw.status, "duration_ms", time.Since(reqTime).Milliseconds())

		if srw.status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(srw.status))
			return
		}

		span.SetStatus(codes.Ok, "")
	})
}

// statefulRespWriter keeps sent status and the head of the body after WriteHeader/Write calls
type statefulRespWriter struct {
	http.ResponseWriter
	status int
	size   int
	body   bytes.Buffer
}

func newStatefulRespWriter(w http.ResponseWriter) *statefulRespWriter {
	return &statefulRespWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *statefulRespWriter) WriteHeader(status int) {
	w.ResponseWriter.WriteHeader(status)
	w.status = status
}

func (w *statefulRespWriter) Write(b []byte) (int, error) {
	if room := BodyMaxLen + 1 - w.body.Len(); room > 0 {
		w.body.Write(b[:min(room, len(b))])
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func (w *statefulRespWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

const BodyMaxLen = 2048

func cut(body []byte) string {
	if length := len(body); length > BodyMaxLen {
		return fmt.Sprintf("%s...(truncated)", string(body[:BodyMaxLen]))
	}
	return string(body)
}
