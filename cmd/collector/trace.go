package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"gocloud.dev/gcerrors"

	"github.com/getsentry/calltracer/internal/export"
	"github.com/getsentry/calltracer/internal/registry"
	"github.com/getsentry/calltracer/internal/render"
	"github.com/getsentry/calltracer/internal/speedscope"
	"github.com/getsentry/calltracer/internal/stats"
	"github.com/getsentry/calltracer/internal/storageutil"
)

type (
	PostTraceResponse struct {
		TraceID string `json:"trace_id"`
		Calls   int    `json:"calls"`
	}

	TraceKafkaMessage struct {
		TraceID  string  `json:"trace_id"`
		Calls    int     `json:"calls"`
		Raised   int     `json:"raised"`
		Received float64 `json:"received"`
	}
)

func (e *environment) postTrace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	s := sentry.StartSpan(ctx, "processing")
	s.Description = "Read HTTP body"
	body, err := io.ReadAll(r.Body)
	s.Finish()
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s = sentry.StartSpan(ctx, "json.unmarshal")
	s.Description = "Unmarshal trace"
	doc, err := export.Decode(bytes.NewReader(body))
	s.Finish()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := uuid.Parse(doc.SessionID); err != nil {
		http.Error(w, "session_id must be a UUID", http.StatusBadRequest)
		return
	}
	snapshot, err := doc.Snapshot()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hub.Scope().SetContext("Trace metadata", map[string]interface{}{
		"trace_id": doc.SessionID,
		"calls":    snapshot.Len(),
		"size":     len(body),
	})

	s = sentry.StartSpan(ctx, "blob.write")
	s.Description = "Write trace to the bucket"
	err = export.BlobSink{Bucket: e.storage, Prefix: e.config.TracesPrefix}.Write(ctx, doc)
	s.Finish()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// This is a transient error, we'll retry
			w.WriteHeader(http.StatusTooManyRequests)
		} else {
			// These errors won't be retried
			hub.CaptureException(err)
			if code := gcerrors.Code(err); code == gcerrors.FailedPrecondition {
				w.WriteHeader(http.StatusPreconditionFailed)
			} else {
				w.WriteHeader(http.StatusInternalServerError)
			}
		}
		return
	}

	if e.tracesWriter != nil {
		s = sentry.StartSpan(ctx, "processing")
		s.Description = "Send trace to Kafka"
		err = e.announceTrace(ctx, doc.SessionID, snapshot)
		s.Finish()
		if err != nil {
			hub.CaptureException(err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}

	log.Debug().Str("trace_id", doc.SessionID).Int("calls", snapshot.Len()).Msg("trace stored")

	writeJSON(w, r, http.StatusCreated, PostTraceResponse{TraceID: doc.SessionID, Calls: snapshot.Len()})
}

func (e *environment) announceTrace(ctx context.Context, traceID string, snapshot *registry.Snapshot) error {
	summary := stats.Compute(snapshot, stats.WithSlowestCount(0))
	b, err := json.Marshal(TraceKafkaMessage{
		TraceID:  traceID,
		Calls:    summary.TotalCalls,
		Raised:   summary.Raised,
		Received: float64(time.Now().UnixNano()) / 1e9,
	})
	if err != nil {
		return err
	}
	return e.tracesWriter.WriteMessages(ctx, kafka.Message{
		Topic: e.config.TracesKafkaTopic,
		Key:   []byte(traceID),
		Value: b,
	})
}

// readTrace loads the trace named in the route and writes the error
// response itself when it can't.
func (e *environment) readTrace(w http.ResponseWriter, r *http.Request) (export.Document, *registry.Snapshot, bool) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)
	ps := httprouter.ParamsFromContext(ctx)
	traceID := ps.ByName("trace_id")
	if _, err := uuid.Parse(traceID); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return export.Document{}, nil, false
	}

	hub.Scope().SetTag("trace_id", traceID)

	s := sentry.StartSpan(ctx, "blob.read")
	s.Description = "Read trace from the bucket"
	doc, err := export.ReadBlob(ctx, e.storage, e.config.TracesPrefix, traceID)
	s.Finish()
	if err != nil {
		if errors.Is(err, storageutil.ErrObjectNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return export.Document{}, nil, false
		}
		if errors.Is(err, context.DeadlineExceeded) {
			w.WriteHeader(http.StatusTooManyRequests)
			return export.Document{}, nil, false
		}
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return export.Document{}, nil, false
	}
	snapshot, err := doc.Snapshot()
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return export.Document{}, nil, false
	}
	return doc, snapshot, true
}

func (e *environment) getTrace(w http.ResponseWriter, r *http.Request) {
	doc, _, ok := e.readTrace(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, doc)
}

func (e *environment) getTraceTree(w http.ResponseWriter, r *http.Request) {
	_, snapshot, ok := e.readTrace(w, r)
	if !ok {
		return
	}
	var b bytes.Buffer
	query := r.URL.Query()
	opts := []render.Option{
		render.WithTiming(query.Get("timing") == "true"),
		render.WithLocation(query.Get("location") == "true"),
	}
	if err := render.Tree(&b, snapshot, opts...); err != nil {
		sentry.GetHubFromContext(r.Context()).CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(b.Bytes())
}

func (e *environment) getTraceStats(w http.ResponseWriter, r *http.Request) {
	_, snapshot, ok := e.readTrace(w, r)
	if !ok {
		return
	}
	s := sentry.StartSpan(r.Context(), "processing")
	s.Description = "Compute trace statistics"
	summary := stats.Compute(snapshot)
	s.Finish()
	writeJSON(w, r, http.StatusOK, summary)
}

func (e *environment) getTraceSpeedscope(w http.ResponseWriter, r *http.Request) {
	doc, snapshot, ok := e.readTrace(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, speedscope.FromTree(doc.SessionID, snapshot))
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	s := sentry.StartSpan(r.Context(), "json.marshal")
	defer s.Finish()

	b, err := json.Marshal(v)
	if err != nil {
		sentry.GetHubFromContext(r.Context()).CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
