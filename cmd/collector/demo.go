package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/getsentry/calltracer/internal/demo"
	"github.com/getsentry/calltracer/internal/export"
	"github.com/getsentry/calltracer/internal/tracer"
)

type (
	Demo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Usage       string `json:"usage"`
	}

	DemoResponse struct {
		Result string          `json:"result,omitempty"`
		Error  string          `json:"error,omitempty"`
		Trace  export.Document `json:"trace"`
	}
)

func (e *environment) getDemos(w http.ResponseWriter, r *http.Request) {
	all := demo.All()
	response := make([]Demo, 0, len(all))
	for _, d := range all {
		response = append(response, Demo{Name: d.Name, Description: d.Description, Usage: d.Usage})
	}
	writeJSON(w, r, http.StatusOK, response)
}

// getDemo runs a demo in a fresh session and returns its trace. Arguments
// are passed as repeated arg query parameters.
func (e *environment) getDemo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)
	ps := httprouter.ParamsFromContext(ctx)

	d, err := demo.Lookup(ps.ByName("demo"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	hub.Scope().SetTag("demo", d.Name)

	session := tracer.NewSession(
		tracer.WithMaxDepth(e.config.DemoMaxDepth),
		tracer.WithMaxCalls(e.config.DemoMaxCalls),
		tracer.WithLogger(log.Logger),
	)

	s := sentry.StartSpan(ctx, "processing")
	s.Description = "Run demo"
	result, err := demo.Execute(d, session, r.URL.Query()["arg"])
	s.Finish()
	if errors.Is(err, demo.ErrInvalidArgument) && session.Snapshot().Len() == 0 {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if errors.Is(err, tracer.ErrCallLimitExceeded) {
		hub.Scope().SetTag("demo_calls", fmt.Sprint(e.config.DemoMaxCalls))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := DemoResponse{
		Trace: export.Build(session.ID(), session.StartedAt(), session.Snapshot()),
	}
	if err != nil {
		response.Error = err.Error()
	} else {
		response.Result = fmt.Sprint(result)
	}
	writeJSON(w, r, http.StatusOK, response)
}
