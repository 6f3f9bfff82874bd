package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"gocloud.dev/blob"

	"github.com/getsentry/calltracer/internal/export"
	"github.com/getsentry/calltracer/internal/httputil"
	"github.com/getsentry/calltracer/internal/logutil"
	"github.com/getsentry/calltracer/internal/storageutil"
)

type environment struct {
	config ServiceConfig

	// tracesWriter announces stored traces, nil when Kafka is not
	// configured.
	tracesWriter export.MessageWriter

	storage *blob.Bucket
}

var release string

func newEnvironment() (*environment, error) {
	var e environment
	var err error
	e.config, err = loadConfig()
	if err != nil {
		return nil, err
	}
	e.storage, err = storageutil.OpenBucket(context.Background(), e.config.TracesBucketURL)
	if err != nil {
		return nil, err
	}
	if len(e.config.TracesKafkaBrokers) > 0 && e.config.TracesKafkaTopic != "" {
		e.tracesWriter = export.NewKafkaWriter(e.config.TracesKafkaBrokers...)
	}
	return &e, nil
}

func (e *environment) shutdown() {
	err := e.storage.Close()
	if err != nil {
		sentry.CaptureException(err)
	}
	if e.tracesWriter != nil {
		err = e.tracesWriter.Close()
		if err != nil {
			sentry.CaptureException(err)
		}
	}
	sentry.Flush(5 * time.Second)
}

func (e *environment) newRouter() (*httprouter.Router, error) {
	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		return nil, err
	}

	routes := []struct {
		method  string
		path    string
		handler http.HandlerFunc
	}{
		{http.MethodGet, "/health", e.getHealth},
		{http.MethodPost, "/traces", e.postTrace},
		{http.MethodGet, "/traces/:trace_id", e.getTrace},
		{http.MethodGet, "/traces/:trace_id/tree", e.getTraceTree},
		{http.MethodGet, "/traces/:trace_id/stats", e.getTraceStats},
		{http.MethodGet, "/traces/:trace_id/speedscope", e.getTraceSpeedscope},
		{http.MethodGet, "/demos", e.getDemos},
		{http.MethodGet, "/demos/:demo", e.getDemo},
	}

	router := httprouter.New()

	for _, route := range routes {
		handlerFunc := httputil.AnonymizeTransactionName(route.path, route.handler)
		handlerFunc = httputil.DecompressPayload(handlerFunc)
		handler := compress(handlerFunc)

		router.Handler(route.method, route.path, handler)
	}

	return router, nil
}

// newHandler wraps the router so every request gets its own sentry hub.
func (e *environment) newHandler() (http.Handler, error) {
	router, err := e.newRouter()
	if err != nil {
		return nil, err
	}
	return sentryhttp.New(sentryhttp.Options{}).Handle(router), nil
}

func main() {
	env, err := newEnvironment()
	if err != nil {
		log.Fatal().Err(err).Msg("error setting up environment")
	}

	if err := logutil.ConfigureLogger(env.config.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("error setting up the logger")
	}

	err = sentry.Init(sentry.ClientOptions{
		Dsn:                   env.config.SentryDSN,
		EnableTracing:         true,
		Environment:           env.config.Environment,
		Release:               release,
		TracesSampleRate:      1.0,
		BeforeSendTransaction: httputil.SetHTTPStatusCodeTag,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("can't initialize sentry")
	}

	handler, err := env.newHandler()
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal().Err(err).Msg("error setting up the router")
	}

	server := http.Server{
		Addr:    ":" + env.config.Port,
		Handler: handler,
	}

	waitForShutdown := make(chan os.Signal)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c

		cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(cctx); err != nil {
			sentry.CaptureException(err)
			log.Err(err).Msg("error shutting down server")
		}

		close(waitForShutdown)
	}()

	log.Info().Str("addr", server.Addr).Str("bucket", env.config.TracesBucketURL).Msg("collector listening")

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		sentry.CaptureException(err)
		log.Err(err).Msg("server failed")
	}

	<-waitForShutdown

	// Shutdown the rest of the environment after the HTTP connections are closed
	env.shutdown()
}

func (e *environment) getHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
