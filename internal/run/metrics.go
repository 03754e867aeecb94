package run

import (
	"errors"
	"fmt"
	"net/http"

	"handword/internal/hook"
	"handword/internal/session"
)

func metricsHandler(ctrl *session.Controller, hooks *hook.Dispatcher) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		m := ctrl.Metrics()
		running := 0
		if m.Running {
			running = 1
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintf(w, "handword_session_running %d\n", running)
		fmt.Fprintf(w, "handword_polls_total %d\n", m.Polls)
		fmt.Fprintf(w, "handword_poll_failures_total %d\n", m.PollFailures)
		fmt.Fprintf(w, "handword_commands_total %d\n", m.Commands)
		fmt.Fprintf(w, "handword_command_failures_total %d\n", m.CommandFailures)
		fmt.Fprintf(w, "handword_hooks_sent_total %d\n", hooks.Sent())
		fmt.Fprintf(w, "handword_hooks_failed_total %d\n", hooks.Failed())
		fmt.Fprintf(w, "handword_hooks_dropped_total %d\n", hooks.Dropped())
	})
	return mux
}

func metricsServe(ctxDone <-chan struct{}, addr string, ctrl *session.Controller, hooks *hook.Dispatcher, logger interface {
	Infof(string, ...any)
	Warnf(string, ...any)
}) {
	server := &http.Server{
		Addr:    addr,
		Handler: metricsHandler(ctrl, hooks),
	}
	go func() {
		<-ctxDone
		_ = server.Close()
	}()
	logger.Infof("metrics listening on http://%s/metrics", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warnf("metrics server: %v", err)
	}
}
