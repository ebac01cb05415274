package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omnirec/omnirec/pkg/config"
	"github.com/omnirec/omnirec/pkg/logger"
)

// Monitoring serves the metrics endpoint and, when enabled, the pprof
// profiling handlers on a dedicated port.
type Monitoring struct {
	conf    config.Monitoring
	log     *logger.Logger
	metrics *Metrics
	server  *http.Server
}

func New(conf config.Monitoring, m *Metrics, log *logger.Logger) *Monitoring {
	h := http.NewServeMux()

	if conf.ProfilingEnabled {
		prefix := conf.URLPrefix + "/debug/pprof"
		h.HandleFunc(prefix+"/", pprof.Index)
		h.HandleFunc(prefix+"/cmdline", pprof.Cmdline)
		h.HandleFunc(prefix+"/profile", pprof.Profile)
		h.HandleFunc(prefix+"/symbol", pprof.Symbol)
		h.HandleFunc(prefix+"/trace", pprof.Trace)
		h.Handle(prefix+"/allocs", pprof.Handler("allocs"))
		h.Handle(prefix+"/block", pprof.Handler("block"))
		h.Handle(prefix+"/goroutine", pprof.Handler("goroutine"))
		h.Handle(prefix+"/heap", pprof.Handler("heap"))
		h.Handle(prefix+"/mutex", pprof.Handler("mutex"))
		h.Handle(prefix+"/threadcreate", pprof.Handler("threadcreate"))
		log.Info().Msgf("profiling enabled at %v", prefix)
	}

	if conf.MetricEnabled && m != nil {
		path := conf.URLPrefix + "/metrics"
		h.Handle(path, promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
		log.Info().Msgf("prometheus metrics enabled at %v", path)
	}

	return &Monitoring{
		conf:    conf,
		log:     log,
		metrics: m,
		server: &http.Server{
			Addr:           fmt.Sprintf(":%d", conf.Port),
			Handler:        h,
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
	}
}

func (m *Monitoring) Enabled() bool {
	return m.conf.MetricEnabled || m.conf.ProfilingEnabled
}

func (m *Monitoring) Run() {
	if !m.Enabled() {
		return
	}
	m.log.Info().Msgf("monitoring server on %v", m.server.Addr)
	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error().Err(err).Msg("monitoring server failed")
		}
	}()
}

func (m *Monitoring) Shutdown(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}
	return m.server.Shutdown(ctx)
}
