package main

import (
	"context"
	"errors"
	"time"

	"github.com/kkyr/fig"
	"github.com/spf13/pflag"

	"github.com/omnirec/omnirec/pkg/api"
	"github.com/omnirec/omnirec/pkg/capture"
	"github.com/omnirec/omnirec/pkg/config"
	"github.com/omnirec/omnirec/pkg/logger"
	"github.com/omnirec/omnirec/pkg/monitoring"
	"github.com/omnirec/omnirec/pkg/os"
	"github.com/omnirec/omnirec/pkg/overlay"
	"github.com/omnirec/omnirec/pkg/session"
)

var Version = "dev"

func main() {
	confPath := pflag.StringP("conf", "c", "", "config file path")
	noColor := pflag.Bool("no-color", false, "disable color output")
	pflag.Parse()

	var conf config.Config
	if err := config.LoadConfig(&conf, *confPath); err != nil {
		if !errors.Is(err, fig.ErrFileNotFound) {
			logger.Default().Fatal().Err(err).Msg("config load failed")
		}
		if err := config.LoadConfigEnv(&conf); err != nil {
			logger.Default().Fatal().Err(err).Msg("config load failed")
		}
	}

	log := logger.NewConsole(conf.Debug, "rec", *noColor)
	log.Info().Msgf("omnirec %v", Version)

	if err := os.CheckCreateDir(conf.Recorder.Dir); err != nil {
		log.Fatal().Err(err).Msgf("can't create dir %v", conf.Recorder.Dir)
	}
	lock, err := os.NewFileLock(conf.Recorder.Dir + "/omnirec.lock")
	if err != nil {
		log.Fatal().Err(err).Msg("can't create the instance lock")
	}
	if err := lock.Lock(); err != nil {
		log.Fatal().Err(err).Msg("another instance is already running")
	}
	defer func() { _ = lock.Unlock() }()

	store := overlay.NewStore(overlayDefaults(conf.Overlay))
	controller := overlay.NewController(store, log)

	metrics := monitoring.NewMetrics()
	mon := monitoring.New(conf.Monitoring, metrics, log.Extend(log.With().Str("m", "mon")))
	mon.Run()

	sess := session.New(conf.Recorder, capture.NewSynthetic(), store, metrics, log)
	defer sess.Close()

	control := api.NewControl(conf.Control, sess, store, controller, log.Extend(log.With().Str("m", "api")))
	control.Run()

	<-os.ExpectTermination()
	log.Info().Msg("shutting down")

	sess.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := control.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("control shutdown failed")
	}
	if err := mon.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("monitoring shutdown failed")
	}
}

func overlayDefaults(o config.Overlay) overlay.Config {
	c := overlay.DefaultConfig()
	c.Shape = overlay.ParseShape(o.Shape)
	c.Position = overlay.Position{X: o.X, Y: o.Y}
	c.Size = overlay.Size{W: o.W, H: o.H}
	c.BorderColor = o.BorderColor
	c.BorderWidth = o.BorderWidth
	c.Zoom = o.Zoom
	return c
}
