package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lomoval/sharedcal/internal/feedbuilder"
	"github.com/lomoval/sharedcal/internal/logger"
	"github.com/lomoval/sharedcal/internal/metrics"
	"github.com/lomoval/sharedcal/internal/retention"
	"github.com/lomoval/sharedcal/internal/storage/notifying"
	"github.com/lomoval/sharedcal/internal/storagebuilder"
	log "github.com/sirupsen/logrus"
)

var (
	configFile string
	runOnce    bool
)

func init() {
	flag.StringVar(&configFile, "config", "./configs/scheduler_config.yaml", "Path to configuration file")
	flag.BoolVar(&runOnce, "once", false, "Remove expired events once and exit")
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.WarnLevel)
}

func main() {
	flag.Parse()

	config, err := NewConfig(configFile)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}
	err = logger.PrepareLogger(config.Logger)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}

	stor, err := storagebuilder.New(config.Storage)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
		defer cancel()
		stor.Close(ctx)
	}()

	broker, err := feedbuilder.New(config.Feed)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}
	defer broker.Close()

	m := metrics.New()
	job, err := retention.New(notifying.New(stor, broker, m), config.Retention, m)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	if runOnce {
		if _, err := job.Run(ctx); err != nil {
			log.Errorf("failed to remove events: %v", err)
		}
		return
	}

	if config.Metrics.Addr != "" {
		srv := &http.Server{Addr: config.Metrics.Addr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("metrics server failed: %v", err)
			}
		}()
		defer srv.Close()
	}

	log.Infof("scheduler is running on %q...", config.Retention.Schedule)
	job.Start(ctx)
}
