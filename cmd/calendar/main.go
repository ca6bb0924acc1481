package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lomoval/sharedcal/internal/app"
	"github.com/lomoval/sharedcal/internal/feedbuilder"
	"github.com/lomoval/sharedcal/internal/logger"
	"github.com/lomoval/sharedcal/internal/metrics"
	internalgrpc "github.com/lomoval/sharedcal/internal/server/grpc"
	internalhttp "github.com/lomoval/sharedcal/internal/server/http"
	"github.com/lomoval/sharedcal/internal/storage/notifying"
	"github.com/lomoval/sharedcal/internal/storagebuilder"
	log "github.com/sirupsen/logrus"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "./configs/config.yaml", "Path to configuration file")
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.WarnLevel)
}

func main() {
	flag.Parse()

	if flag.Arg(0) == "version" {
		printVersion()
		return
	}

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
	defer closeStorage(stor.Close)

	broker, err := feedbuilder.New(config.Feed)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}
	defer func() {
		if err := broker.Close(); err != nil {
			log.Errorf("failed to close feed: %v", err)
		}
	}()

	m := metrics.New()
	calendar, err := app.New(notifying.New(stor, broker, m), broker, config.Calendar, app.WithMetrics(m))
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}
	defer calendar.Close()

	httpServer := internalhttp.NewServer(config.HTTPServer, calendar, m)
	grpcServer := internalgrpc.NewServer(config.GrpcServer, calendar, m)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	go func() {
		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
		defer cancel()

		if err := httpServer.Stop(ctx); err != nil {
			log.Error("failed to stop http server: " + err.Error())
		}
		if err := grpcServer.Stop(ctx); err != nil {
			log.Error("failed to stop grpc server: " + err.Error())
		}
	}()

	go func() {
		if err := grpcServer.Start(ctx); err != nil {
			log.Error("failed to start grpc server: " + err.Error())
			cancel()
		}
	}()

	log.Info("calendar is running...")

	if err := httpServer.Start(ctx); err != nil {
		log.Error("failed to start http server: " + err.Error())
		cancel()
	}
	<-ctx.Done()
}

func closeStorage(closeFn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()
	if err := closeFn(ctx); err != nil {
		log.Errorf("failed to close storage: %v", err)
	}
}
