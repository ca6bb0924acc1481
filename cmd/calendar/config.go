package main

import (
	"fmt"
	"strings"

	"github.com/lomoval/sharedcal/internal/app"
	"github.com/lomoval/sharedcal/internal/feedbuilder"
	"github.com/lomoval/sharedcal/internal/logger"
	internalgrpc "github.com/lomoval/sharedcal/internal/server/grpc"
	internalhttp "github.com/lomoval/sharedcal/internal/server/http"
	"github.com/lomoval/sharedcal/internal/storagebuilder"
	"github.com/spf13/viper"
)

const envConfigPrefix = "$env:"

type Config struct {
	HTTPServer internalhttp.Config
	GrpcServer internalgrpc.Config
	Logger     logger.Config
	Storage    storagebuilder.Config
	Feed       feedbuilder.Config
	Calendar   app.Config
}

func NewConfig(configFile string) (Config, error) {
	config := Config{}
	viper.SetConfigFile(configFile)

	viper.SetDefault("httpServer.host", "127.0.0.1")
	viper.SetDefault("httpServer.port", "8005")
	viper.SetDefault("grpcServer.host", "127.0.0.1")
	viper.SetDefault("grpcServer.port", "8006")
	viper.SetDefault("logger.level", "WARN")
	viper.SetDefault("logger.format", "text")
	viper.SetDefault("storage.storageType", "memory")
	viper.SetDefault("storage.ensureSchema", true)
	viper.SetDefault("feed.feedType", "memory")
	viper.SetDefault("feed.rabbit.host", "127.0.0.1")
	viper.SetDefault("feed.rabbit.port", "5672")
	viper.SetDefault("feed.rabbit.exchange", "sharedcal.events")
	viper.SetDefault("feed.redis.addr", "127.0.0.1:6379")
	viper.SetDefault("feed.redis.prefix", "sharedcal:")
	viper.SetDefault("feed.kafka.brokers", []string{"127.0.0.1:9092"})
	viper.SetDefault("feed.kafka.topic", "sharedcal.events")
	viper.SetDefault("calendar.weekStart", "sunday")
	viper.SetDefault("calendar.visibleEvents", 2)
	viper.SetDefault("calendar.holidays", true)

	err := viper.ReadInConfig()
	if err != nil {
		return config, fmt.Errorf("failed to read config %q: %w", configFile, err)
	}
	keys := viper.AllKeys()
	for _, key := range keys {
		env := viper.GetString(key)
		if strings.HasPrefix(env, envConfigPrefix) {
			err := viper.BindEnv(key, env[len(envConfigPrefix):])
			if err != nil {
				return Config{}, fmt.Errorf("failed to prepare config: %w", err)
			}
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return config, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	return config, nil
}
