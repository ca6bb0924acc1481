package main

import (
	"fmt"
	"strings"

	"github.com/lomoval/sharedcal/internal/feedbuilder"
	"github.com/lomoval/sharedcal/internal/logger"
	"github.com/lomoval/sharedcal/internal/retention"
	"github.com/lomoval/sharedcal/internal/storagebuilder"
	"github.com/spf13/viper"
)

const envConfigPrefix = "$env:"

type Config struct {
	Logger    logger.Config
	Storage   storagebuilder.Config
	Feed      feedbuilder.Config
	Retention retention.Config
	Metrics   struct {
		Addr string
	}
}

func NewConfig(configFile string) (Config, error) {
	config := Config{}
	viper.SetConfigFile(configFile)

	viper.SetDefault("logger.level", "WARN")
	viper.SetDefault("logger.format", "text")
	viper.SetDefault("storage.storageType", "memory")
	viper.SetDefault("feed.feedType", "memory")
	viper.SetDefault("feed.rabbit.host", "127.0.0.1")
	viper.SetDefault("feed.rabbit.port", "5672")
	viper.SetDefault("feed.rabbit.exchange", "sharedcal.events")
	viper.SetDefault("feed.redis.addr", "127.0.0.1:6379")
	viper.SetDefault("feed.redis.prefix", "sharedcal:")
	viper.SetDefault("feed.kafka.brokers", []string{"127.0.0.1:9092"})
	viper.SetDefault("feed.kafka.topic", "sharedcal.events")
	viper.SetDefault("retention.schedule", "0 3 * * *")
	viper.SetDefault("retention.days", 365)
	viper.SetDefault("metrics.addr", "")

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
				return config, fmt.Errorf("failed to prepare config: %w", err)
			}
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return config, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	return config, nil
}
