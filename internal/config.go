package internal

import "time"

type Config struct {
	AppID              string        `env:"APP_ID,required=true"`
	BadgerFilepath     string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel           string        `env:"LOG_LEVEL,required=true"`
	TokenSecret        string        `env:"TOKEN_SECRET,required=true"`
	AuthTokenDuration  time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	NotificationBuffer int           `env:"NOTIFICATION_BUFFER,required=true"`
	BootstrapToken     string        `env:"BOOTSTRAP_TOKEN"`
}
