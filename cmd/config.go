package main

import "time"

type Config struct {
	// Empty JoinURL hosts a new session; set it to join one instead.
	JoinURL     string `env:"JOIN_URL"`
	SessionCode string `env:"SESSION_CODE"`
	PeerName    string `env:"PEER_NAME,default=host"`

	ListenAddr        string        `env:"LISTEN_ADDR,default=:8080"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,default=info"`
	LimitChats        *int          `env:"LIMIT_CHATS"`
	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,default=30s"`
	SnapshotInterval  time.Duration `env:"SNAPSHOT_INTERVAL,default=15s"`
}
