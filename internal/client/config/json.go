package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/mindshift/internal/flagx"
	"github.com/dmitrijs2005/mindshift/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations use
// timex.Duration so they can be written as "3s" or as nanoseconds. Absent
// keys keep the current value.
type JsonConfig struct {
	LocalDBPath   *string `json:"local_db_path"`
	RemoteBackend *string `json:"remote_backend"`
	PostgresDSN   *string `json:"postgres_dsn"`
	RedisAddr     *string `json:"redis_addr"`
	RedisPassword *string `json:"redis_password"`
	RedisDB       *int    `json:"redis_db"`

	TokenSecret *string         `json:"token_secret"`
	SessionTTL  *timex.Duration `json:"session_ttl"`

	PushMaxAttempts     *int            `json:"push_max_attempts"`
	PushBackoffBase     *timex.Duration `json:"push_backoff_base"`
	PushBackoffMax      *timex.Duration `json:"push_backoff_max"`
	QueueSize           *int            `json:"queue_size"`
	ResubscribeAttempts *int            `json:"resubscribe_attempts"`

	LogFormat *string `json:"log_format"`
	Debug     *bool   `json:"debug"`
}

// parseJson overlays cfg with the JSON file named by -c/-config or
// $MINDSHIFT_CONFIG. It panics on read or decode errors.
func parseJson(cfg *Config) {
	path := flagx.ConfigPath()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	set(&cfg.LocalDBPath, jc.LocalDBPath)
	set(&cfg.RemoteBackend, jc.RemoteBackend)
	set(&cfg.PostgresDSN, jc.PostgresDSN)
	set(&cfg.RedisAddr, jc.RedisAddr)
	set(&cfg.RedisPassword, jc.RedisPassword)
	set(&cfg.RedisDB, jc.RedisDB)
	set(&cfg.TokenSecret, jc.TokenSecret)
	set(&cfg.PushMaxAttempts, jc.PushMaxAttempts)
	set(&cfg.QueueSize, jc.QueueSize)
	set(&cfg.ResubscribeAttempts, jc.ResubscribeAttempts)
	set(&cfg.LogFormat, jc.LogFormat)
	set(&cfg.Debug, jc.Debug)

	if jc.SessionTTL != nil {
		cfg.SessionTTL = jc.SessionTTL.Duration
	}
	if jc.PushBackoffBase != nil {
		cfg.PushBackoffBase = jc.PushBackoffBase.Duration
	}
	if jc.PushBackoffMax != nil {
		cfg.PushBackoffMax = jc.PushBackoffMax.Duration
	}
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
