package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/dunkelstern/obs-touchosc/internal/bridge"
	"github.com/dunkelstern/obs-touchosc/internal/switcher"
	pkgconfig "github.com/dunkelstern/obs-touchosc/pkg/config"
	"github.com/dunkelstern/obs-touchosc/pkg/pubsub"
)

type Config struct {
	OBS      switcher.Config `mapstructure:"obs"`
	TouchOSC TouchOSCConfig  `mapstructure:"touchosc"`
	OSC      OSCConfig       `mapstructure:"osc"`
	Admin    AdminConfig     `mapstructure:"admin"`
	Bridge   bridge.Config   `mapstructure:"bridge"`
	PubSub   pubsub.Config   `mapstructure:"pubsub"`
	Zeroconf ZeroconfConfig  `mapstructure:"zeroconf"`
	Log      LogConfig       `mapstructure:"log"`
}

// TouchOSCConfig is the panel endpoint that receives status messages.
type TouchOSCConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	SendBuffer int    `mapstructure:"send_buffer"`
}

// OSCConfig is the local listener for panel input.
type OSCConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type AdminConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

type ZeroconfConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Instance string `mapstructure:"instance"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads ./config/config.yaml (optional) and the environment.
func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// LoadFile reads an explicit config file and the environment.
func LoadFile(path string) (*Config, error) {
	v, err := pkgconfig.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper applies defaults and env bindings to v and decodes it.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.OBS.RequestTimeout = parseDuration(v, "obs.request_timeout", 5*time.Second)
	cfg.OBS.PingInterval = parseDuration(v, "obs.ping_interval", 30*time.Second)
	cfg.OBS.PongWait = parseDuration(v, "obs.pong_wait", 60*time.Second)
	cfg.OBS.WriteWait = parseDuration(v, "obs.write_wait", 10*time.Second)
	cfg.Bridge.FlushInterval = parseDuration(v, "bridge.flush_interval", 200*time.Millisecond)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("obs.host", "127.0.0.1")
	v.SetDefault("obs.port", 4444)
	v.SetDefault("obs.password", "")
	v.SetDefault("obs.request_timeout", "5s")
	v.SetDefault("obs.ping_interval", "30s")
	v.SetDefault("obs.pong_wait", "60s")
	v.SetDefault("obs.write_wait", "10s")
	v.SetDefault("touchosc.host", "127.0.0.1")
	v.SetDefault("touchosc.port", 9000)
	v.SetDefault("touchosc.send_buffer", 256)
	v.SetDefault("osc.host", "0.0.0.0")
	v.SetDefault("osc.port", 8000)
	v.SetDefault("admin.enabled", true)
	v.SetDefault("admin.host", "127.0.0.1")
	v.SetDefault("admin.port", 8090)
	v.SetDefault("bridge.name", "default")
	v.SetDefault("bridge.flush_interval", "200ms")
	v.SetDefault("bridge.require_audio_sources", false)
	v.SetDefault("bridge.event_buffer", 256)
	v.SetDefault("pubsub.driver", pubsub.DriverNone)
	v.SetDefault("pubsub.redis.address", "localhost:6379")
	v.SetDefault("pubsub.redis.password", "")
	v.SetDefault("pubsub.redis.db", 0)
	v.SetDefault("pubsub.redis.pool_size", 4)
	v.SetDefault("pubsub.redis.read_timeout", "3s")
	v.SetDefault("pubsub.redis.write_timeout", "3s")
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.group_id", "obs-touchosc")
	v.SetDefault("pubsub.kafka.partitions", 1)
	v.SetDefault("zeroconf.enabled", false)
	v.SetDefault("zeroconf.instance", "OBS Bridge")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Override from environment
func bindEnv(v *viper.Viper) {
	v.BindEnv("obs.host", "OBS_HOST")
	v.BindEnv("obs.port", "OBS_PORT")
	v.BindEnv("obs.password", "OBS_PASSWORD")
	v.BindEnv("touchosc.host", "TOUCHOSC_HOST")
	v.BindEnv("touchosc.port", "TOUCHOSC_PORT")
	v.BindEnv("osc.port", "OSC_PORT")
	v.BindEnv("admin.port", "ADMIN_PORT")
	v.BindEnv("bridge.name", "BRIDGE_NAME")
	v.BindEnv("pubsub.driver", "PUBSUB_DRIVER")
	v.BindEnv("pubsub.redis.address", "REDIS_ADDRESS")
	v.BindEnv("pubsub.redis.password", "REDIS_PASSWORD")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("log.level", "LOG_LEVEL")
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
