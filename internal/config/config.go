// Package config loads settings from an optional .env file and the
// environment. Every key is prefixed, e.g. CO2_HTTP_PORT.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const Prefix = "CO2"

type HTTPConfig struct {
	Port int
}

type DatabaseConfig struct {
	Path string
}

type ArchiveConfig struct {
	Dir string // empty disables the CSV archive
}

type RetentionConfig struct {
	MaxAge   time.Duration
	Interval time.Duration
}

type RedisConfig struct {
	Addr     string // empty disables the cache
	Password string
	DB       int
	TTL      time.Duration
}

type MQTTConfig struct {
	Broker   string // empty disables ingest
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

type LogConfig struct {
	Level  string
	Format string
}

type ClientConfig struct {
	APIURL string
}

type Config struct {
	Env       string
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Archive   ArchiveConfig
	Retention RetentionConfig
	Redis     RedisConfig
	MQTT      MQTTConfig
	Log       LogConfig
	Client    ClientConfig
}

func Default() Config {
	return Config{
		Env:       "development",
		HTTP:      HTTPConfig{Port: 4001},
		Database:  DatabaseConfig{Path: "co2dash.db"},
		Retention: RetentionConfig{MaxAge: 30 * 24 * time.Hour, Interval: 24 * time.Hour},
		Redis:     RedisConfig{TTL: 5 * time.Minute},
		MQTT:      MQTTConfig{ClientID: "co2dash", Topic: "co2/+/reading", QoS: 1},
		Log:       LogConfig{Level: "info", Format: "json"},
		Client:    ClientConfig{APIURL: "http://localhost:4001"},
	}
}

// Load reads the given .env files (default ".env"; missing files are
// skipped) and then the environment on top of Default(). Variables already
// set in the environment win over .env values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	if err := cfg.LoadFromEnv(Prefix); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) LoadFromEnv(prefix string) error {
	if env := os.Getenv(prefix + "_ENV"); env != "" {
		c.Env = env
	}
	if err := c.HTTP.LoadFromEnv(prefix + "_HTTP"); err != nil {
		return err
	}
	c.Database.LoadFromEnv(prefix + "_DB")
	c.Archive.LoadFromEnv(prefix + "_ARCHIVE")
	if err := c.Retention.LoadFromEnv(prefix + "_RETENTION"); err != nil {
		return err
	}
	if err := c.Redis.LoadFromEnv(prefix + "_REDIS"); err != nil {
		return err
	}
	if err := c.MQTT.LoadFromEnv(prefix + "_MQTT"); err != nil {
		return err
	}
	c.Log.LoadFromEnv(prefix + "_LOG")
	c.Client.LoadFromEnv(prefix + "_API")
	return nil
}

func (c *HTTPConfig) LoadFromEnv(prefix string) error {
	return intEnv(prefix+"_PORT", &c.Port)
}

func (c *DatabaseConfig) LoadFromEnv(prefix string) {
	if path := os.Getenv(prefix + "_PATH"); path != "" {
		c.Path = path
	}
}

func (c *ArchiveConfig) LoadFromEnv(prefix string) {
	if dir := os.Getenv(prefix + "_DIR"); dir != "" {
		c.Dir = dir
	}
}

func (c *RetentionConfig) LoadFromEnv(prefix string) error {
	if err := durationEnv(prefix+"_MAX_AGE", &c.MaxAge); err != nil {
		return err
	}
	return durationEnv(prefix+"_INTERVAL", &c.Interval)
}

func (c *RedisConfig) LoadFromEnv(prefix string) error {
	if addr := os.Getenv(prefix + "_ADDR"); addr != "" {
		c.Addr = addr
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if err := intEnv(prefix+"_DB", &c.DB); err != nil {
		return err
	}
	return durationEnv(prefix+"_TTL", &c.TTL)
}

func (c *MQTTConfig) LoadFromEnv(prefix string) error {
	if broker := os.Getenv(prefix + "_BROKER"); broker != "" {
		c.Broker = broker
	}
	if clientID := os.Getenv(prefix + "_CLIENT_ID"); clientID != "" {
		c.ClientID = clientID
	}
	if username := os.Getenv(prefix + "_USERNAME"); username != "" {
		c.Username = username
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if topic := os.Getenv(prefix + "_TOPIC"); topic != "" {
		c.Topic = topic
	}
	qos := int(c.QoS)
	if err := intEnv(prefix+"_QOS", &qos); err != nil {
		return err
	}
	if qos < 0 || qos > 2 {
		return fmt.Errorf("%s_QOS: must be 0, 1 or 2", prefix)
	}
	c.QoS = byte(qos)
	return nil
}

func (c *LogConfig) LoadFromEnv(prefix string) {
	if level := os.Getenv(prefix + "_LEVEL"); level != "" {
		c.Level = level
	}
	if format := os.Getenv(prefix + "_FORMAT"); format != "" {
		c.Format = format
	}
}

func (c *ClientConfig) LoadFromEnv(prefix string) {
	if url := os.Getenv(prefix + "_URL"); url != "" {
		c.APIURL = url
	}
}

func intEnv(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func durationEnv(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
