package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	ShareBox ShareBoxConfig `yaml:"sharebox"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ConnString returns the pgx connection URL. ssl_mode defaults to disable.
func (d DatabaseConfig) ConnString() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, sslMode)
}

type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	CommodityStatusTopicName string `yaml:"commodity_status_topic_name"`
}

// Brokers is empty when kafka is not configured.
func (k KafkaConfig) Brokers() []string {
	if k.Host == "" {
		return nil
	}
	return []string{fmt.Sprintf("%s:%d", k.Host, k.Port)}
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr is empty when redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type ShareBoxConfig struct {
	HTTPAddr                 string `yaml:"http_addr"`
	WorkerHTTPAddr           string `yaml:"worker_http_addr"`
	KafkaConsumerGroup       string `yaml:"kafka_consumer_group"`
	CommodityCacheTTLSeconds int    `yaml:"commodity_cache_ttl_seconds"`

	SweepIntervalMs   int `yaml:"sweep_interval_ms"`
	SweepBatchSize    int `yaml:"sweep_batch_size"`
	SweepLeaseSeconds int `yaml:"sweep_lease_seconds"`

	// Lifecycle windows (optional). Defaults: 7 days / 3 hours / 3 hours.
	CommodityLifetimeHours int `yaml:"commodity_lifetime_hours"`
	GiveWindowMinutes      int `yaml:"give_window_minutes"`
	ReceiveWindowMinutes   int `yaml:"receive_window_minutes"`

	SearchDictionaryPath string `yaml:"search_dictionary_path"` // empty: embedded gse dictionary
}

func (s ShareBoxConfig) CommodityCacheTTL() time.Duration {
	return time.Duration(s.CommodityCacheTTLSeconds) * time.Second
}

func (s ShareBoxConfig) SweepInterval() time.Duration {
	return time.Duration(s.SweepIntervalMs) * time.Millisecond
}

func (s ShareBoxConfig) SweepLease() time.Duration {
	return time.Duration(s.SweepLeaseSeconds) * time.Second
}

func (s ShareBoxConfig) CommodityLifetime() time.Duration {
	return time.Duration(s.CommodityLifetimeHours) * time.Hour
}

func (s ShareBoxConfig) GiveWindow() time.Duration {
	return time.Duration(s.GiveWindowMinutes) * time.Minute
}

func (s ShareBoxConfig) ReceiveWindow() time.Duration {
	return time.Duration(s.ReceiveWindowMinutes) * time.Minute
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
