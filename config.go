package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit          string            `yaml:"git_commit" envconfig:"B3D_GIT_COMMIT"`
	GitTag             string            `yaml:"git_tag" envconfig:"B3D_GIT_TAG"`
	BuildTime          string            `yaml:"build_time" envconfig:"B3D_BUILD_TIME"`
	IsProduction       bool              `yaml:"is_production" envconfig:"B3D_IS_PRODUCTION"`
	LogLevel           zapcore.Level     `yaml:"log_level" envconfig:"B3D_LOG_LEVEL"`
	LogFile            string            `yaml:"log_file" envconfig:"B3D_LOG_FILE"`
	ProfilerEnable     bool              `yaml:"profiler_enable" envconfig:"B3D_PROFILER_ENABLE"`
	OpsEndpointsEnable bool              `yaml:"ops_endpoints_enable" envconfig:"B3D_OPS_ENDPOINTS_ENABLE"`
	Server             ServerConfig      `yaml:"server"`
	Redis              RedisConfig       `yaml:"redis"`
	BoltDB             BoltDBConfig      `yaml:"boltdb"`
	Storage            StorageConfig     `yaml:"storage"`
	Circulation        CirculationConfig `yaml:"circulation"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"B3D_SERVER_HOST"`
	Port            string        `yaml:"port" envconfig:"B3D_SERVER_PORT"`
	CertsFile       string        `yaml:"certs_file" envconfig:"B3D_SERVER_CERTS_FILE"`
	KeyFile         string        `yaml:"key_file" envconfig:"B3D_SERVER_KEY_FILE"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"B3D_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"B3D_SERVER_WRITE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"B3D_SERVER_REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"B3D_SERVER_SHUTDOWN_TIMEOUT"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"B3D_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"B3D_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"B3D_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"B3D_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"B3D_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"B3D_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"B3D_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"B3D_REDIS_USERNAME"`
	Password      string        `yaml:"password" envconfig:"B3D_REDIS_PASSWORD"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"B3D_REDIS_DATABASE_INDEX"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"B3D_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"B3D_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" envconfig:"B3D_BOLTDB_BUCKET_NAME"`
}

// StorageConfig selects and configures the assets object store.
// Backend is either "s3" or "local".
type StorageConfig struct {
	Backend string             `yaml:"backend" envconfig:"B3D_STORAGE_BACKEND"`
	S3      S3StorageConfig    `yaml:"s3"`
	Local   LocalStorageConfig `yaml:"local"`
}

type S3StorageConfig struct {
	Endpoint      string `yaml:"endpoint" envconfig:"B3D_STORAGE_S3_ENDPOINT"`
	Region        string `yaml:"region" envconfig:"B3D_STORAGE_S3_REGION"`
	Bucket        string `yaml:"bucket" envconfig:"B3D_STORAGE_S3_BUCKET"`
	AccessKey     string `yaml:"access_key" envconfig:"B3D_STORAGE_S3_ACCESS_KEY"`
	SecretKey     string `yaml:"secret_key" envconfig:"B3D_STORAGE_S3_SECRET_KEY"`
	UsePathStyle  bool   `yaml:"use_path_style" envconfig:"B3D_STORAGE_S3_USE_PATH_STYLE"`
	PublicBaseURL string `yaml:"public_base_url" envconfig:"B3D_STORAGE_S3_PUBLIC_BASE_URL"`
}

type LocalStorageConfig struct {
	MediaRoot string `yaml:"media_root" envconfig:"B3D_STORAGE_LOCAL_MEDIA_ROOT"`
	BaseURL   string `yaml:"base_url" envconfig:"B3D_STORAGE_LOCAL_BASE_URL"`
	UploadURL string `yaml:"upload_url" envconfig:"B3D_STORAGE_LOCAL_UPLOAD_URL"`
}

type CirculationConfig struct {
	DefaultLoanDays int `yaml:"default_loan_days" envconfig:"B3D_CIRCULATION_DEFAULT_LOAN_DAYS"`
	MaxLoanDays     int `yaml:"max_loan_days" envconfig:"B3D_CIRCULATION_MAX_LOAN_DAYS"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
		return errors.New("make sure to set valid redis address and port in configuration file")
	}

	switch config.Storage.Backend {
	case "s3":
		if len(config.Storage.S3.Bucket) == 0 || len(config.Storage.S3.Region) == 0 {
			return errors.New("make sure to set valid s3 bucket and region in configuration file")
		}
	case "local":
		if len(config.Storage.Local.MediaRoot) == 0 {
			return errors.New("make sure to set valid local storage media root in configuration file")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q. valid values are s3 and local", config.Storage.Backend)
	}

	if config.Circulation.DefaultLoanDays <= 0 {
		config.Circulation.DefaultLoanDays = 14
	}

	if config.Circulation.MaxLoanDays <= 0 {
		config.Circulation.MaxLoanDays = 90
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile("./config.yml")
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration when present.
	if err = godotenv.Load("./config.env"); err != nil && !os.IsNotExist(err) {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	// Use environment variables with prefix `B3D`.
	err = LoadConfigEnvs("B3D", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
