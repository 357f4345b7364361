package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-ledger/pkg/logger"
	"github.com/JoeShih716/go-ledger/pkg/mysql"
)

const (
	DriverMemory = "memory"
	DriverMySQL  = "mysql"
)

// EnvPath 指定設定檔路徑的環境變數
const EnvPath = "LEDGER_CONFIG"

// DefaultPath 預設設定檔路徑
const DefaultPath = "config/config.yaml"

// Config 對應 config.yaml
type Config struct {
	Server ServerConfig  `yaml:"server"`
	Store  StoreConfig   `yaml:"store"`
	MySQL  mysql.Config  `yaml:"mysql"`
	Log    logger.Config `yaml:"log"`
}

type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"` // 空字串代表不啟動 HTTP
}

type StoreConfig struct {
	Driver  string `yaml:"driver"`   // memory / mysql
	WALPath string `yaml:"wal_path"` // memory 專用，空字串代表不持久化
}

// Default 預設配置
func Default() *Config {
	cfg := base()
	cfg.applyDefaults()
	return cfg
}

// base 可以被 yaml 明確清空的預設值
func base() *Config {
	return &Config{
		Server: ServerConfig{HTTPAddr: ":8080"},
		Store:  StoreConfig{WALPath: "wal.log"},
	}
}

// Load 讀取設定檔；檔案不存在時回傳預設值
// LOG_LEVEL 環境變數會覆蓋 log.level
func Load(path string) (*Config, error) {
	cfg := base()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if level, ok := os.LookupEnv("LOG_LEVEL"); ok && level != "" {
		cfg.Log.Level = level
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path 依環境變數決定設定檔路徑
func Path() string {
	if p, ok := os.LookupEnv(EnvPath); ok && p != "" {
		return p
	}
	return DefaultPath
}

// Validate 檢查設定
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverMySQL:
		if c.MySQL.Host == "" || c.MySQL.DBName == "" {
			return fmt.Errorf("mysql store requires mysql.host and mysql.db_name")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Server.GRPCAddr == "" {
		return fmt.Errorf("server.grpc_addr is required")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":50051"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	// 補全 MySQL 預設配置 (如果 yaml 沒寫)
	c.MySQL.ApplyDefaults()
}
