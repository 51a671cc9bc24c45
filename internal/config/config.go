package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config 配置文件结构体
type Config struct {
	Version string `yaml:"version"`

	Sqlite struct {
		Dsn    string `yaml:"dsn"`
		Prefix string `yaml:"prefix"`
	} `yaml:"sqlite"`

	Log struct {
		Level  string   `yaml:"level"`
		Writer []string `yaml:"writer"`
		File   string   `yaml:"file"`
	} `yaml:"log"`

	Dispatch struct {
		DelayMS    int    `yaml:"delayMS"`
		TunnelBase string `yaml:"tunnelBase"`
	} `yaml:"dispatch"`

	Session struct {
		ProcessTimeoutMS int `yaml:"processTimeoutMS"`
		SettleMS         int `yaml:"settleMS"`
	} `yaml:"session"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	cfg := &Config{Version: "1.0.0"}
	cfg.Sqlite.Dsn = "" // 默认不启用记录
	cfg.Sqlite.Prefix = "mockwire_"
	cfg.Log.Level = "info"
	cfg.Log.Writer = []string{"console"}
	cfg.Dispatch.DelayMS = 200
	cfg.Session.ProcessTimeoutMS = 3000
	cfg.Session.SettleMS = 75
	return cfg
}

// Load 从 YAML 文件加载配置，缺失字段使用默认值
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
