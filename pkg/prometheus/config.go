package prometheus

import (
	"fmt"
	"time"
)

// Config 指标导出配置。指标命名空间由各业务指标自行决定，这里只负责注册表与导出。
type Config struct {
	// ConstLabels 附加到每条业务指标上的固定标签，例如 node
	ConstLabels map[string]string `mapstructure:"const_labels" json:"const_labels" yaml:"const_labels"`

	HTTPServer HTTPServerConfig `mapstructure:"http_server" json:"http_server" yaml:"http_server"`

	EnableGoCollector      bool `mapstructure:"enable_go_collector" json:"enable_go_collector" yaml:"enable_go_collector"`
	EnableProcessCollector bool `mapstructure:"enable_process_collector" json:"enable_process_collector" yaml:"enable_process_collector"`
}

// HTTPServerConfig 独立的 /metrics 服务
type HTTPServerConfig struct {
	Enabled bool          `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Addr    string        `mapstructure:"addr" json:"addr" yaml:"addr"`
	Path    string        `mapstructure:"path" json:"path" yaml:"path"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		HTTPServer: HTTPServerConfig{
			Enabled: false,
			Addr:    ":9090",
			Path:    "/metrics",
			Timeout: 10 * time.Second,
		},
		EnableGoCollector: true,
	}
}

// Validate 验证配置并补齐 HTTP 默认值
func (c *Config) Validate() error {
	for k, v := range c.ConstLabels {
		if k == "" || v == "" {
			return fmt.Errorf("%w: const label %q=%q", ErrInvalidConfig, k, v)
		}
	}

	if c.HTTPServer.Enabled {
		if c.HTTPServer.Addr == "" {
			return fmt.Errorf("%w: http_server.addr is required", ErrInvalidConfig)
		}
		if c.HTTPServer.Path == "" {
			c.HTTPServer.Path = "/metrics"
		}
		if c.HTTPServer.Timeout == 0 {
			c.HTTPServer.Timeout = 10 * time.Second
		}
	}
	return nil
}
