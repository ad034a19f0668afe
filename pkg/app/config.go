package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lk2023060901/ascend/pkg/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，ASCEND_LOG_LEVEL -> log.level
const EnvPrefix = "ASCEND"

// ConfigFlags 注册配置相关的命令行参数
func ConfigFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "config.yaml", "path to config file")
	fs.String("log.path", "", "output path for logs (overrides log.output_path)")
}

// LoadConfig 加载配置到 target
// 优先级：1. 命令行显式参数 > 2. 环境变量 > 3. 配置文件 > 4. 默认值
//
// 显式指定（--config 或 ASCEND_CONFIG）的配置文件必须存在；
// 默认路径下没有配置文件时只使用默认值和环境变量。
func LoadConfig(fs *pflag.FlagSet, target any, opts ...config.Option) (string, error) {
	// 1. 确定配置文件路径
	path, _ := fs.GetString("config")
	explicit := fs.Changed("config")
	if !explicit {
		if env := os.Getenv(EnvPrefix + "_CONFIG"); env != "" {
			path = env
			explicit = true
		}
	}

	// 2. 环境变量映射
	v := viper.New()
	mgr := config.NewManager(append([]config.Option{config.WithViper(v), config.WithEnvPrefix(EnvPrefix)}, opts...)...)

	// 3. 加载配置文件
	if _, err := os.Stat(path); err == nil {
		if err := mgr.LoadFile(path); err != nil {
			return "", err
		}
	} else if explicit {
		return "", fmt.Errorf("%w: %s", config.ErrConfigFileNotFound, path)
	} else {
		path = ""
	}

	// 4. 命令行显式指定的日志路径优先级最高
	if fs.Changed("log.path") {
		logPath, _ := fs.GetString("log.path")
		v.Set("log.output_path", logPath)
		v.Set("log.enable_file", true)
	}

	// 5. 解析到目标结构体
	if err := mgr.Unmarshal(target); err != nil {
		return "", err
	}

	// 6. 预先创建日志目录
	if logPath := v.GetString("log.output_path"); logPath != "" {
		_ = os.MkdirAll(filepath.Dir(logPath), 0o755)
	}

	return path, nil
}
