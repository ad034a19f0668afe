// Package gameconfig 从文件系统加载只读的数据表（CSV / YAML）。
//
// 缺失的表不视为错误：记录 Warn 日志并使用调用方提供的内置默认内容。
package gameconfig

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/lk2023060901/ascend/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Record CSV 的一行，按表头索引
type Record map[string]string

// Loader 数据表加载器
type Loader struct {
	fsys   fs.FS
	logger logger.Logger
}

// NewLoader 创建加载器，fsys 为 nil 时所有表都使用内置默认
func NewLoader(fsys fs.FS, l logger.Logger) (*Loader, error) {
	if l == nil {
		return nil, fmt.Errorf("logger is required for NewLoader")
	}
	return &Loader{fsys: fsys, logger: l.Named("gameconfig")}, nil
}

// read 读取文件，不存在时返回 fallback
func (l *Loader) read(name string, fallback []byte) ([]byte, error) {
	if l.fsys == nil {
		return fallback, nil
	}

	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("optional config file not found, using built-in table", "table", name)
			return fallback, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", name, err)
	}
	return data, nil
}

// CSV 加载带表头的 CSV 表
func (l *Loader) CSV(name string, fallback []byte) ([]Record, error) {
	data, err := l.read(name, fallback)
	if err != nil {
		return nil, err
	}
	records, err := ParseCSV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return records, nil
}

// YAML 加载 YAML 文件到 v
func (l *Loader) YAML(name string, v any, fallback []byte) error {
	data, err := l.read(name, fallback)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}

// ParseCSV 解析带表头的 CSV，表头去空白并转小写
func ParseCSV(data []byte) ([]Record, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	r.Comment = '#'
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var records []Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		rec := make(Record, len(header))
		for i, h := range header {
			if i < len(row) {
				rec[h] = strings.TrimSpace(row[i])
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
