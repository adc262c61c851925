package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/aegis-backtest/internal/contracts"
)

// Format is the encoding of a config file
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the format from the file extension (YAML unless .json)
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads a YAML or JSON file and returns the validated Config with raw bytes
// SSOT 핵심: 알 수 없는 필드는 즉시 실패 (YAML KnownFields, JSON DisallowUnknownFields)
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, data, err
	}
	return cfg, data, nil
}

// Parse decodes and validates a config document
func Parse(data []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadBacktestConfig loads path and converts it to the engine's run config
func LoadBacktestConfig(path string) (contracts.BacktestConfig, *Config, []byte, error) {
	cfg, data, err := Load(path)
	if err != nil {
		return contracts.BacktestConfig{}, nil, data, err
	}
	bc, err := ToBacktestConfig(cfg)
	if err != nil {
		return contracts.BacktestConfig{}, nil, data, err
	}
	return bc, cfg, data, nil
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewRunSnapshot creates a snapshot written next to the run output
func NewRunSnapshot(cfg *Config, raw []byte) (*RunSnapshot, error) {
	fileHash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}
	bc, err := ToBacktestConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &RunSnapshot{
		ConfigHash: bc.Hash(),
		FileHash:   fileHash,
		ConfigRaw:  string(raw),
		Name:       bc.Name,
		CreatedAt:  time.Now(),
	}, nil
}
