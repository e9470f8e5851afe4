// Package config загружает конфигурацию медиасервера из YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hl2dod/mediaserver/pkg/media_sdp"
	"github.com/hl2dod/mediaserver/pkg/mgcp/param"
	"github.com/hl2dod/mediaserver/pkg/rtp"
)

type Config struct {
	MGCP      MGCPConfig       `yaml:"mgcp"`
	RTP       RTPConfig        `yaml:"rtp"`
	Endpoints []EndpointConfig `yaml:"endpoints"`
	Admin     AdminConfig      `yaml:"admin"`
	Logging   LoggingConfig    `yaml:"logging"`
}

type MGCPConfig struct {
	// Address адрес приема команд
	Address string `yaml:"address"`
	// Domain доменная часть идентификаторов точек шлюза
	Domain string `yaml:"domain"`
	// CallAgent получатель NTFY по умолчанию, например "ca@10.0.0.1:2727"
	CallAgent        string            `yaml:"call_agent"`
	MaxInFlight      int64             `yaml:"max_in_flight"`
	NotifyRetransmit time.Duration     `yaml:"notify_retransmit"`
	NotifyAttempts   int               `yaml:"notify_attempts"`
	Socket           rtp.SocketOptions `yaml:"socket"`
}

type RTPConfig struct {
	BindAddress     string            `yaml:"bind_address"`
	ExternalAddress string            `yaml:"external_address"`
	Ports           rtp.PortRange     `yaml:"ports"`
	Codecs          []string          `yaml:"codecs"`
	Timeout         time.Duration     `yaml:"timeout"`
	Socket          rtp.SocketOptions `yaml:"socket"`
}

// EndpointConfig пространство имен точек, выделяемых по "$"
type EndpointConfig struct {
	Namespace string `yaml:"namespace"`
	// Connections разрешает CRCX на точках пространства
	Connections bool `yaml:"connections"`
}

type AdminConfig struct {
	// Address пустой отключает HTTP
	Address string `yaml:"address"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`
	NoColor bool   `yaml:"no_color"`
}

// Default конфигурация для запуска без файла
func Default() *Config {
	return &Config{
		MGCP: MGCPConfig{
			Address:          ":2427",
			Domain:           "127.0.0.1:2427",
			MaxInFlight:      256,
			NotifyRetransmit: 200 * time.Millisecond,
			NotifyAttempts:   5,
		},
		RTP: RTPConfig{
			BindAddress: "0.0.0.0",
			Ports:       rtp.PortRange{Min: 10000, Max: 20000},
			Codecs:      []string{"PCMU", "PCMA", "telephone-event"},
			Timeout:     5 * time.Second,
			Socket:      rtp.SocketOptions{DSCP: 46},
		},
		Endpoints: []EndpointConfig{
			{Namespace: "mobicents/ivr/", Connections: true},
			{Namespace: "mobicents/bridge/", Connections: true},
		},
		Admin:   AdminConfig{Address: ":8080"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load читает файл поверх значений по умолчанию и проверяет результат
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate проверяет все секции и возвращает все найденные ошибки
func (c *Config) Validate() error {
	var errs []error

	if _, _, err := net.SplitHostPort(c.MGCP.Address); err != nil {
		errs = append(errs, fmt.Errorf("mgcp.address: %w", err))
	}
	if c.MGCP.CallAgent != "" {
		if _, err := param.ParseNotifiedEntity(c.MGCP.CallAgent); err != nil {
			errs = append(errs, fmt.Errorf("mgcp.call_agent: %w", err))
		}
	}
	if c.MGCP.MaxInFlight < 0 {
		errs = append(errs, fmt.Errorf("mgcp.max_in_flight: must be non-negative, got %d", c.MGCP.MaxInFlight))
	}

	if ip := net.ParseIP(c.RTP.BindAddress); c.RTP.BindAddress != "" && ip == nil {
		errs = append(errs, fmt.Errorf("rtp.bind_address: invalid IP %q", c.RTP.BindAddress))
	}
	if ip := net.ParseIP(c.RTP.ExternalAddress); c.RTP.ExternalAddress != "" && ip == nil {
		errs = append(errs, fmt.Errorf("rtp.external_address: invalid IP %q", c.RTP.ExternalAddress))
	}
	if err := c.RTP.Ports.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("rtp.ports: %w", err))
	}
	if _, err := c.RTP.SupportedCodecs(); err != nil {
		errs = append(errs, fmt.Errorf("rtp.codecs: %w", err))
	}
	if c.RTP.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("rtp.timeout: must be positive, got %s", c.RTP.Timeout))
	}

	seen := make(map[string]bool)
	for i, ep := range c.Endpoints {
		ns := strings.ToLower(strings.TrimSuffix(ep.Namespace, "/"))
		switch {
		case ns == "":
			errs = append(errs, fmt.Errorf("endpoints[%d]: empty namespace", i))
		case seen[ns]:
			errs = append(errs, fmt.Errorf("endpoints[%d]: duplicate namespace %q", i, ep.Namespace))
		}
		seen[ns] = true
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	return errors.Join(errs...)
}

// SupportedCodecs кодеки RTP в порядке предпочтения
func (r RTPConfig) SupportedCodecs() ([]media_sdp.Codec, error) {
	codecs := make([]media_sdp.Codec, 0, len(r.Codecs))
	for _, name := range r.Codecs {
		codec, ok := media_sdp.CodecByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown codec %q", name)
		}
		codecs = append(codecs, codec)
	}
	return codecs, nil
}

// CallAgentEntity получатель NTFY по умолчанию, nil если не задан
func (m MGCPConfig) CallAgentEntity() *param.NotifiedEntity {
	if m.CallAgent == "" {
		return nil
	}
	ne, err := param.ParseNotifiedEntity(m.CallAgent)
	if err != nil {
		return nil
	}
	return ne
}

// SlogLevel уровень журнала для slog
func (l LoggingConfig) SlogLevel() slog.Level {
	level, err := parseLevel(l.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (must be one of debug, info, warn, error)", s)
	}
}
