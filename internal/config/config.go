package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"chordnode/internal/configloader"
	"chordnode/internal/logger"

	"gopkg.in/yaml.v3"
)

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

type FileLoggerConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
}

type LoggerConfig struct {
	Active   bool             `yaml:"active"`
	Level    string           `yaml:"level"`
	Encoding string           `yaml:"encoding"`
	Mode     string           `yaml:"mode"`
	File     FileLoggerConfig `yaml:"file"`
}

// MaintenanceConfig groups spec §6's --ts/--tff/--tcp periods, in
// milliseconds as the CLI supplies them.
type MaintenanceConfig struct {
	StabilizeMs        int `yaml:"stabilizeMs"`
	FixFingersMs       int `yaml:"fixFingersMs"`
	CheckPredecessorMs int `yaml:"checkPredecessorMs"`
}

// DHTConfig holds the ring-level parameters: spec §6's -r (successor
// list length) plus the per-RPC deadline of §5 (no dedicated flag since
// --tcp already names check-predecessor, and no environment variable:
// it is set only from YAML).
type DHTConfig struct {
	SuccListSize       int               `yaml:"succListSize"`
	TransportTimeoutMs int               `yaml:"transportTimeoutMs"`
	Maintenance        MaintenanceConfig `yaml:"maintenance"`
}

type RegisterConfig struct {
	Enabled      bool   `yaml:"enabled"`
	HostedZoneID string `yaml:"hostedZoneId"`
	DomainSuffix string `yaml:"domainSuffix"`
	TTL          int64  `yaml:"ttl"`
}

// Route53Config names the hosted-zone coordinates needed by
// bootstrap.Route53Bootstrap, spared from the CLI surface since it is
// an optional discovery backend, not part of the ring protocol itself.
type Route53Config struct {
	HostedZoneID string `yaml:"hostedZoneId"`
	DNSName      string `yaml:"dnsName"`
	TTL          int64  `yaml:"ttl"`
}

// CoreDNSConfig names the etcd coordinates needed by
// bootstrap.CoreDNSBootstrap: the key space a CoreDNS etcd plugin
// would serve as DNS, read and written directly over the etcd client
// rather than through a DNS resolver.
type CoreDNSConfig struct {
	EtcdEndpoints []string `yaml:"etcdEndpoints"`
	BasePath      string   `yaml:"basePath"`
	Domain        string   `yaml:"domain"`
	TTL           int64    `yaml:"ttl"`
}

// BootstrapConfig selects how a node discovers a peer to join through.
// Addr/Port come from --ja/--jp; Mode/Peers/Route53/CoreDNS are
// conveniences for operating a fleet of more than two nodes, set from
// YAML or environment overrides (Mode also from --register).
type BootstrapConfig struct {
	Addr     string         `yaml:"addr"`
	Port     int            `yaml:"port"`
	Mode     string         `yaml:"mode"` // "static", "route53", or "coredns"
	Peers    []string       `yaml:"peers"`
	Route53  Route53Config  `yaml:"route53"`
	CoreDNS  CoreDNSConfig  `yaml:"coredns"`
	Register RegisterConfig `yaml:"register"`
}

type NodeConfig struct {
	Addr string `yaml:"addr"`
	Port int    `yaml:"port"`
}

type Config struct {
	Logger    LoggerConfig    `yaml:"logger"`
	DHT       DHTConfig       `yaml:"dht"`
	Node      NodeConfig      `yaml:"node"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// Default returns a Config carrying spec §6's defaults: a 1s transport
// timeout (§5) and sane maintenance periods, so a node started with
// only --addr/--port still runs.
func Default() Config {
	return Config{
		Logger: LoggerConfig{Active: true, Level: "info", Encoding: "console", Mode: "stdout"},
		DHT: DHTConfig{
			SuccListSize:       8,
			TransportTimeoutMs: 1000,
			Maintenance: MaintenanceConfig{
				StabilizeMs:        500,
				FixFingersMs:       500,
				CheckPredecessorMs: 500,
			},
		},
	}
}

// LoadConfig loads an optional YAML overlay on top of Default(). A
// missing file is not an error: spec §6 treats the CLI flags as the
// primary surface, the config file as an ambient convenience for the
// settings the flags don't name (logger, telemetry, bootstrap/route53).
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return &cfg, nil
}

// ApplyEnvOverrides layers environment variables over the loaded
// config, using the shared configloader.Override* helpers.
func (cfg *Config) ApplyEnvOverrides() {
	configloader.OverrideString(&cfg.Node.Addr, "NODE_ADDR")
	configloader.OverrideInt(&cfg.Node.Port, "NODE_PORT")

	configloader.OverrideString(&cfg.Bootstrap.Addr, "BOOTSTRAP_ADDR")
	configloader.OverrideInt(&cfg.Bootstrap.Port, "BOOTSTRAP_PORT")
	configloader.OverrideString(&cfg.Bootstrap.Mode, "BOOTSTRAP_MODE")
	configloader.OverrideStringSlice(&cfg.Bootstrap.Peers, "BOOTSTRAP_PEERS")
	configloader.OverrideBool(&cfg.Bootstrap.Register.Enabled, "REGISTER_ENABLED")
	configloader.OverrideString(&cfg.Bootstrap.Register.HostedZoneID, "REGISTER_ZONE_ID")
	configloader.OverrideString(&cfg.Bootstrap.Register.DomainSuffix, "REGISTER_SUFFIX")
	configloader.OverrideInt64(&cfg.Bootstrap.Register.TTL, "REGISTER_TTL")
	configloader.OverrideStringSlice(&cfg.Bootstrap.CoreDNS.EtcdEndpoints, "COREDNS_ETCD_ENDPOINTS")
	configloader.OverrideString(&cfg.Bootstrap.CoreDNS.BasePath, "COREDNS_BASE_PATH")
	configloader.OverrideString(&cfg.Bootstrap.CoreDNS.Domain, "COREDNS_DOMAIN")
	configloader.OverrideInt64(&cfg.Bootstrap.CoreDNS.TTL, "COREDNS_TTL")

	configloader.OverrideBool(&cfg.Telemetry.Tracing.Enabled, "TRACE_ENABLED")
	configloader.OverrideString(&cfg.Telemetry.Tracing.Exporter, "TRACE_EXPORTER")
	configloader.OverrideString(&cfg.Telemetry.Tracing.Endpoint, "TRACE_ENDPOINT")

	configloader.OverrideBool(&cfg.Logger.Active, "LOGGER_ENABLED")
	configloader.OverrideString(&cfg.Logger.Level, "LOGGER_LEVEL")
	configloader.OverrideString(&cfg.Logger.Encoding, "LOGGER_ENCODING")
	configloader.OverrideString(&cfg.Logger.Mode, "LOGGER_MODE")
	configloader.OverrideString(&cfg.Logger.File.Path, "LOGGER_FILE_PATH")
}

// ValidateConfig checks the structural constraints spec §6 names
// explicitly (stabilize period bounds, successor list length) plus the
// ambient logger/bootstrap settings.
func (cfg *Config) ValidateConfig() error {
	var errs []string

	if cfg.Node.Port < 0 || cfg.Node.Port > 65535 {
		errs = append(errs, fmt.Sprintf("node.port must be in [0,65535], got %d", cfg.Node.Port))
	}
	if cfg.Bootstrap.Addr != "" {
		if cfg.Bootstrap.Port <= 0 || cfg.Bootstrap.Port > 65535 {
			errs = append(errs, fmt.Sprintf("bootstrap.port must be in (0,65535], got %d", cfg.Bootstrap.Port))
		}
	}
	for _, p := range cfg.Bootstrap.Peers {
		if _, _, err := net.SplitHostPort(p); err != nil {
			errs = append(errs, fmt.Sprintf("invalid peer address %q in bootstrap.peers: %v", p, err))
		}
	}
	switch cfg.Bootstrap.Mode {
	case "", "static", "route53":
	case "coredns":
		if len(cfg.Bootstrap.CoreDNS.EtcdEndpoints) == 0 {
			errs = append(errs, "bootstrap.coredns.etcdEndpoints is required when bootstrap.mode=coredns")
		}
		if cfg.Bootstrap.CoreDNS.Domain == "" {
			errs = append(errs, "bootstrap.coredns.domain is required when bootstrap.mode=coredns")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid bootstrap.mode: %s", cfg.Bootstrap.Mode))
	}

	if cfg.DHT.SuccListSize < 1 || cfg.DHT.SuccListSize > 32 {
		errs = append(errs, fmt.Sprintf("dht.succListSize must be in 1..=32, got %d", cfg.DHT.SuccListSize))
	}
	m := cfg.DHT.Maintenance
	if m.StabilizeMs <= 0 || m.StabilizeMs > 60000 {
		errs = append(errs, fmt.Sprintf("dht.maintenance.stabilizeMs must be in (0,60000], got %d", m.StabilizeMs))
	}
	if m.FixFingersMs <= 0 {
		errs = append(errs, "dht.maintenance.fixFingersMs must be > 0")
	}
	if m.CheckPredecessorMs <= 0 {
		errs = append(errs, "dht.maintenance.checkPredecessorMs must be > 0")
	}
	if cfg.DHT.TransportTimeoutMs <= 0 {
		errs = append(errs, "dht.transportTimeoutMs must be > 0")
	}

	switch cfg.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.level: %s", cfg.Logger.Level))
	}
	switch cfg.Logger.Encoding {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.encoding: %s", cfg.Logger.Encoding))
	}
	switch cfg.Logger.Mode {
	case "stdout":
	case "file":
		if cfg.Logger.File.Path == "" {
			errs = append(errs, "logger.file.path is required when mode=file")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.mode: %s", cfg.Logger.Mode))
	}

	if cfg.Telemetry.Tracing.Enabled {
		switch cfg.Telemetry.Tracing.Exporter {
		case "stdout", "otlp":
		default:
			errs = append(errs, fmt.Sprintf("invalid telemetry.tracing.exporter: %s", cfg.Telemetry.Tracing.Exporter))
		}
		if cfg.Telemetry.Tracing.Exporter == "otlp" && cfg.Telemetry.Tracing.Endpoint == "" {
			errs = append(errs, "telemetry.tracing.endpoint is required for the otlp exporter")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// StabilizePeriod, FixFingersPeriod and CheckPredecessorPeriod convert
// the millisecond fields into time.Duration for the maintenance
// scheduler (C6).
func (cfg *Config) StabilizePeriod() time.Duration {
	return time.Duration(cfg.DHT.Maintenance.StabilizeMs) * time.Millisecond
}

func (cfg *Config) FixFingersPeriod() time.Duration {
	return time.Duration(cfg.DHT.Maintenance.FixFingersMs) * time.Millisecond
}

func (cfg *Config) CheckPredecessorPeriod() time.Duration {
	return time.Duration(cfg.DHT.Maintenance.CheckPredecessorMs) * time.Millisecond
}

func (cfg *Config) TransportTimeout() time.Duration {
	return time.Duration(cfg.DHT.TransportTimeoutMs) * time.Millisecond
}

// LogConfig prints the effective configuration at DEBUG level.
func (cfg *Config) LogConfig(lgr logger.Logger) {
	lgr.Debug("loaded configuration",
		logger.F("logger.active", cfg.Logger.Active),
		logger.F("logger.level", cfg.Logger.Level),
		logger.F("logger.encoding", cfg.Logger.Encoding),
		logger.F("logger.mode", cfg.Logger.Mode),
		logger.F("logger.file.path", cfg.Logger.File.Path),

		logger.F("node.addr", cfg.Node.Addr),
		logger.F("node.port", cfg.Node.Port),

		logger.F("dht.succListSize", cfg.DHT.SuccListSize),
		logger.F("dht.transportTimeoutMs", cfg.DHT.TransportTimeoutMs),
		logger.F("dht.maintenance.stabilizeMs", cfg.DHT.Maintenance.StabilizeMs),
		logger.F("dht.maintenance.fixFingersMs", cfg.DHT.Maintenance.FixFingersMs),
		logger.F("dht.maintenance.checkPredecessorMs", cfg.DHT.Maintenance.CheckPredecessorMs),

		logger.F("bootstrap.addr", cfg.Bootstrap.Addr),
		logger.F("bootstrap.port", cfg.Bootstrap.Port),
		logger.F("bootstrap.mode", cfg.Bootstrap.Mode),
		logger.F("bootstrap.peers", cfg.Bootstrap.Peers),
		logger.F("bootstrap.register.enabled", cfg.Bootstrap.Register.Enabled),
		logger.F("bootstrap.coredns.basePath", cfg.Bootstrap.CoreDNS.BasePath),
		logger.F("bootstrap.coredns.domain", cfg.Bootstrap.CoreDNS.Domain),

		logger.F("telemetry.tracing.enabled", cfg.Telemetry.Tracing.Enabled),
		logger.F("telemetry.tracing.exporter", cfg.Telemetry.Tracing.Exporter),
		logger.F("telemetry.tracing.endpoint", cfg.Telemetry.Tracing.Endpoint),
	)
}
