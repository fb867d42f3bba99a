package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"kosmos-worm/server/internal/observability"
	"kosmos-worm/server/internal/telemetry"
	"kosmos-worm/server/internal/world"
	"kosmos-worm/server/logging"
)

// Environment keys understood by Load.
const (
	EnvPort           = "PORT"
	EnvClientDir      = "CLIENT_DIR"
	EnvWorldConfig    = "WORLD_CONFIG"
	EnvBotCount       = "BOT_COUNT"
	EnvCollision      = "COLLISION_POLICY"
	EnvLogSinks       = "LOG_SINKS"
	EnvLogJSONPath    = "LOG_JSON_PATH"
	EnvLogLevel       = "LOG_LEVEL"
	EnvPprofTrace     = "ENABLE_PPROF_TRACE"
	EnvDebugTelemetry = "DEBUG_TELEMETRY"
)

const DefaultPort = 3000

// Config is the fully resolved process configuration.
type Config struct {
	Addr            string
	ClientDir       string
	WorldConfigPath string
	World           world.Config
	Logging         logging.Config
	Observability   observability.Config
}

// Options controls where Load reads from. Flag values, when set, take
// precedence over the environment.
type Options struct {
	// EnvFiles are loaded with godotenv before reading the environment.
	// Missing files are skipped. Nil loads .env.
	EnvFiles []string
	Getenv   func(string) string
	Logger   telemetry.Logger

	WorldConfigPath string
	Addr            string
}

// Load resolves configuration from .env files, the environment and flag
// overrides. Unparseable values are logged and the default kept; a world
// config file that cannot be read or parsed is an error.
func Load(opts Options) (Config, error) {
	if err := loadEnvFiles(opts.EnvFiles); err != nil {
		return Config{}, err
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}

	cfg := Config{
		Addr:      fmt.Sprintf(":%d", DefaultPort),
		ClientDir: strings.TrimSpace(getenv(EnvClientDir)),
		World:     world.DefaultConfig(),
		Logging:   logging.DefaultConfig(),
	}

	if raw := strings.TrimSpace(getenv(EnvPort)); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil && port > 0 && port <= 65535 {
			cfg.Addr = fmt.Sprintf(":%d", port)
		} else {
			logger.Printf("invalid %s=%q: expected a port number", EnvPort, raw)
		}
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}

	cfg.WorldConfigPath = strings.TrimSpace(getenv(EnvWorldConfig))
	if opts.WorldConfigPath != "" {
		cfg.WorldConfigPath = opts.WorldConfigPath
	}
	if cfg.WorldConfigPath != "" {
		tuned, err := LoadWorldConfig(cfg.WorldConfigPath)
		if err != nil {
			return Config{}, err
		}
		cfg.World = tuned
	}

	if raw := strings.TrimSpace(getenv(EnvBotCount)); raw != "" {
		if count, err := strconv.Atoi(raw); err == nil && count >= 0 {
			cfg.World.BotCount = count
		} else {
			logger.Printf("invalid %s=%q: expected a non-negative integer", EnvBotCount, raw)
		}
	}
	if raw := strings.TrimSpace(getenv(EnvCollision)); raw != "" {
		if policy, ok := ParseCollisionPolicy(raw); ok {
			cfg.World.CollisionPolicy = policy
		} else {
			logger.Printf("invalid %s=%q: expected %q or %q", EnvCollision, raw, world.CollisionResolveAll, world.CollisionFirstOnly)
		}
	}

	if raw := getenv(EnvLogSinks); strings.TrimSpace(raw) != "" {
		cfg.Logging.EnabledSinks = splitList(raw)
	}
	if raw := strings.TrimSpace(getenv(EnvLogJSONPath)); raw != "" {
		cfg.Logging.JSON.FilePath = raw
	}
	if raw := strings.TrimSpace(getenv(EnvLogLevel)); raw != "" {
		if severity, ok := logging.ParseSeverity(raw); ok {
			cfg.Logging.MinimumSeverity = severity
		} else {
			logger.Printf("invalid %s=%q", EnvLogLevel, raw)
		}
	}

	if raw := strings.TrimSpace(getenv(EnvPprofTrace)); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Observability.EnablePprofTrace = value
		} else {
			logger.Printf("invalid %s=%q: %v", EnvPprofTrace, raw, err)
		}
	}
	if raw := strings.TrimSpace(getenv(EnvDebugTelemetry)); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Observability.DebugTelemetry = value
		} else {
			logger.Printf("invalid %s=%q: %v", EnvDebugTelemetry, raw, err)
		}
	}

	return cfg, nil
}

// LoadWorldConfig decodes a YAML tuning file on top of world.DefaultConfig.
// Keys absent from the file keep their defaults.
func LoadWorldConfig(path string) (world.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return world.Config{}, fmt.Errorf("read world config %s: %w", path, err)
	}
	cfg := world.DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return world.Config{}, fmt.Errorf("parse world config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseCollisionPolicy accepts the policy names case-insensitively.
func ParseCollisionPolicy(raw string) (world.CollisionPolicy, bool) {
	switch world.CollisionPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case world.CollisionResolveAll:
		return world.CollisionResolveAll, true
	case world.CollisionFirstOnly:
		return world.CollisionFirstOnly, true
	default:
		return "", false
	}
}

func loadEnvFiles(files []string) error {
	if files == nil {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", file, err)
		}
	}
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
