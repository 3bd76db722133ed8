// Package config loads the server configuration from defaults, an optional
// YAML file, a .env file, the environment and command-line flags, in that
// order of increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CHESSMCP_"

type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Cache  CacheConfig  `yaml:"cache"`
	Log    LogConfig    `yaml:"log"`
	Image  ImageConfig  `yaml:"image"`
	Server ServerConfig `yaml:"server"`
}

type EngineConfig struct {
	Path      string            `yaml:"path"` // empty: search PATH and the data dir
	Depth     int               `yaml:"depth"`
	Timeout   time.Duration     `yaml:"timeout"`
	Instances int               `yaml:"instances"`
	Threads   int               `yaml:"threads"`
	HashMB    int               `yaml:"hash"`
	Options   map[string]string `yaml:"options"` // extra UCI setoption values
}

type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Size    int64  `yaml:"size"` // in-memory entries
	Persist bool   `yaml:"persist"`
	Dir     string `yaml:"dir"` // empty: the data dir
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

type ImageConfig struct {
	Size int    `yaml:"size"`
	Dir  string `yaml:"dir"` // where board_image_filepath writes, empty: OS temp dir
}

type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"` // empty: stdio only
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Depth:     10,
			Timeout:   10 * time.Second,
			Instances: 1,
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    100000,
			Persist: false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Image: ImageConfig{
			Size: 256,
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Engine.Depth < 1:
		return fmt.Errorf("engine.depth must be at least 1, got %d", c.Engine.Depth)
	case c.Engine.Instances < 1:
		return fmt.Errorf("engine.instances must be at least 1, got %d", c.Engine.Instances)
	case c.Engine.Timeout <= 0:
		return fmt.Errorf("engine.timeout must be positive, got %s", c.Engine.Timeout)
	case c.Engine.Threads < 0:
		return fmt.Errorf("engine.threads must not be negative, got %d", c.Engine.Threads)
	case c.Engine.HashMB < 0:
		return fmt.Errorf("engine.hash must not be negative, got %d", c.Engine.HashMB)
	case c.Cache.Size < 0:
		return fmt.Errorf("cache.size must not be negative, got %d", c.Cache.Size)
	case c.Image.Size < 16:
		return fmt.Errorf("image.size must be at least 16, got %d", c.Image.Size)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// LoadFile merges the YAML file at path into c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides c with CHESSMCP_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("ENGINE_PATH", &c.Engine.Path)
	num("ENGINE_DEPTH", &c.Engine.Depth)
	num("ENGINE_INSTANCES", &c.Engine.Instances)
	num("ENGINE_THREADS", &c.Engine.Threads)
	num("ENGINE_HASH", &c.Engine.HashMB)
	if v, ok := lookup(EnvPrefix + "ENGINE_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sENGINE_TIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Engine.Timeout = d
		}
	}
	boolean("CACHE_ENABLED", &c.Cache.Enabled)
	boolean("CACHE_PERSIST", &c.Cache.Persist)
	str("CACHE_DIR", &c.Cache.Dir)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	num("IMAGE_SIZE", &c.Image.Size)
	str("IMAGE_DIR", &c.Image.Dir)
	str("HTTP_ADDR", &c.Server.HTTPAddr)

	return errors.Join(errs...)
}

// Load builds the configuration for a run with the given command-line
// arguments (without the program name). Usage goes to usage; a -h request
// returns flag.ErrHelp.
func Load(args []string, usage io.Writer) (*Config, error) {
	fset := flag.NewFlagSet("chessmcp", flag.ContinueOnError)
	fset.SetOutput(usage)

	var (
		configPath = fset.String("config", os.Getenv(EnvPrefix+"CONFIG"), "YAML config file")
		envFile    = fset.String("env-file", ".env", "dotenv file loaded into the environment if present")
		enginePath = fset.String("engine", "", "UCI engine binary or a directory holding exactly one")
		depth      = fset.Int("depth", 0, "search depth per position")
		timeout    = fset.Duration("timeout", 0, "engine timeout per position")
		instances  = fset.Int("instances", 0, "number of engine processes")
		cacheDir   = fset.String("cache-dir", "", "persist evaluations in this directory")
		noCache    = fset.Bool("no-cache", false, "disable the evaluation cache")
		logLevel   = fset.String("log-level", "", "trace, debug, info, warn or error")
		logFormat  = fset.String("log-format", "", "console or json")
		imageSize  = fset.Int("image-size", 0, "default board image size in pixels")
		httpAddr   = fset.String("http", "", "also serve MCP over streamable HTTP on this address")
	)
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()
	if *configPath != "" {
		if err := cfg.LoadFile(*configPath); err != nil {
			return nil, err
		}
	}

	if *envFile != "" {
		// Variables already set in the environment win over the file.
		if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", *envFile, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "engine":
			cfg.Engine.Path = *enginePath
		case "depth":
			cfg.Engine.Depth = *depth
		case "timeout":
			cfg.Engine.Timeout = *timeout
		case "instances":
			cfg.Engine.Instances = *instances
		case "cache-dir":
			cfg.Cache.Dir = *cacheDir
			cfg.Cache.Persist = true
		case "no-cache":
			cfg.Cache.Enabled = !*noCache
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-format":
			cfg.Log.Format = *logFormat
		case "image-size":
			cfg.Image.Size = *imageSize
		case "http":
			cfg.Server.HTTPAddr = *httpAddr
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
