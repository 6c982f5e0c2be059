// Package config resolves run settings from defaults, an HCL file, the
// environment and command-line flags, in that order of precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"

	"github.com/phobologic/callrank/internal/cache"
	"github.com/phobologic/callrank/internal/complexity"
	"github.com/phobologic/callrank/internal/ctxlog"
	"github.com/phobologic/callrank/internal/discover"
	"github.com/phobologic/callrank/internal/extract"
	"github.com/phobologic/callrank/internal/transmit"
	"github.com/phobologic/callrank/internal/watch"
)

// DefaultFile is the config file looked for in the scanned directory.
const DefaultFile = "callrank.hcl"

// MaxRetries bounds scheduler.retries.
const MaxRetries = 10

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "CALLRANK_"

// Config is the resolved configuration for one invocation.
type Config struct {
	Workers    int
	Scan       Scan
	Extract    Extract
	Complexity Complexity
	Scheduler  Scheduler
	Log        Log
	Watch      Watch
}

type Scan struct {
	Extensions       []string
	RespectGitignore bool
	MaxFileSize      int64
	Decode           string
}

type Extract struct {
	Mode         string
	Keyword      string
	QualifyNames bool
}

type Complexity struct {
	Scorer string
	File   string
}

type Scheduler struct {
	Host         string
	Port         int
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Retries      int
	RetryDelay   time.Duration
}

type Log struct {
	Level  string
	Format string
}

type Watch struct {
	Debounce  time.Duration
	CacheSize int
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Scan: Scan{
			Extensions:       append([]string(nil), discover.DefaultExtensions...),
			RespectGitignore: true,
			MaxFileSize:      discover.DefaultMaxFileSize,
			Decode:           string(discover.DecodeReplace),
		},
		Extract: Extract{
			Mode: string(extract.ModeText),
		},
		Complexity: Complexity{
			Scorer: string(complexity.KindTreeSitter),
		},
		Scheduler: Scheduler{
			Host:         transmit.DefaultHost,
			Port:         transmit.DefaultPort,
			DialTimeout:  transmit.DefaultDialTimeout,
			WriteTimeout: transmit.DefaultWriteTimeout,
			RetryDelay:   200 * time.Millisecond,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Watch: Watch{
			Debounce:  watch.DefaultDebounce,
			CacheSize: cache.DefaultSize,
		},
	}
}

// fileConfig mirrors the HCL file. Pointer fields distinguish "absent" from
// the zero value.
type fileConfig struct {
	Workers    *int             `hcl:"workers,optional"`
	Scan       *scanBlock       `hcl:"scan,block"`
	Extract    *extractBlock    `hcl:"extract,block"`
	Complexity *complexityBlock `hcl:"complexity,block"`
	Scheduler  *schedulerBlock  `hcl:"scheduler,block"`
	Log        *logBlock        `hcl:"log,block"`
	Watch      *watchBlock      `hcl:"watch,block"`
}

type scanBlock struct {
	Extensions       []string `hcl:"extensions,optional"`
	RespectGitignore *bool    `hcl:"respect_gitignore,optional"`
	MaxFileSize      *int64   `hcl:"max_file_size,optional"`
	Decode           *string  `hcl:"decode,optional"`
}

type extractBlock struct {
	Mode         *string `hcl:"mode,optional"`
	Keyword      *string `hcl:"keyword,optional"`
	QualifyNames *bool   `hcl:"qualify_names,optional"`
}

type complexityBlock struct {
	Scorer *string `hcl:"scorer,optional"`
	File   *string `hcl:"file,optional"`
}

type schedulerBlock struct {
	Host         *string `hcl:"host,optional"`
	Port         *int    `hcl:"port,optional"`
	DialTimeout  *string `hcl:"dial_timeout,optional"`
	WriteTimeout *string `hcl:"write_timeout,optional"`
	Retries      *int    `hcl:"retries,optional"`
	RetryDelay   *string `hcl:"retry_delay,optional"`
}

type logBlock struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

type watchBlock struct {
	Debounce  *string `hcl:"debounce,optional"`
	CacheSize *int    `hcl:"cache_size,optional"`
}

// LoadFile parses the HCL file at path and applies the settings it contains
// on top of cfg.
func LoadFile(ctx context.Context, path string, cfg *Config) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("decoding config file", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file %s: %s", path, diags.Error())
	}

	var fc fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &fc)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %s", path, diags.Error())
	}

	if err := fc.apply(cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (fc *fileConfig) apply(cfg *Config) error {
	setInt(&cfg.Workers, fc.Workers)

	if b := fc.Scan; b != nil {
		if b.Extensions != nil {
			cfg.Scan.Extensions = b.Extensions
		}
		setBool(&cfg.Scan.RespectGitignore, b.RespectGitignore)
		if b.MaxFileSize != nil {
			cfg.Scan.MaxFileSize = *b.MaxFileSize
		}
		setString(&cfg.Scan.Decode, b.Decode)
	}

	if b := fc.Extract; b != nil {
		setString(&cfg.Extract.Mode, b.Mode)
		setString(&cfg.Extract.Keyword, b.Keyword)
		setBool(&cfg.Extract.QualifyNames, b.QualifyNames)
	}

	if b := fc.Complexity; b != nil {
		setString(&cfg.Complexity.Scorer, b.Scorer)
		setString(&cfg.Complexity.File, b.File)
	}

	var errs []error
	if b := fc.Scheduler; b != nil {
		setString(&cfg.Scheduler.Host, b.Host)
		setInt(&cfg.Scheduler.Port, b.Port)
		setInt(&cfg.Scheduler.Retries, b.Retries)
		errs = append(errs,
			setDuration(&cfg.Scheduler.DialTimeout, "scheduler.dial_timeout", b.DialTimeout),
			setDuration(&cfg.Scheduler.WriteTimeout, "scheduler.write_timeout", b.WriteTimeout),
			setDuration(&cfg.Scheduler.RetryDelay, "scheduler.retry_delay", b.RetryDelay),
		)
	}

	if b := fc.Log; b != nil {
		setString(&cfg.Log.Level, b.Level)
		setString(&cfg.Log.Format, b.Format)
	}

	if b := fc.Watch; b != nil {
		setInt(&cfg.Watch.CacheSize, b.CacheSize)
		errs = append(errs, setDuration(&cfg.Watch.Debounce, "watch.debounce", b.Debounce))
	}

	return errors.Join(errs...)
}

// LoadDotEnv loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with CALLRANK_* variables read through getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	get := func(key string) string {
		return strings.TrimSpace(getenv(EnvPrefix + key))
	}

	if v := get("HOST"); v != "" {
		cfg.Scheduler.Host = v
	}
	if v := get("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := get("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := get("EXTRACTOR"); v != "" {
		cfg.Extract.Mode = v
	}
	if v := get("SCORER"); v != "" {
		cfg.Complexity.Scorer = v
	}

	var errs []error
	for key, dst := range map[string]*int{
		"PORT":    &cfg.Scheduler.Port,
		"WORKERS": &cfg.Workers,
		"RETRIES": &cfg.Scheduler.Retries,
	} {
		v := get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			continue
		}
		*dst = n
	}
	return errors.Join(errs...)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	switch discover.DecodePolicy(c.Scan.Decode) {
	case discover.DecodeReplace, discover.DecodeStrict:
	default:
		errs = append(errs, fmt.Errorf("scan.decode: unknown policy %q", c.Scan.Decode))
	}
	if len(discover.NormalizeExtensions(c.Scan.Extensions)) == 0 {
		errs = append(errs, errors.New("scan.extensions: at least one extension is required"))
	}
	if c.Scan.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("scan.max_file_size: must be positive, got %d", c.Scan.MaxFileSize))
	}

	switch extract.Mode(c.Extract.Mode) {
	case extract.ModeText, extract.ModeTreeSitter:
	default:
		errs = append(errs, fmt.Errorf("extract.mode: unknown mode %q", c.Extract.Mode))
	}

	switch complexity.Kind(c.Complexity.Scorer) {
	case complexity.KindNone, complexity.KindTreeSitter:
	case complexity.KindFile:
		if c.Complexity.File == "" {
			errs = append(errs, errors.New("complexity.file: required when scorer is \"file\""))
		}
	default:
		errs = append(errs, fmt.Errorf("complexity.scorer: unknown scorer %q", c.Complexity.Scorer))
	}

	if c.Scheduler.Host == "" {
		errs = append(errs, errors.New("scheduler.host: must not be empty"))
	}
	if c.Scheduler.Port < 1 || c.Scheduler.Port > 65535 {
		errs = append(errs, fmt.Errorf("scheduler.port: must be in 1..65535, got %d", c.Scheduler.Port))
	}
	if c.Scheduler.Retries < 0 || c.Scheduler.Retries > MaxRetries {
		errs = append(errs, fmt.Errorf("scheduler.retries: must be in 0..%d, got %d", MaxRetries, c.Scheduler.Retries))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format))
	}

	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers: must not be negative, got %d", c.Workers))
	}

	return errors.Join(errs...)
}

// Addr returns the scheduler dial address.
func (c *Config) Addr() string {
	return transmit.Addr(c.Scheduler.Host, c.Scheduler.Port)
}

// ScanOptions converts the scan settings for discover.New.
func (c *Config) ScanOptions() discover.Options {
	return discover.Options{
		Extensions:       c.Scan.Extensions,
		RespectGitignore: c.Scan.RespectGitignore,
		MaxFileSize:      c.Scan.MaxFileSize,
		Decode:           discover.DecodePolicy(c.Scan.Decode),
	}
}

// Extractor builds the configured extractor.
func (c *Config) Extractor() (extract.Extractor, error) {
	return extract.New(extract.Options{
		Mode:         extract.Mode(c.Extract.Mode),
		Keyword:      c.Extract.Keyword,
		QualifyNames: c.Extract.QualifyNames,
	})
}

// Scorer builds the configured complexity scorer.
func (c *Config) Scorer() (complexity.Scorer, error) {
	return complexity.New(complexity.Options{
		Kind:         complexity.Kind(c.Complexity.Scorer),
		File:         c.Complexity.File,
		QualifyNames: c.Extract.QualifyNames,
	})
}

// Deliverer builds the scheduler client, wrapped in a retry when retries
// are configured.
func (c *Config) Deliverer() transmit.Deliverer {
	client := &transmit.Client{
		Addr:         c.Addr(),
		DialTimeout:  c.Scheduler.DialTimeout,
		WriteTimeout: c.Scheduler.WriteTimeout,
	}
	if c.Scheduler.Retries == 0 {
		return client
	}
	return &transmit.Retry{
		Next:      client,
		Attempts:  c.Scheduler.Retries + 1,
		BaseDelay: c.Scheduler.RetryDelay,
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, name string, v *string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return fmt.Errorf("%s: must not be negative", name)
	}
	*dst = d
	return nil
}
