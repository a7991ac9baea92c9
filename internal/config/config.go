// Package config resolves the server's startup configuration: the fixed
// CLI surface ("httpserver [-t THREADS] PORT") plus an optional JSONC
// tuning file for secondary, non-contractual defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tailscale/hujson"

	flag "github.com/spf13/pflag"
)

const (
	defaultThreads  = 4
	minPort         = 1
	maxPort         = 65535
	tuningFileEnv   = "HTTPSERVER_CONFIG"
	defaultTuning   = ".httpserver.json"
	auditPathStderr = "-" // sentinel meaning "write audit lines to stderr"
)

// ErrUsage signals that usage should be printed and the process should
// exit with status 1; it carries no further information of its own.
var ErrUsage = errors.New("config: usage error")

// Config is the fully resolved startup configuration.
type Config struct {
	Threads   int
	Port      int
	AuditPath string // "-" means stderr
}

// tuning holds the optional, non-contractual fields a JSONC file may set.
// CLI flags always win; tuning only supplies defaults used when a flag was
// not passed.
type tuning struct {
	DefaultThreads *int    `json:"default_threads,omitempty"`
	AuditLogPath   *string `json:"audit_log_path,omitempty"`
}

// Parse resolves Config from CLI args, environment, and an optional tuning
// file. On a usage or validation error it writes a message to errOut and
// returns an error wrapping [ErrUsage]; the caller should exit with status 1.
func Parse(args []string, env map[string]string, errOut io.Writer) (Config, error) {
	fs := flag.NewFlagSet("httpserver", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	threads := fs.IntP("threads", "t", defaultThreads, "number of worker threads")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(errOut, usageLine)
		return Config{}, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	t := loadTuning(env, errOut)

	cfg := Config{
		Threads:   defaultThreads,
		AuditPath: auditPathStderr,
	}

	if t.DefaultThreads != nil {
		cfg.Threads = *t.DefaultThreads
	}

	if t.AuditLogPath != nil {
		cfg.AuditPath = *t.AuditLogPath
	}

	if fs.Changed("threads") {
		cfg.Threads = *threads
	}

	positional := fs.Args()
	if len(positional) != 1 {
		fmt.Fprintln(errOut, usageLine)
		return Config{}, fmt.Errorf("%w: expected exactly one PORT argument, got %d", ErrUsage, len(positional))
	}

	port, err := strconv.Atoi(positional[0])
	if err != nil || port < minPort || port > maxPort {
		fmt.Fprintf(errOut, "Invalid port: %s\n", positional[0])
		return Config{}, fmt.Errorf("%w: invalid port %q", ErrUsage, positional[0])
	}

	cfg.Port = port

	if cfg.Threads <= 0 {
		fmt.Fprintln(errOut, usageLine)
		return Config{}, fmt.Errorf("%w: threads must be > 0, got %d", ErrUsage, cfg.Threads)
	}

	return cfg, nil
}

const usageLine = "Usage: httpserver [-t THREADS] PORT"

// loadTuning reads the optional JSONC tuning file. Its absence is not an
// error; a present-but-invalid file is logged to errOut and then ignored,
// since the file only ever supplies optional defaults.
func loadTuning(env map[string]string, errOut io.Writer) tuning {
	path := env[tuningFileEnv]
	if path == "" {
		path = defaultTuning
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return tuning{}
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		fmt.Fprintf(errOut, "warning: ignoring invalid tuning file %s: %v\n", path, err)
		return tuning{}
	}

	var t tuning

	if err := json.Unmarshal(standardized, &t); err != nil {
		fmt.Fprintf(errOut, "warning: ignoring invalid tuning file %s: %v\n", path, err)
		return tuning{}
	}

	return t
}
