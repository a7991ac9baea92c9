// Command httpserver is a small concurrent HTTP/1.1 file server: GET and
// PUT over TCP, backed by the local filesystem, serialized per-URI by a
// multi-policy reader/writer lock.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/foxhollow/httpserver/internal/audit"
	"github.com/foxhollow/httpserver/internal/config"
	"github.com/foxhollow/httpserver/internal/fs"
	"github.com/foxhollow/httpserver/internal/rwlock"
	"github.com/foxhollow/httpserver/internal/server"
)

func main() {
	environ := os.Environ()
	env := make(map[string]string, len(environ))

	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	os.Exit(run(os.Args[1:], env))
}

func run(args []string, env map[string]string) int {
	cfg, err := config.Parse(args, env, os.Stderr)
	if err != nil {
		return 1
	}

	auditOut := os.Stderr

	if cfg.AuditPath != "-" {
		f, err := os.OpenFile(cfg.AuditPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: opening audit log: %v\n", err)
			return 1
		}

		auditOut = f
		defer f.Close()
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	srv, err := server.New(server.Options{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Threads: cfg.Threads,
		Root:    wd,
		Policy:  rwlock.ReaderPriority,
		FS:      fs.NewReal(),
		Audit:   audit.New(auditOut),
		Log:     log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	return 0
}
