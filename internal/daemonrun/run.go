// Package daemonrun hosts the daemon process runtime loop: logger
// setup, daemon construction, IPC serving, and signal-driven
// shutdown. The CLI's daemon run command is a thin wrapper over Run.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"murmur/internal/config"
	"murmur/internal/daemon"
	"murmur/internal/ipc"
	"murmur/internal/logging"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the murmur daemon runtime loop and blocks until the
// context is canceled, a termination signal arrives, or a client
// requests shutdown over IPC.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare state directories: %w", err)
	}

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", cfg.LogFilePath()},
		ErrorOutputPaths: []string{"stderr", cfg.LogFilePath()},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := writePIDFile(cfg.PIDPath()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(cfg.PIDPath())

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	defer d.Stop()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger, cancel)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	logger.Info("murmur daemon ready",
		logging.String(logging.FieldEventType, "daemon_ready"),
		logging.String("socket", cfg.SocketPath()))

	<-signalCtx.Done()
	logger.Info("murmur daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
