package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/nhle/taskapi/internal/auth"
	"github.com/nhle/taskapi/internal/logger"
	"github.com/nhle/taskapi/internal/model"
	"github.com/nhle/taskapi/internal/server"
	"github.com/nhle/taskapi/internal/store"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(ctx, args, stderr)
	case "migrate":
		err = runMigrate(ctx, args, stdout, stderr)
	case "user":
		err = runUser(ctx, args, stdin, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "taskapi v%s\n", version)
	case "help", "-h", "--help":
		printHelp(stdout)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		printHelp(stderr)
		return 2
	}

	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `taskapi - task tracking REST server

Usage:
  taskapi [serve]                 Start the HTTP server (default)
  taskapi migrate                 Apply pending database migrations
  taskapi user add <name>         Create a user
  taskapi user passwd <name>      Change a user's password
  taskapi user rm <name>          Delete a user
  taskapi user list               List users
  taskapi version                 Show version

Common flags:
  --config <path>     Config file (default ~/.config/taskapi/config.yaml)
  --data-dir <dir>    Data directory
  --db <path>         Database file
  --driver <name>     sqlite (pure Go) or sqlite3 (cgo)
  --log-level <lvl>   debug, info, warn, error

Passwords for "user add" and "user passwd" come from --password,
TASKAPI_PASSWORD or the first line of stdin.
`)
}

// newFlagSet returns a FlagSet carrying the flags every command shares.
func newFlagSet(name string, stderr io.Writer) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", model.DefaultConfigPath(), "config file")
	fs.String("data-dir", "", "data directory")
	fs.String("db", "", "database file")
	fs.String("driver", "", "sql driver: sqlite or sqlite3")
	fs.String("log-level", "", "log level")
	return fs, configPath
}

// load parses args into fs and resolves the configuration and logger.
func load(fs *pflag.FlagSet, configPath *string, args []string) (*model.AppConfig, logger.Logger, error) {
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	cfg, err := model.LoadConfig(*configPath, fs)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(logger.Config{
		Level:        logger.ParseLevel(cfg.Log.Level),
		IsProduction: cfg.Log.Production,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return cfg, log, nil
}

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs, configPath := newFlagSet("serve", stderr)
	fs.String("addr", "", "listen address")
	cfg, log, err := load(fs, configPath, args)
	if err != nil {
		return err
	}
	defer log.Close()

	log.Info("taskapi starting", "version", version, "addr", cfg.Server.Addr)

	srv, err := server.New(cfg, log)
	if err != nil {
		return err
	}
	defer srv.Close()

	if err := srv.Run(ctx); err != nil {
		return err
	}
	log.Info("taskapi stopped")
	return nil
}

func runMigrate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("migrate", stderr)
	cfg, log, err := load(fs, configPath, args)
	if err != nil {
		return err
	}
	defer log.Close()

	srv, err := server.New(cfg, log, store.WithoutMigrations())
	if err != nil {
		return err
	}
	defer srv.Close()

	results, err := srv.Store().Migrate(ctx)
	for _, r := range results {
		status := "OK"
		if r.Error != nil {
			status = "FAIL"
		}
		fmt.Fprintf(stdout, "%-4s %s (%s)\n", status, filepath.Base(r.Source.Path), r.Duration.Round(time.Millisecond))
	}
	if err != nil {
		return err
	}

	v, err := srv.Store().SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(stdout, "no pending migrations")
	}
	fmt.Fprintf(stdout, "schema version %d\n", v)
	return nil
}

func runUser(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("user", stderr)
	passwordFlag := fs.String("password", "", "password for add and passwd")
	cfg, log, err := load(fs, configPath, args)
	if err != nil {
		return err
	}
	defer log.Close()

	rest := fs.Args()
	if len(rest) == 0 {
		return errors.New("usage: taskapi user add|passwd|rm|list [name]")
	}
	action, rest := rest[0], rest[1:]

	needName := action != "list"
	if needName && len(rest) != 1 {
		return fmt.Errorf("usage: taskapi user %s <name>", action)
	}

	srv, err := server.New(cfg, log)
	if err != nil {
		return err
	}
	defer srv.Close()
	users := srv.Store()

	switch action {
	case "add", "passwd":
		password, err := readPassword(*passwordFlag, stdin)
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(password, cfg.Auth.BcryptCost)
		if err != nil {
			return err
		}
		if action == "add" {
			if _, err := users.CreateUser(ctx, rest[0], hash); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "user %s created\n", rest[0])
			return nil
		}
		if err := users.SetUserPassword(ctx, rest[0], hash); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "password for %s updated\n", rest[0])
	case "rm":
		if err := users.DeleteUser(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "user %s deleted\n", rest[0])
	case "list":
		list, err := users.ListUsers(ctx)
		if err != nil {
			return err
		}
		for _, u := range list {
			fmt.Fprintf(stdout, "%s\t%s\n", u.Username, u.CreatedAt.Format("2006-01-02 15:04"))
		}
	default:
		return fmt.Errorf("unknown user command %q", action)
	}
	return nil
}

func readPassword(flagValue string, stdin io.Reader) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv(model.EnvPrefix + "_PASSWORD"); env != "" {
		return env, nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	return password, nil
}
