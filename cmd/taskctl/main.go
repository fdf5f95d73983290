package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/nhle/taskapi/internal/app"
	"github.com/nhle/taskapi/internal/client"
	"github.com/nhle/taskapi/internal/credential"
	"github.com/nhle/taskapi/internal/model"
)

var version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	cfg    *model.AppConfig
	logout bool
}

func parseArgs(args []string, stdout, stderr io.Writer) (*options, error) {
	fs := pflag.NewFlagSet("taskctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printHelp(stdout) }
	configPath := fs.String("config", model.DefaultConfigPath(), "config file")
	fs.String("server", "", "task server URL")
	fs.String("user", "", "username to sign in as")
	logout := fs.Bool("logout", false, "forget the remembered login and exit")
	showVersion := fs.Bool("version", false, "show version")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *showVersion {
		fmt.Fprintf(stdout, "taskctl v%s\n", version)
		return nil, pflag.ErrHelp
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	cfg, err := model.LoadConfig(*configPath, fs)
	if err != nil {
		return nil, err
	}
	if cfg.Client.ServerURL == "" {
		return nil, errors.New("no server URL: pass --server or set client.server_url")
	}
	return &options{cfg: cfg, logout: *logout}, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stdout, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	serverURL := opts.cfg.Client.ServerURL

	// A missing keyring only disables remembering logins.
	var creds app.Credentials
	if store, err := credential.Open(); err != nil {
		fmt.Fprintf(stderr, "Warning: credential store unavailable: %v\n", err)
	} else {
		creds = store
	}

	if opts.logout {
		if creds == nil {
			return 1
		}
		if err := creds.Delete(serverURL); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Forgot login for %s\n", serverURL)
		return 0
	}

	m := app.New(app.Options{
		ServerURL: serverURL,
		Username:  opts.cfg.Client.Username,
		Dial: func(username, password string) app.TaskClient {
			return client.New(serverURL, username, password)
		},
		Credentials:     creds,
		RefreshInterval: opts.cfg.Client.RefreshInterval,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `taskctl - terminal client for a taskapi server

Usage:
  taskctl [flags]

Flags:
  --config <path>    Config file (default ~/.config/taskapi/config.yaml)
  --server <url>     Task server URL (client.server_url)
  --user <name>      Username to sign in as (client.username)
  --logout           Forget the remembered login for the server and exit
  --version          Show version

Keys:
  j/k        move cursor        J/K   move task down/up
  n          new task           e     edit task
  x          toggle done        d     delete task
  f          cycle filter       r     refresh
  :          command palette    ?     help
  L          log out            q     quit
`)
}
