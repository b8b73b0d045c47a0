package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/wabridge/wabridge/internal/config"
	"github.com/wabridge/wabridge/internal/daemon"
	"github.com/wabridge/wabridge/internal/session"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	listenFlag := flag.String("listen", "", "HTTP listen address (overrides config)")
	noArchive := flag.Bool("no-archive", false, "disable the local message archive")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		cfg = config.Default()
	}
	listen := cfg.ListenAddr
	if *listenFlag != "" {
		listen = *listenFlag
	}

	app := fx.New(
		daemon.Module(daemon.Params{
			SessionName:    sessionName,
			ListenAddr:     listen,
			ArchiveEnabled: cfg.ArchiveEnabled && !*noArchive,
		}),
	)

	app.Run()
}
