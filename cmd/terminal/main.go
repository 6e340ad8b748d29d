package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/zeusync/contentpack/internal/client/terminal"
	"github.com/zeusync/contentpack/internal/content/computer"
	"github.com/zeusync/contentpack/internal/content/jukebox"
	"github.com/zeusync/contentpack/internal/core/i18n"
	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/protocol"
	"github.com/zeusync/contentpack/sdk/go/client"
)

func main() {
	def := client.DefaultConfig()
	addr := flag.String("addr", def.ServerAddr, "server address")
	transport := flag.String("transport", def.Transport, "websocket or quic")
	insecure := flag.Bool("insecure", false, "accept any quic server certificate")
	name := flag.String("name", def.Name, "player name")
	locale := flag.String("locale", def.Locale, "display locale")
	token := flag.String("token", "", "admin token")
	logFile := flag.String("log", "", "write logs to this file")
	flag.Parse()

	if err := run(*addr, *transport, *insecure, *name, *locale, *token, *logFile); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(addr, transport string, insecure bool, name, locale, token, logFile string) error {
	var logger log.Log = log.NewNop()
	if logFile != "" {
		l, err := log.NewWithOptions(log.Options{Level: log.LevelDebug, Encoding: "json", OutputPaths: []string{logFile}})
		if err != nil {
			return err
		}
		defer func() { _ = l.Sync() }()
		logger = l
	}

	catalog, err := i18n.LoadEmbedded()
	if err != nil {
		return err
	}
	messages := protocol.NewRegistry()
	if err = errors.Join(jukebox.RegisterMessages(messages), computer.RegisterMessages(messages)); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := client.DefaultConfig()
	cfg.ServerAddr = addr
	cfg.Transport = transport
	cfg.InsecureSkipVerify = insecure
	cfg.Name = name
	cfg.Locale = locale
	cfg.Token = token
	c := client.New(cfg, messages, logger)
	if err = c.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = c.Disconnect() }()

	entities, err := c.ListEntities(ctx)
	if err != nil {
		return err
	}
	targets := terminal.Targets(entities)

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err = screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	app := terminal.New(screen, c, catalog.Printer(locale), targets, logger)
	for _, key := range []string{string(computer.UiKey), string(jukebox.UiKey)} {
		c.OnState(key, func(entity uint64, raw json.RawMessage) { app.PushState(entity, key, raw) })
	}
	c.OnClosed(app.PushClosed)
	c.OnEvent(client.EventTypeDisconnected, func(client.Event) { app.Stop() })

	for _, t := range targets {
		if err = c.Open(ctx, t.Entity, t.Key); err != nil {
			logger.Warn("failed to open window", log.Uint64("entity", t.Entity), log.String("key", t.Key), log.Error(err))
		}
	}
	return app.Run(ctx)
}
