package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/omnibot-dev/omnibot/bot"
	_ "github.com/omnibot-dev/omnibot/bot/alisa"
	_ "github.com/omnibot-dev/omnibot/bot/marusia"
	_ "github.com/omnibot-dev/omnibot/bot/sber"
	_ "github.com/omnibot-dev/omnibot/bot/telegram"
	_ "github.com/omnibot-dev/omnibot/bot/viber"
	_ "github.com/omnibot-dev/omnibot/bot/vk"
	"github.com/omnibot-dev/omnibot/log"
	"github.com/omnibot-dev/omnibot/nlu"
	"github.com/omnibot-dev/omnibot/store"
)

func main() {

	app := &cli.App{
		Name:  "omnibot",
		Usage: "multi-platform webhook bot service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to YAML config file",
				EnvVars: []string{"OMNIBOT_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address (overrides config)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (overrides config)",
			},
		},
		Action: serve,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("omnibot", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Listen = addr
	}
	if level := c.String("log-level"); level != "" {
		cfg.LogLevel = level
	}

	verbose, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(log.Console(os.Stderr, verbose))
	slog.SetDefault(logger)

	var users store.Users
	if cfg.Store != "" {
		users, err = store.NewSqlite(cfg.Store)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("store: no DSN configured; state is in-memory only")
		users = store.NewMemory()
	}

	opts := []bot.EngineOption{
		bot.WithLogger(logger),
		bot.WithStore(users),
		bot.WithFallback(fallback),
	}
	if cfg.Platform != "" {
		opts = append(opts, bot.WithPlatform(bot.Type(cfg.Platform)))
	}
	for tag, meta := range cfg.Platforms {
		opts = append(opts, bot.WithPlatformMeta(bot.Type(tag), meta))
	}

	engine := bot.NewEngine(opts...)
	registerCommands(engine.Commands())

	ctx, stop := signal.NotifyContext(c.Context,
		syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	return newServer(logger, engine, cfg.Listen).serve(ctx)
}

// registerCommands installs the built-in dialog. Real deployments replace
// this with their own skill logic against the same engine API.
func registerCommands(commands *bot.Commands) {

	commands.Add("start", []string{"привет", "начать", "старт", "start"},
		func(c *bot.Controller) {
			c.Text = "Привет! Скажите «помощь», чтобы узнать, что я умею."
			c.AddButton(bot.Button{Title: "помощь", Hide: true})
		})

	commands.Add("help", []string{"помощь", "что ты умеешь", "help"},
		func(c *bot.Controller) {
			c.Text = "Я отвечаю на приветствие и показываю это сообщение."
		})

	commands.AddPattern("bye", []string{`(^|\P{L})(пока|до свидания)($|\P{L})`},
		func(c *bot.Controller) {
			c.Text = "До свидания!"
			c.EndSession = true
		})
}

func fallback(c *bot.Controller) {
	if nlu.IsSayTrue(c.Command) {
		c.Text = "Хорошо."
		return
	}
	c.Text = "Я вас не понял. Скажите «помощь»."
}
