/*
Tawnybot counts the messages people send in a Discord guild and hands out
level roles as those counts cross thresholds the guild's operators configure.

It takes in no flags but multiple environment variables, listed on the config
struct below. Operators configure levels by typing commands in chat:

	!tawnybot set level <level> <target> <role name>
	!tawnybot remove level <level>
	!tawnybot list levels

It's backed by a SQLite DB, but does not require CGO to compile. There are migrations
in the repo that are run on startup before the bot connects to the gateway. A small
HTTP server exposes health, prometheus metrics and the configured levels.
*/
package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap/zapcore"
	_ "modernc.org/sqlite"

	"github.com/tawnybot/tawnybot/internal/commands"
	"github.com/tawnybot/tawnybot/internal/core"
	"github.com/tawnybot/tawnybot/internal/core/db"
	"github.com/tawnybot/tawnybot/internal/discord"
	"github.com/tawnybot/tawnybot/internal/discserv"
	"github.com/tawnybot/tawnybot/internal/logging"
	"github.com/tawnybot/tawnybot/internal/metrics"
)

//go:embed migrate/*
var f embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	l, err := logging.NewLogger(logging.Config{Debug: cfg.Debug, Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("error creating logger: %s", err)
	}
	defer func() {
		// Syncing stderr fails on some platforms, nothing to be done about it
		_ = l.Sync()
	}()
	l.Infow("parsed config", "config", cfg)

	// Connect to the database
	sqlDB, err := setupDB(ctx, cfg)
	if err != nil {
		l.Fatalf("error opening db: %s", err)
	}
	defer sqlDB.Close()
	d := db.New(sqlDB)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	session, err := discord.NewSession(discord.ClientConfig{Token: cfg.DiscordToken})
	if err != nil {
		l.Fatalf("error creating discord session: %s", err)
	}
	dCli := discord.NewClient(session, l.Named("discord_client"))

	cr := core.New(core.Deps{
		DB:        d,
		Directory: dCli,
		Roles:     dCli,
		Notifier:  dCli,
		Logger:    l.Named("core"),
		Metrics:   m,
	}, core.Config{AnnounceLevelUps: cfg.AnnounceLevelUps})

	cmds := commands.New(
		commands.Config{
			Prefix:             cfg.CommandPrefix,
			CreateMissingRoles: cfg.CreateMissingRoles,
		},
		cr.Guilds(),
		cr,
		dCli,
		dCli,
		l.Named("commands"),
		m,
	)

	discord.NewRouter(cr, cmds, cr.Guilds(), dCli, l.Named("discord")).Register(session)
	if err := session.Open(); err != nil {
		l.Fatalf("error connecting to discord: %s", err)
	}
	defer session.Close()

	s := discserv.New(l.Named("discserv"), discserv.Config{Port: cfg.Port}, cr.Guilds(), reg)
	go func() {
		l.Infof("serving on port %d", cfg.Port)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Errorw("error while serving", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	l.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		l.Errorw("error shutting down server", "err", err)
	}
}

type config struct {
	// Server
	Port int `env:"PORT,default=8080"`

	// Database
	DBPath string `env:"DB_PATH,default=tawnybot.sqlite"`

	// Discord stuffs
	DiscordToken string `env:"DISCORD_TOKEN,required"`

	// Leveling
	CommandPrefix      string `env:"COMMAND_PREFIX,default=!tawnybot"`
	AnnounceLevelUps   bool   `env:"ANNOUNCE_LEVEL_UPS,default=true"`
	CreateMissingRoles bool   `env:"CREATE_MISSING_ROLES,default=false"`

	// Logging
	Debug    bool   `env:"DEBUG,default=false"`
	LogLevel string `env:"LOG_LEVEL"`
}

func (c config) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("port", c.Port)
	enc.AddString("db_path", c.DBPath)
	enc.AddString("command_prefix", c.CommandPrefix)
	enc.AddBool("announce_level_ups", c.AnnounceLevelUps)
	enc.AddBool("create_missing_roles", c.CreateMissingRoles)
	enc.AddBool("debug", c.Debug)
	enc.AddString("log_level", c.LogLevel)

	return nil
}

// Connects to the db and migrates it
func setupDB(ctx context.Context, c config) (*sqlx.DB, error) {
	u, err := url.Parse(c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error parsing db path: %s", err)
	}
	q := u.Query()
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()

	sqlDB, err := sqlx.Open("sqlite", u.String())
	if err != nil {
		return nil, fmt.Errorf("error opening db: %s", err)
	}
	// sqlite only has one writer anyway
	sqlDB.SetMaxOpenConns(1)

	migrations, err := fs.Sub(f, "migrate")
	if err != nil {
		return nil, fmt.Errorf("error reading migration dir: %s", err)
	}
	if err := db.Migrate(ctx, sqlDB, migrations); err != nil {
		return nil, err
	}

	return sqlDB, nil
}
