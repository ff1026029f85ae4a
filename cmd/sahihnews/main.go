package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/sahihnews/sahihnews/internal/auth"
	"github.com/sahihnews/sahihnews/internal/consensus"
	"github.com/sahihnews/sahihnews/internal/db"
	"github.com/sahihnews/sahihnews/internal/litedb"
	"github.com/sahihnews/sahihnews/internal/models"
	"github.com/sahihnews/sahihnews/internal/routes"
	"github.com/sahihnews/sahihnews/internal/service"
	"github.com/sahihnews/sahihnews/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

const usage = `Usage:
	- start
	- migrate [up/down/drop]
`

func main() {
	if len(os.Args) == 1 {
		fmt.Println(usage)
		return
	}
	envConfig, err := models.ReadEnvConfig()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	switch os.Args[1] {
	case "start":
		server := SahihServer{EnvConfig: envConfig}
		server.Setup()
		server.Run()
	case "migrate":
		if len(os.Args) < 3 {
			fmt.Println(usage)
			return
		}
		if err := migrate(&envConfig, os.Args[2]); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Println("Done")
	default:
		fmt.Println(usage)
	}
}

func migrate(envConfig *models.EnvConfig, direction string) error {
	if path, ok := envConfig.SQLitePath(); ok {
		if direction != "up" {
			return fmt.Errorf("sqlite databases only support migrate up, remove %s to start over", path)
		}
		// Opening the database applies the schema.
		sdb, err := litedb.NewDB(path)
		if err != nil {
			return err
		}
		return sdb.Close()
	}
	switch direction {
	case "up":
		return db.MigrateUp(envConfig.MigrationsURL, envConfig.DatabaseURL)
	case "down":
		return db.MigrateDown(envConfig.MigrationsURL, envConfig.DatabaseURL)
	case "drop":
		return db.Drop(envConfig.MigrationsURL, envConfig.DatabaseURL)
	}
	return fmt.Errorf("unknown migration %q\n%s", direction, usage)
}

type store interface {
	models.Store
	Close() error
}

type SahihServer struct {
	models.EnvConfig
	addr            string
	logger          zerolog.Logger
	router          chi.Router
	httpServer      *http.Server
	database        store
	engine          *service.Engine
	verifier        *auth.Verifier
	shutdownTracing func(context.Context) error
}

func (server *SahihServer) setupLogger() {
	var writer io.Writer
	if server.Debug {
		writer = zerolog.ConsoleWriter{Out: os.Stdout}
	} else {
		writer = os.Stdout
	}
	log := zerolog.New(writer).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if server.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	server.logger = log
}
func (server *SahihServer) setupTracing() {
	shutdown, err := telemetry.Setup(context.Background(), server.OtelEndpoint)
	if err != nil {
		server.logger.Fatal().Err(err).Msg("Setting up tracing")
	}
	server.shutdownTracing = shutdown
}
func (server *SahihServer) setupDB() {
	if path, ok := server.SQLitePath(); ok {
		sdb, err := litedb.NewDB(path)
		if err != nil {
			server.logger.Fatal().AnErr("Opening sqlite db", err).Send()
		}
		server.logger.Info().Str("path", path).Msg("Using sqlite store")
		server.database = sdb
		return
	}
	err := db.MigrateUp(server.MigrationsURL, server.DatabaseURL)
	if err != nil {
		server.logger.Fatal().Err(err).Send()
	}
	sdb, err := db.Connect(context.Background(), &server.EnvConfig)
	if err != nil {
		server.logger.Fatal().AnErr("Connecting to db", err).Send()
	}
	server.database = sdb
}
func (server *SahihServer) setupEngine() {
	policy, err := consensus.LoadPolicy(server.PolicyFile)
	if err != nil {
		server.logger.Fatal().Err(err).Msg("Loading policy")
	}
	server.engine = service.NewEngine(server.database, policy, server.logger)
}
func (server *SahihServer) setupAuth() {
	verifier, err := auth.NewVerifier(&server.EnvConfig)
	if err != nil {
		server.logger.Fatal().Err(err).Send()
	}
	server.verifier = verifier
}
func (server *SahihServer) setupRouter() {
	server.router = routes.NewRouter(server.engine, server.verifier, server.logger)
}
func (server *SahihServer) setupHttpServer() {
	server.addr = fmt.Sprintf(":%s", server.EnvConfig.Port)
	server.httpServer = &http.Server{
		Addr:         server.addr,
		Handler:      server.router,
		ReadTimeout:  1 * time.Minute,
		WriteTimeout: 1 * time.Minute,
	}
}
func (server *SahihServer) Setup() {
	server.setupLogger()
	server.setupTracing()
	server.setupDB()
	server.setupEngine()
	server.setupAuth()
	server.setupRouter()
	server.setupHttpServer()
}
func (server *SahihServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.httpServer.Shutdown(ctx); err != nil {
		server.logger.Error().
			Err(err).
			Msg("Error shutting down")
	}
	if err := server.database.Close(); err != nil {
		server.logger.Error().Err(err).Msg("Error closing db")
	}
	if err := server.shutdownTracing(ctx); err != nil {
		server.logger.Error().Err(err).Msg("Error flushing traces")
	}
}
func (server *SahihServer) Run() {
	server.logger.Info().Str("server_address", server.addr).Msg("Server is starting")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := server.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		stop() // Stop listening for signals
		server.logger.Info().Msg("Shutting down gracefully")
		server.Shutdown()
		return nil
	})
	server.logger.Info().Msg("Ready")

	if err := g.Wait(); err != nil {
		server.logger.Fatal().Err(err).Msg("Server failed")
	}
}
