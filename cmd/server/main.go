/*
main.go - Application entry point

STARTUP SEQUENCE:
  1. Load .env (if present) and configuration
  2. Select the storage backend from storage_mode - the one and only place
     that branches on guest vs. remote
  3. Build repositories and the engine for the configured user
  4. Initial full reload (also seeds default categories/account)
  5. Start the schedule runner (materializes due recurring transactions)
  6. Start the HTTP server with graceful shutdown

FLAGS:
  -config  Path to a YAML config file (optional; env vars work alone)

ENVIRONMENT:
  LEDGER_STORAGE_MODE  guest | remote
  LEDGER_DATA_FILE     guest-mode JSON document path
  LEDGER_DRIVER        sqlite3 | postgres
  LEDGER_DSN           remote-mode data source name
  LEDGER_USER_ID       remote-mode owner identity
  LEDGER_PORT          HTTP port
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/ledger-engine/api"
	"github.com/warp/ledger-engine/config"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/store/local"
	"github.com/warp/ledger-engine/store/sqlremote"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// .env is optional; missing is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	backend, closeBackend, userID, err := openBackend(cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer closeBackend()

	repos := ledger.NewRepositories(backend, userID)
	engine := ledger.NewEngine(repos)

	if err := engine.Reload(context.Background()); err != nil {
		log.Fatalf("initial load: %v", err)
	}

	runner := api.NewScheduleRunner(engine)
	runner.Start()
	defer runner.Stop()

	router := api.NewRouter(api.NewHandler(engine))
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		log.Printf("ledger engine listening on :%d (%s mode, user %s)", cfg.Port, cfg.Mode, userID)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// openBackend is the single mode branch in the program.
func openBackend(cfg config.Config) (ledger.Backend, func(), string, error) {
	switch cfg.Mode {
	case config.ModeRemote:
		s, err := sqlremote.New(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, nil, "", err
		}
		return s, func() { s.Close() }, cfg.UserID, nil
	default:
		s, err := local.New(cfg.DataFile)
		if err != nil {
			return nil, nil, "", err
		}
		return s, func() {}, ledger.GuestUserID, nil
	}
}
