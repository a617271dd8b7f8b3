package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"peerdesk/contract"
	"peerdesk/observability"
	"peerdesk/repositories"
	"peerdesk/runtime"
	"peerdesk/runtime/workers"
	"peerdesk/session"
	"peerdesk/sink"
	"peerdesk/transport"
	"peerdesk/workspace"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the session lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the transport and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	repository := repositories.NewHistoryRepository(db, log, config.LimitChats)

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Session & Workspace
	hosting := config.JoinURL == ""
	code := config.SessionCode
	if hosting && code == "" {
		code = session.GenerateCode()
	}

	index, err := workspace.NewIndex()
	if err != nil {
		return fmt.Errorf("search index failed to open: %w", err)
	}
	defer func() { _ = index.Close() }()
	store := workspace.NewStore(log).WithIndex(index)

	var sess *session.Session
	var endpoint contract.Endpoint
	var host *transport.WebsocketHost
	if hosting {
		sess = session.NewHost(log, code, config.PeerName)
		// A reopened session picks up its last persisted workspace
		if snap, err := repository.LatestSnapshot(code); err != nil {
			return fmt.Errorf("snapshot recovery failed: %w", err)
		} else if snap != nil {
			store.Adopt(*snap)
			log.Info("Workspace restored from disk", "files", len(snap.Files))
		}
		host = transport.NewWebsocketHost(log, code, config.ListenAddr)
		endpoint = host
	} else {
		if code == "" {
			return fmt.Errorf("SESSION_CODE is required to join a session")
		}
		sess = session.NewGuest(log, code, uuid.NewString(), config.PeerName)
		guestEndpoint, _, err := transport.DialWebsocket(ctx, log, config.JoinURL, code, sess.SelfID())
		if err != nil {
			return fmt.Errorf("failed to join session %s: %w", code, err)
		}
		endpoint = guestEndpoint
	}

	// 5. Engine & Supervision
	audit := observability.NewAudit()
	engine := runtime.NewEngine(log, sess, store, endpoint, audit, runtime.Options{})

	fanout := workers.NewEventFanout(log, engine.Events()).
		Add(sink.NewHistorySink(repository, log, code))

	sup := workers.NewSupervisor(log)
	sup.Add(
		engine,
		fanout,
		workers.NewTelemetryWorker(log, config.TelemetryInterval, audit),
	)
	if hosting {
		sup.Add(workers.NewSnapshotter(log, config.SnapshotInterval, code, engine.Snapshot, repository))
	}

	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 6. Transport
	errChan := make(chan error, 1)
	if hosting {
		banner := color.New(color.BgBlack, color.FgGreen).
			Render(fmt.Sprintf("  Session code: %s  ", code))
		fmt.Println(banner)
		go func() {
			if err := host.Serve(); err != nil {
				errChan <- fmt.Errorf("session server error: %w", err)
			}
		}()
	}

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	_ = endpoint.Close()
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}
