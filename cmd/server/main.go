package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/gasfornuis/kitchenchat-auth/auth"
	"github.com/gasfornuis/kitchenchat-auth/internal/config"
	"github.com/gasfornuis/kitchenchat-auth/internal/logutil"
	"github.com/gasfornuis/kitchenchat-auth/internal/store/sqlite"
	"github.com/gasfornuis/kitchenchat-auth/password"
	"github.com/gasfornuis/kitchenchat-auth/server"
	"github.com/gasfornuis/kitchenchat-auth/sessions"
	"github.com/gasfornuis/kitchenchat-auth/throttle"
)

const sessionPurgeInterval = time.Hour

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logutil.Setup(c.GetEnv())
	displayAppname(c.GetAppName())

	store, err := sqlite.Open(c.GetStorePath())
	if err != nil {
		return fmt.Errorf("sqlite.Open: %w", err)
	}
	defer store.Close()

	sessionMgr, err := sessions.NewManager(store.Sessions(), c.GetSessionTTL())
	if err != nil {
		return fmt.Errorf("sessions.NewManager: %w", err)
	}

	th, err := throttle.New(store.Blocks(), c.GetLockoutSchedule())
	if err != nil {
		return fmt.Errorf("throttle.New: %w", err)
	}

	authService, err := auth.NewService(
		auth.Repos{Accounts: store.Accounts()},
		password.NewHasher(c.GetBcryptCost()),
		sessionMgr,
		th,
	)
	if err != nil {
		return fmt.Errorf("auth.NewService: %w", err)
	}

	srv, err := server.New(c, authService, th)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go purgeExpiredSessions(janitorCtx, sessionMgr)

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func purgeExpiredSessions(ctx context.Context, sessionMgr *sessions.Manager) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessionMgr.PurgeExpired(ctx); err != nil {
				log.Printf("session purge failed: %s\n", err)
			}
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
