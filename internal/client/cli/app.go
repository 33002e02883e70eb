package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/buildinfo"
	"github.com/dmitrijs2005/aliasvault/internal/client/client"
	"github.com/dmitrijs2005/aliasvault/internal/client/config"
	"github.com/dmitrijs2005/aliasvault/internal/client/repositories/vault"
	"github.com/dmitrijs2005/aliasvault/internal/client/services"
	"github.com/dmitrijs2005/aliasvault/internal/client/utils"
	"github.com/dmitrijs2005/aliasvault/internal/filex"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

const clientName = "aliasvault-cli"

type App struct {
	config       *config.Config
	authService  services.AuthService
	vaultService services.VaultService
	session      *services.Session
	userName     string
	reader       *bufio.Reader

	mu   sync.RWMutex
	Mode Mode
}

// newAPIClient picks the transport named in the config.
func newAPIClient(c *config.Config) (client.API, error) {
	name := clientName + "/" + buildinfo.Version()
	switch c.Transport {
	case config.TransportGRPC:
		gc, err := client.NewGRPCClient(c.GRPCAddr, name)
		if err != nil {
			return nil, err
		}
		return gc, nil
	case config.TransportREST, "":
		return client.NewRESTClient(c.ServerURL, name, c.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", c.Transport)
	}
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	dbPath, err := filex.EnsureParentDir(c.DBPath)
	if err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, dbPath)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	apiClient, err := newAPIClient(c)
	if err != nil {
		db.Close()
		return nil, err
	}

	as := services.NewAuthService(apiClient, db)
	vs := services.NewVaultService(apiClient, vault.NewSQLiteRepository(db), utils.NewDownloader(c.RequestTimeout), c.VaultVersion, clientName)

	return &App{config: c, authService: as, vaultService: vs, reader: bufio.NewReader(os.Stdin)}, nil
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Mode
}

func (a *App) Run(ctx context.Context) {
	defer a.authService.Close(ctx)
	defer a.endSession()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

func (a *App) startSession(s *services.Session, mode Mode) {
	a.endSession()
	a.session = s
	a.userName = s.Username
	a.setMode(mode)
}

func (a *App) endSession() {
	a.session.Wipe()
	a.session = nil
}

// requireOnline reports whether commands that talk to the server may run.
// A session unlocked offline has no token pair, so it needs a fresh login
// even after the server comes back.
func (a *App) requireOnline() error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	if a.session.Offline {
		return fmt.Errorf("%w: vault was unlocked offline, log in again", client.ErrUnavailable)
	}
	if a.mode() != ModeOnline {
		return client.ErrUnavailable
	}
	return nil
}

var errNotLoggedIn = errors.New("not logged in")

// StartOnlineStatusWatcher polls the status endpoint while a session is open
// and flips Mode between online and offline.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if a.mode() == "" || a.mode() == ModeDisabled {
				continue
			}
			a.checkOnline(ctx)

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := a.authService.Status(ctx)
	if errors.Is(err, client.ErrUnavailable) {
		a.setMode(ModeOffline)
		return
	}
	// any answer from the server, including 401, means it is reachable
	a.setMode(ModeOnline)
}
