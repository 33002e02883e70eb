package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dmitrijs2005/aliasvault/internal/client/client"
	"github.com/dmitrijs2005/aliasvault/internal/common"
)

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if m := a.mode(); m != "" {
		s = s + string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func describeError(err error) string {
	if latest, ok := client.IsConflict(err); ok {
		return fmt.Sprintf("vault was changed on another device (revision %d), run 'pull' and merge before pushing", latest)
	}
	switch {
	case errors.Is(err, common.ErrRefreshTokenExpired), errors.Is(err, common.ErrTokenExpired):
		return "session expired, log in again"
	case errors.Is(err, common.ErrVaultOutdated):
		return "this client is outdated, update it before pushing"
	case errors.Is(err, errNotLoggedIn):
		return "not logged in, use 'login' or 'register'"
	}
	return err.Error()
}

// Root greets the user, restores the last username, asks for a login and
// then runs the REPL on stdin until the user exits.
func (a *App) Root(ctx context.Context) {

	log.Println("Welcome to AliasVault CLI (type 'help' for commands)")

	if userName, err := a.authService.Resume(ctx); err == nil {
		a.userName = userName
		log.Printf("Last user: %s", userName)
	}

	if err := a.Login(ctx); err != nil {
		printlnFn("Error:", describeError(err))
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(watchCtx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

var _ execIface = (*App)(nil)
