package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Pull(ctx context.Context) error
	Push(ctx context.Context, path string) error
	Export(ctx context.Context, path string) error
	History(ctx context.Context, since int64) error
	ChangePassword(ctx context.Context) error
	Status(ctx context.Context) error
	EnableTwoFactor(ctx context.Context) error
	DisableTwoFactor(ctx context.Context) error
	Archive(ctx context.Context, revision int64) error
}

const (
	helpLoggedOut = "Available commands: register, login, exit"
	helpLoggedIn  = "Available commands: pull, push <file>, export <file>, history [since], passwd, status, 2fa enable|disable, archive <revision>, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the AliasVault CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Errors returned by handlers are
// printed and the loop continues. The loop exits on scanner EOF or when the
// user types "exit" or "quit".
//
//	Not logged in:
//	  - help             show available commands
//	  - register         create an account
//	  - login            authenticate
//	  - exit | quit      leave the program
//
//	Logged in:
//	  - pull             download and print the vault
//	  - push <file>      encrypt and upload a vault file
//	  - export <file>    write the decrypted local copy to a file
//	  - history [since]  list server-side revisions after "since"
//	  - passwd           change the master password
//	  - status           show server and vault status
//	  - 2fa enable|disable
//	  - archive <rev>    fetch a pruned revision from the archive
//	  - logout           log out
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("av %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "pull":
			err = a.Pull(ctx)

		case "push":
			if len(args) != 1 {
				printlnFn("Usage: push <file>")
				continue
			}
			err = a.Push(ctx, args[0])

		case "export":
			if len(args) != 1 {
				printlnFn("Usage: export <file>")
				continue
			}
			err = a.Export(ctx, args[0])

		case "history":
			var since int64
			if len(args) > 0 {
				if since, err = strconv.ParseInt(args[0], 10, 64); err != nil || since < 0 {
					printlnFn("Usage: history [since]")
					continue
				}
			}
			err = a.History(ctx, since)

		case "passwd":
			err = a.ChangePassword(ctx)

		case "status":
			err = a.Status(ctx)

		case "2fa":
			switch {
			case len(args) == 1 && args[0] == "enable":
				err = a.EnableTwoFactor(ctx)
			case len(args) == 1 && args[0] == "disable":
				err = a.DisableTwoFactor(ctx)
			default:
				printlnFn("Usage: 2fa enable|disable")
				continue
			}

		case "archive":
			var rev int64
			if len(args) == 1 {
				rev, err = strconv.ParseInt(args[0], 10, 64)
			}
			if len(args) != 1 || err != nil || rev < 0 {
				printlnFn("Usage: archive <revision>")
				continue
			}
			err = a.Archive(ctx, rev)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", describeError(err))
		}
	}
}
