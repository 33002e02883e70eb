package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/aliasvault/internal/client/client"
	"github.com/dmitrijs2005/aliasvault/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// The token pair is persisted locally, so the CLI always asks for the
// long-lived refresh token.
const rememberDevice = true

var errPasswordMismatch = errors.New("passwords do not match")

// getNewPassword asks for a password twice.
func getNewPassword(prompt string) ([]byte, error) {
	password, err := getPassword(os.Stdout, prompt)
	if err != nil {
		return nil, err
	}
	repeat, err := getPassword(os.Stdout, "Repeat password")
	if err != nil {
		common.WipeByteArray(password)
		return nil, err
	}
	defer common.WipeByteArray(repeat)

	if len(password) == 0 || !bytes.Equal(password, repeat) {
		common.WipeByteArray(password)
		return nil, errPasswordMismatch
	}
	return password, nil
}

// getUserName prompts for a username and falls back to the last known one
// when the answer is empty.
func (a *App) getUserName() (string, error) {
	prompt := "Enter username"
	if a.userName != "" {
		prompt = fmt.Sprintf("Enter username [%s]", a.userName)
	}
	userName, err := getSimpleText(a.reader, prompt, os.Stdout)
	if err != nil {
		return "", err
	}
	if userName == "" {
		userName = a.userName
	}
	if userName == "" {
		return "", common.ErrUsernameInvalid
	}
	return userName, nil
}

// Register prompts for a username and a new password and creates the
// account. The new account is logged in right away.
func (a *App) Register(ctx context.Context) error {
	userName, err := a.getUserName()
	if err != nil {
		return err
	}

	password, err := getNewPassword("Choose password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.authService.Register(ctx, userName, string(password))
	if err != nil {
		return err
	}
	a.startSession(s, ModeOnline)

	printlnFn("Account created, logged in as", s.Username)
	return nil
}

// Login prompts the user for credentials and tries to authenticate.
//
// The method first attempts an online login, asking for a second factor if
// the account needs one. If the server is unavailable
// (errors.Is(err, client.ErrUnavailable)), it falls back to unlocking the
// local vault copy. The final state is reflected in App.Mode:
//   - ModeOnline if online login succeeds,
//   - ModeOffline if offline login succeeds,
//   - ModeDisabled if the server is down and no local copy opens.
func (a *App) Login(ctx context.Context) error {
	userName, err := a.getUserName()
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	prompt := func() (string, error) {
		return getSimpleText(a.reader, "Enter authenticator code or recovery code", os.Stdout)
	}

	s, err := a.authService.Login(ctx, userName, string(password), rememberDevice, prompt)
	if err == nil {
		log.Printf("Login successful")
		a.startSession(s, ModeOnline)
		if _, err := a.vaultService.Pull(ctx, s); err != nil {
			log.Printf("Vault sync failed: %s", describeError(err))
		}
		return nil
	}

	if !errors.Is(err, client.ErrUnavailable) {
		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}

	log.Printf("Server unavailable, trying offline login...")
	s, err = a.authService.OfflineLogin(ctx, userName, string(password))
	if err != nil {
		log.Printf("Offline login unsuccessful: %s", err.Error())
		a.endSession()
		a.setMode(ModeDisabled)
		return err
	}

	log.Printf("Offline login successful")
	a.startSession(s, ModeOffline)
	return nil
}

// Logout revokes the session on the server and forgets the vault key. The
// local state is cleared even when the server cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	err := a.authService.Logout(ctx)
	a.endSession()
	if err != nil && !errors.Is(err, client.ErrUnavailable) && !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	printlnFn("Logged out")
	return nil
}
