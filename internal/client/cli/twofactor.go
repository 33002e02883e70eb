package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnableTwoFactor shows a new authenticator secret, asks for a code from the
// authenticator app and prints the recovery codes once confirmed.
func (a *App) EnableTwoFactor(ctx context.Context) error {
	if err := a.requireOnline(); err != nil {
		return err
	}

	setup, err := a.authService.EnableTwoFactor(ctx)
	if err != nil {
		return err
	}
	printlnFn("Add this account to your authenticator app:")
	printlnFn("  secret:", setup.Secret)
	printlnFn("  url:   ", setup.QrCodeUrl)

	code, err := getSimpleText(a.reader, "Enter the 6-digit code shown by the app", os.Stdout)
	if err != nil {
		return err
	}

	codes, err := a.authService.ConfirmTwoFactor(ctx, code)
	if err != nil {
		return err
	}

	printlnFn("Two-factor authentication enabled. Store these recovery codes somewhere safe:")
	printlnFn(fmt.Sprintf("  %s", strings.Join(codes, "\n  ")))
	return nil
}

func (a *App) DisableTwoFactor(ctx context.Context) error {
	if err := a.requireOnline(); err != nil {
		return err
	}

	code, err := getSimpleText(a.reader, "Enter the 6-digit code shown by the app", os.Stdout)
	if err != nil {
		return err
	}
	if err := a.authService.DisableTwoFactor(ctx, code); err != nil {
		return err
	}
	printlnFn("Two-factor authentication disabled")
	return nil
}
