package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/aliasvault/internal/client/client"
	"github.com/dmitrijs2005/aliasvault/internal/client/services"
	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/dmitrijs2005/aliasvault/internal/filex"
)

// readFile is a test seam for os.ReadFile.
var readFile = os.ReadFile

// vaultDocument is the part of a vault file the CLI looks at before upload.
// The counters are reported to the server next to the encrypted blob.
type vaultDocument struct {
	Credentials    []json.RawMessage `json:"credentials"`
	EmailAddresses []json.RawMessage `json:"emailAddresses"`
}

func parseContent(data []byte) (services.Content, error) {
	var doc vaultDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return services.Content{}, fmt.Errorf("vault file must be a JSON object: %w", err)
	}
	return services.Content{
		Data:              string(data),
		CredentialsCount:  len(doc.Credentials),
		EmailAddressCount: len(doc.EmailAddresses),
	}, nil
}

// Pull prints the vault. Online it downloads the latest revision first;
// offline it opens the local copy.
func (a *App) Pull(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	var (
		plaintext string
		err       error
	)
	if a.requireOnline() == nil {
		plaintext, err = a.vaultService.Pull(ctx, a.session)
		if errors.Is(err, client.ErrUnavailable) {
			a.setMode(ModeOffline)
			plaintext, err = a.vaultService.Local(ctx, a.session)
		}
	} else {
		plaintext, err = a.vaultService.Local(ctx, a.session)
	}
	if err != nil {
		return err
	}

	if plaintext == "" {
		printlnFn(fmt.Sprintf("Vault is empty (revision %d)", a.session.Revision))
		return nil
	}
	printlnFn(plaintext)
	return nil
}

// Push encrypts the JSON file at path and uploads it on top of the last
// pulled revision.
func (a *App) Push(ctx context.Context, path string) error {
	if err := a.requireOnline(); err != nil {
		return err
	}

	data, err := readFile(path)
	if err != nil {
		return err
	}
	content, err := parseContent(data)
	if err != nil {
		return err
	}

	rev, err := a.vaultService.Push(ctx, a.session, content)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Vault uploaded, revision %d", rev))
	return nil
}

// Export writes the decrypted local copy to path, readable by the owner only.
func (a *App) Export(ctx context.Context, path string) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	plaintext, err := a.vaultService.Local(ctx, a.session)
	if err != nil {
		return err
	}
	if err := filex.WriteSecret(path, []byte(plaintext)); err != nil {
		return err
	}
	printlnFn("Vault exported to", path)
	return nil
}

// History lists the revisions stored on the server after since.
func (a *App) History(ctx context.Context, since int64) error {
	if err := a.requireOnline(); err != nil {
		return err
	}

	revs, err := a.vaultService.History(ctx, since)
	if err != nil {
		return err
	}
	if len(revs) == 0 {
		printlnFn("No revisions")
		return nil
	}
	for _, r := range revs {
		printlnFn(fmt.Sprintf("#%d  %s  v%s  %s  credentials=%d emails=%d",
			r.Number, r.UpdatedAt, r.Version, r.Client, r.CredentialsCount, r.EmailAddressCount))
	}
	return nil
}

// ChangePassword re-encrypts the vault under a new master password. Other
// devices are logged out by the server.
func (a *App) ChangePassword(ctx context.Context) error {
	if err := a.requireOnline(); err != nil {
		return err
	}

	current, err := getPassword(os.Stdout, "Current password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)

	next, err := getNewPassword("New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)

	rev, err := a.vaultService.ChangePassword(ctx, a.session, string(current), string(next))
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Password changed, vault revision %d", rev))
	return nil
}

// Status prints what the server reports about this client and vault.
func (a *App) Status(ctx context.Context) error {
	if err := a.requireOnline(); err != nil {
		return err
	}

	st, err := a.authService.Status(ctx)
	if err != nil {
		return err
	}

	lines := []string{
		fmt.Sprintf("Server version: %s", st.ServerVersion),
		fmt.Sprintf("Server vault revision: %d (local %d)", st.VaultRevision, a.session.Revision),
	}
	if !st.ClientVersionSupported {
		lines = append(lines, "This client version is no longer supported")
	}
	if st.VaultRevision > a.session.Revision {
		lines = append(lines, "A newer revision is available, run 'pull'")
	}
	printlnFn(strings.Join(lines, "\n"))
	return nil
}

// Archive fetches a pruned revision from the archive and prints it. When
// the revision predates a password change, the old password is asked for.
func (a *App) Archive(ctx context.Context, revision int64) error {
	if err := a.requireOnline(); err != nil {
		return err
	}

	archived, err := a.vaultService.FetchArchive(ctx, revision)
	if err != nil {
		return err
	}

	plaintext, err := a.vaultService.OpenArchive(archived, a.session, "")
	if errors.Is(err, client.ErrUnauthorized) {
		password, perr := getPassword(os.Stdout, fmt.Sprintf("Password used for revision %d", revision))
		if perr != nil {
			return perr
		}
		defer common.WipeByteArray(password)
		plaintext, err = a.vaultService.OpenArchive(archived, a.session, string(password))
	}
	if err != nil {
		return err
	}

	printlnFn(fmt.Sprintf("Revision %d (v%s, %s)", archived.RevisionNumber, archived.Version, archived.UpdatedAt.Format("2006-01-02 15:04")))
	printlnFn(plaintext)
	return nil
}
