package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/aliasvault/internal/api"
	"github.com/dmitrijs2005/aliasvault/internal/client/client"
	"github.com/dmitrijs2005/aliasvault/internal/client/services"
)

type fakeAuth struct {
	services.AuthService

	regUser, regPass string
	regErr           error

	loginUser, loginPass string
	loginRemember        bool
	loginErr             error
	promptAnswer         string
	requireCode          bool

	offlineErr error

	logoutCalled bool
	logoutErr    error

	status    *api.StatusResponse
	statusErr error

	enableResp  *api.TwoFactorEnableResponse
	confirmCode string
	disableCode string
}

func (f *fakeAuth) Register(_ context.Context, user, pass string) (*services.Session, error) {
	f.regUser, f.regPass = user, pass
	if f.regErr != nil {
		return nil, f.regErr
	}
	return &services.Session{Username: strings.ToLower(user), Key: []byte("k")}, nil
}

func (f *fakeAuth) Login(_ context.Context, user, pass string, remember bool, prompt services.TwoFactorPrompt) (*services.Session, error) {
	f.loginUser, f.loginPass, f.loginRemember = user, pass, remember
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if f.requireCode {
		code, err := prompt()
		if err != nil {
			return nil, err
		}
		f.promptAnswer = code
	}
	return &services.Session{Username: user, Key: []byte("k"), Salt: "aa", Revision: 2}, nil
}

func (f *fakeAuth) OfflineLogin(_ context.Context, user, _ string) (*services.Session, error) {
	if f.offlineErr != nil {
		return nil, f.offlineErr
	}
	return &services.Session{Username: user, Key: []byte("k"), Offline: true, Revision: 1}, nil
}

func (f *fakeAuth) Resume(context.Context) (string, error) { return "", nil }

func (f *fakeAuth) Logout(context.Context) error {
	f.logoutCalled = true
	return f.logoutErr
}

func (f *fakeAuth) Status(context.Context) (*api.StatusResponse, error) {
	return f.status, f.statusErr
}

func (f *fakeAuth) EnableTwoFactor(context.Context) (*api.TwoFactorEnableResponse, error) {
	return f.enableResp, nil
}

func (f *fakeAuth) ConfirmTwoFactor(_ context.Context, code string) ([]string, error) {
	f.confirmCode = code
	return []string{"AAAA-BBBB", "CCCC-DDDD"}, nil
}

func (f *fakeAuth) DisableTwoFactor(_ context.Context, code string) error {
	f.disableCode = code
	return nil
}

func (f *fakeAuth) Close(context.Context) error { return nil }

type fakeVault struct {
	services.VaultService

	pullCalls  int
	pullText   string
	pullErr    error
	localText  string
	localErr   error
	pushed     []services.Content
	pushErr    error
	history    []services.Revision
	since      int64
	passwords  [2]string
	archive    *services.ArchivedVault
	openedWith []string
}

func (f *fakeVault) Pull(_ context.Context, s *services.Session) (string, error) {
	f.pullCalls++
	if f.pullErr != nil {
		return "", f.pullErr
	}
	s.Revision = 5
	return f.pullText, nil
}

func (f *fakeVault) Local(context.Context, *services.Session) (string, error) {
	return f.localText, f.localErr
}

func (f *fakeVault) Push(_ context.Context, s *services.Session, c services.Content) (int64, error) {
	if f.pushErr != nil {
		return 0, f.pushErr
	}
	f.pushed = append(f.pushed, c)
	s.Revision++
	return s.Revision, nil
}

func (f *fakeVault) History(_ context.Context, since int64) ([]services.Revision, error) {
	f.since = since
	return f.history, nil
}

func (f *fakeVault) ChangePassword(_ context.Context, s *services.Session, cur, next string) (int64, error) {
	f.passwords = [2]string{cur, next}
	return s.Revision + 1, nil
}

func (f *fakeVault) FetchArchive(context.Context, int64) (*services.ArchivedVault, error) {
	return f.archive, nil
}

func (f *fakeVault) OpenArchive(a *services.ArchivedVault, s *services.Session, password string) (string, error) {
	f.openedWith = append(f.openedWith, password)
	if a.Salt != s.Salt && password == "" {
		return "", fmt.Errorf("wrapped: %w", client.ErrUnauthorized)
	}
	return "archived:" + a.Blob, nil
}

// captureOutput replaces printlnFn and returns everything printed.
func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var out []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		line := strings.TrimSuffix(fmt.Sprintln(a...), "\n")
		out = append(out, line)
		return len(line), nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &out
}

// stubInputs answers text prompts from texts and password prompts from
// passwords, in order.
func stubInputs(t *testing.T, texts []string, passwords []string) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(texts) == 0 {
			return "", io.EOF
		}
		s := texts[0]
		texts = texts[1:]
		return s, nil
	}
	getPassword = func(_ io.Writer, _ string) ([]byte, error) {
		if len(passwords) == 0 {
			return nil, io.EOF
		}
		p := passwords[0]
		passwords = passwords[1:]
		return []byte(p), nil
	}
}

func onlineApp(auth *fakeAuth, vault *fakeVault) *App {
	return &App{
		authService:  auth,
		vaultService: vault,
		session:      &services.Session{Username: "alice", Key: []byte("k"), Salt: "aa", Revision: 2},
		userName:     "alice",
		Mode:         ModeOnline,
	}
}

var fakeStatus = api.StatusResponse{
	ClientVersionSupported: false,
	ServerVersion:          "0.9.0",
	VaultRevision:          4,
}
