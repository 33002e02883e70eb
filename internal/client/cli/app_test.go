package cli

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/dmitrijs2005/aliasvault/internal/api"
	"github.com/dmitrijs2005/aliasvault/internal/client/client"
	"github.com/dmitrijs2005/aliasvault/internal/client/config"
	"github.com/dmitrijs2005/aliasvault/internal/client/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLoggedIn(t *testing.T) {
	app := &App{}
	assert.False(t, app.isLoggedIn())

	app.session = &services.Session{Username: "alice"}
	assert.True(t, app.isLoggedIn())
}

func TestSetMode_ChangesAndLogsOnce(t *testing.T) {
	app := &App{}
	var buf bytes.Buffer

	old := log.Default().Writer()
	defer log.SetOutput(old)
	log.SetOutput(&buf)

	app.setMode(ModeOnline)
	assert.Equal(t, ModeOnline, app.Mode)
	assert.NotEmpty(t, buf.String(), "expected log output on mode change")

	buf.Reset()

	app.setMode(ModeOnline)
	assert.Empty(t, buf.String(), "expected no log output when mode doesn't change")

	app.setMode(ModeOffline)
	assert.Equal(t, ModeOffline, app.Mode)
	assert.NotEmpty(t, buf.String())
}

func TestStartSession_WipesPrevious(t *testing.T) {
	old := &services.Session{Username: "alice", Key: []byte{1, 2}}
	key := old.Key
	app := &App{session: old}

	app.startSession(&services.Session{Username: "bob", Key: []byte{3}}, ModeOnline)

	assert.Equal(t, []byte{0, 0}, key)
	assert.Equal(t, "bob", app.userName)
	assert.Equal(t, ModeOnline, app.Mode)
}

func TestRequireOnline(t *testing.T) {
	app := &App{}
	assert.ErrorIs(t, app.requireOnline(), errNotLoggedIn)

	app = onlineApp(&fakeAuth{}, &fakeVault{})
	assert.NoError(t, app.requireOnline())

	app.Mode = ModeOffline
	assert.ErrorIs(t, app.requireOnline(), client.ErrUnavailable)

	app.Mode = ModeOnline
	app.session.Offline = true
	assert.ErrorIs(t, app.requireOnline(), client.ErrUnavailable)
}

func TestCheckOnline(t *testing.T) {
	tests := []struct {
		name string
		err  error
		from Mode
		want Mode
	}{
		{"reachable", nil, ModeOffline, ModeOnline},
		{"unauthorized still reachable", client.ErrUnauthorized, ModeOffline, ModeOnline},
		{"unavailable", client.ErrUnavailable, ModeOnline, ModeOffline},
		{"wrapped unavailable", errors.Join(errors.New("dial"), client.ErrUnavailable), ModeOnline, ModeOffline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeAuth{status: &api.StatusResponse{}, statusErr: tt.err}
			app := &App{authService: f, Mode: tt.from}
			app.checkOnline(context.Background())
			assert.Equal(t, tt.want, app.mode())
		})
	}
}

func TestStartOnlineStatusWatcher_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		(&App{authService: &fakeAuth{}}).StartOnlineStatusWatcher(ctx, 1)
		close(done)
	}()
	<-done
}

func TestNewAPIClient(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()

	apiClient, err := newAPIClient(c)
	require.NoError(t, err)
	_, ok := apiClient.(*client.RESTClient)
	assert.True(t, ok)

	c.Transport = config.TransportGRPC
	apiClient, err = newAPIClient(c)
	require.NoError(t, err)
	_, ok = apiClient.(*client.GRPCClient)
	assert.True(t, ok)
	require.NoError(t, apiClient.Close())

	c.Transport = "carrier-pigeon"
	_, err = newAPIClient(c)
	assert.Error(t, err)
}
