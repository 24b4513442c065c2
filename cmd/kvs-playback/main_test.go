package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/kvs-playback/internal/app"
	"github.com/ManuGH/kvs-playback/internal/kvs"
	"github.com/ManuGH/kvs-playback/internal/resolver"
	"github.com/ManuGH/kvs-playback/internal/version"
)

type cliBackend struct {
	listErr error
}

func (b cliBackend) ListStreams(context.Context, string) ([]kvs.Stream, error) {
	if b.listErr != nil {
		return nil, b.listErr
	}
	return []kvs.Stream{{Name: "hassela-1"}, {Name: "hassela-2"}}, nil
}

func (cliBackend) DataEndpoint(_ context.Context, stream string) (string, error) {
	return "https://ep/" + stream, nil
}

func (cliBackend) SessionURL(_ context.Context, endpoint, _ string, _ kvs.SessionParams) (string, error) {
	return endpoint + "/live.m3u8", nil
}

func withBackend(t *testing.T, b app.Backend) {
	t.Helper()
	prev := backendOverride
	backendOverride = func(context.Context) (app.Backend, error) { return b, nil }
	t.Cleanup(func() { backendOverride = prev })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version.String()+"\n", out)
}

func TestRootWithoutLambdaRuntimePrintsHelp(t *testing.T) {
	t.Setenv(envLambdaRuntime, "")
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Available Commands")
	assert.Contains(t, out, "serve")
	assert.Contains(t, out, "resolve")
}

func TestResolveCommand(t *testing.T) {
	withBackend(t, cliBackend{})

	out, err := execute(t, "resolve")
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"ok","streams":["https://ep/hassela-1/live.m3u8","https://ep/hassela-2/live.m3u8"]}`, out)
}

func TestResolveCommand_ListingFailure(t *testing.T) {
	withBackend(t, cliBackend{listErr: kvs.ErrForbidden})

	_, err := execute(t, "resolve")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolver.ErrListStreams))
}

func TestResolveCommand_BadConfigPath(t *testing.T) {
	withBackend(t, cliBackend{})

	_, err := execute(t, "resolve", "--config", "/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestServe_GracefulShutdown(t *testing.T) {
	withBackend(t, cliBackend{})

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, &rootOptions{}, "127.0.0.1:0", ready) }()

	var addr string
	select {
	case addr = <-ready:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("server did not start")
	}

	transport := &http.Transport{}
	client := &http.Client{Transport: transport, Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/streams")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	transport.CloseIdleConnections()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "hassela-1")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("shutdown timeout")
	}
}
