// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/kvs-playback/internal/kvs"
)

// fakeKVS serves all three collaborator interfaces and records every call.
type fakeKVS struct {
	streams []string
	listErr error

	endpointFail map[string]error
	sessionFail  map[string]error

	prefixes      []string
	endpointCalls []string
	sessionCalls  []string
	sessionParams []kvs.SessionParams
}

func (f *fakeKVS) ListStreams(_ context.Context, prefix string) ([]kvs.Stream, error) {
	f.prefixes = append(f.prefixes, prefix)
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]kvs.Stream, 0, len(f.streams))
	for _, s := range f.streams {
		out = append(out, kvs.Stream{Name: s})
	}
	return out, nil
}

func (f *fakeKVS) DataEndpoint(_ context.Context, stream string) (string, error) {
	f.endpointCalls = append(f.endpointCalls, stream)
	if err := f.endpointFail[stream]; err != nil {
		return "", err
	}
	return "https://ep/" + stream, nil
}

func (f *fakeKVS) SessionURL(_ context.Context, endpoint, stream string, p kvs.SessionParams) (string, error) {
	f.sessionCalls = append(f.sessionCalls, stream)
	f.sessionParams = append(f.sessionParams, p)
	if err := f.sessionFail[stream]; err != nil {
		return "", err
	}
	return endpoint + "/hls.m3u8", nil
}

func newFake(streams ...string) *fakeKVS {
	return &fakeKVS{
		streams:       streams,
		endpointFail:  map[string]error{},
		sessionFail:   map[string]error{},
		prefixes:      []string{},
		endpointCalls: []string{},
		sessionCalls:  []string{},
	}
}

func resolve(t *testing.T, f *fakeKVS, policy FailurePolicy) Result {
	t.Helper()
	r := New(Config{Prefix: "hassela", Policy: policy}, f, f, f)
	res, err := r.Resolve(context.Background())
	require.NoError(t, err)
	return res
}

func TestResolve_EmptyListing(t *testing.T) {
	f := newFake()
	res := resolve(t, f, PolicyAbort)

	assert.NotNil(t, res.URLs)
	assert.Empty(t, res.URLs)
	assert.Equal(t, 0, res.Listed)
	assert.False(t, res.Partial())
	assert.Empty(t, f.endpointCalls)
}

func TestResolve_AllSucceedKeepsListingOrder(t *testing.T) {
	f := newFake("hassela-3", "hassela-1", "hassela-2")
	res := resolve(t, f, PolicyAbort)

	want := []string{
		"https://ep/hassela-3/hls.m3u8",
		"https://ep/hassela-1/hls.m3u8",
		"https://ep/hassela-2/hls.m3u8",
	}
	if diff := cmp.Diff(want, res.URLs); diff != "" {
		t.Errorf("URLs mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, res.Listed)
	assert.False(t, res.Partial())
}

func TestResolve_UsesConfiguredPrefix(t *testing.T) {
	f := newFake()
	r := New(Config{Prefix: "garage-"}, f, f, f)
	_, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"garage-"}, f.prefixes)
}

func TestResolve_EndpointFailureAborts(t *testing.T) {
	for k := 1; k <= 4; k++ {
		f := newFake("s1", "s2", "s3", "s4")
		failing := f.streams[k-1]
		f.endpointFail[failing] = errors.New("no endpoint")

		res := resolve(t, f, PolicyAbort)

		assert.Len(t, res.URLs, k-1, "k=%d", k)
		assert.Equal(t, f.streams[:k], f.endpointCalls, "no calls after the failing stream (k=%d)", k)
		assert.Equal(t, f.streams[:k-1], f.sessionCalls, "k=%d", k)
		require.Len(t, res.Failures, 1)
		assert.Equal(t, StageEndpoint, res.Failures[0].Stage)
		assert.Equal(t, failing, res.Failures[0].Stream)
		assert.Equal(t, 4-k, res.NotAttempted)
		assert.True(t, res.Partial())
	}
}

func TestResolve_SessionFailureAborts(t *testing.T) {
	f := newFake("s1", "s2", "s3")
	f.sessionFail["s2"] = errors.New("no session")

	res := resolve(t, f, PolicyAbort)

	assert.Equal(t, []string{"https://ep/s1/hls.m3u8"}, res.URLs)
	assert.Equal(t, []string{"s1", "s2"}, f.endpointCalls)
	assert.Equal(t, []string{"s1", "s2"}, f.sessionCalls)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, StageSessionURL, res.Failures[0].Stage)
	assert.ErrorIs(t, res.Failures[0].Err, ErrSessionURL)
	assert.Equal(t, 1, res.NotAttempted)
}

func TestResolve_SkipPolicyContinues(t *testing.T) {
	f := newFake("s1", "s2", "s3", "s4")
	f.endpointFail["s2"] = errors.New("no endpoint")
	f.sessionFail["s3"] = errors.New("no session")

	res := resolve(t, f, PolicySkip)

	assert.Equal(t, []string{"https://ep/s1/hls.m3u8", "https://ep/s4/hls.m3u8"}, res.URLs)
	assert.Equal(t, []string{"s1", "s2", "s3", "s4"}, f.endpointCalls)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, StageEndpoint, res.Failures[0].Stage)
	assert.Equal(t, StageSessionURL, res.Failures[1].Stage)
	assert.Equal(t, 0, res.NotAttempted)
	assert.True(t, res.Partial())
}

func TestResolve_UnknownPolicyAborts(t *testing.T) {
	f := newFake("s1", "s2", "s3")
	f.endpointFail["s1"] = errors.New("no endpoint")

	res := resolve(t, f, FailurePolicy("retry"))

	assert.Empty(t, res.URLs)
	assert.Equal(t, []string{"s1"}, f.endpointCalls)
	assert.Equal(t, 2, res.NotAttempted)
}

func TestResolve_ListFailureIsFatal(t *testing.T) {
	f := newFake("s1")
	cause := &kvs.KVSError{Sentinel: kvs.ErrForbidden, Operation: kvs.OpListStreams}
	f.listErr = cause

	r := New(Config{Prefix: "hassela"}, f, f, f)
	_, err := r.Resolve(context.Background())
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrListStreams)
	assert.ErrorIs(t, err, kvs.ErrForbidden)
	var serr *StageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, StageList, serr.Stage)
	assert.Empty(t, f.endpointCalls)
}

func TestResolve_PassesSessionParams(t *testing.T) {
	f := newFake("s1")
	r := New(Config{Prefix: "p", Session: kvs.SessionParams{Expires: time.Hour}}, f, f, f)
	_, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.Len(t, f.sessionParams, 1)
	assert.Equal(t, time.Hour, f.sessionParams[0].Expires)
}

func TestParseFailurePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    FailurePolicy
		wantErr bool
	}{
		{in: "", want: PolicyAbort},
		{in: "abort", want: PolicyAbort},
		{in: " SKIP ", want: PolicySkip},
		{in: "retry", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFailurePolicy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestStageError(t *testing.T) {
	cause := errors.New("boom")
	err := newStageError(StageEndpoint, "cam", cause)

	assert.ErrorIs(t, err, ErrDataEndpoint)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrSessionURL)
	assert.Contains(t, err.Error(), `"cam"`)
	assert.Contains(t, err.Error(), "boom")
}
