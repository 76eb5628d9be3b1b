package server

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRegistry struct {
	registered, deregistered int
}

func (r *countingRegistry) Register() error   { r.registered++; return nil }
func (r *countingRegistry) Deregister() error { r.deregistered++; return nil }

func TestServerLifecycle(t *testing.T) {
	reg := &countingRegistry{}
	exit := make(chan error, 1)
	srv, err := BuildServer("127.0.0.1:0", reg, exit, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		srv.Start()
		close(done)
	}()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + srv.Addr() + "/health")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	srv.Stop()
	<-done
	assert.Equal(t, 1, reg.registered)
	assert.Equal(t, 1, reg.deregistered)
	assert.Empty(t, exit)
}

func TestBuildServerListenError(t *testing.T) {
	_, err := BuildServer("not-an-address", nil, nil, nil)
	require.Error(t, err)
}
