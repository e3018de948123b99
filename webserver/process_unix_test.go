//go:build !windows

package webserver

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepwise/website-e2e/config"
	"github.com/prepwise/website-e2e/framework"
)

func TestSpawnCapturesOutputAndStops(t *testing.T) {
	logger := &framework.CapturingLogger{}
	ws := config.WebServer{
		Command: "echo hello-from-$GREETING; exec sleep 30",
		Env:     map[string]string{"GREETING": "server"},
	}
	p, err := spawnExec(ws, logger)
	require.NoError(t, err)
	assert.NotZero(t, p.Pid())

	require.Eventually(t, func() bool {
		for _, m := range logger.Output() {
			if strings.Contains(m.Message, "hello-from-server") {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Stop(5*time.Second))
	select {
	case <-p.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
}

func TestSpawnKillsProcessThatIgnoresTerm(t *testing.T) {
	ws := config.WebServer{Command: "trap '' TERM; while true; do sleep 0.1; done"}
	p, err := spawnExec(ws, framework.NullLogger())
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	started := time.Now()
	require.NoError(t, p.Stop(200*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(started), 200*time.Millisecond)
	<-p.Exited()
}

func TestSpawnReportsEarlyExit(t *testing.T) {
	p, err := spawnExec(config.WebServer{Command: "exit 3"}, framework.NullLogger())
	require.NoError(t, err)
	<-p.Exited()
	assert.Error(t, p.Err())
}
