package worker

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tachyoncache/tachyon/internal/clock"
)

func TestUsers_GetOrCreateMakesFolders(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	u := NewUsers(clk, dir, time.Minute, time.Second, nil)
	defer u.Stop()

	local, err := u.GetUserTempFolder(7)
	require.NoError(t, err)
	ufs, err := u.GetUserUnderfsTempFolder(7)
	require.NoError(t, err)

	assert.DirExists(t, local)
	assert.DirExists(t, ufs)
	assert.NotEqual(t, local, ufs)
}

func TestUsers_ExpiryRemovesFolders(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	u := NewUsers(clk, dir, 10*time.Second, time.Second, nil)
	defer u.Stop()

	local, err := u.GetUserTempFolder(7)
	require.NoError(t, err)
	require.DirExists(t, local)

	require.Eventually(t, func() bool {
		clk.AdvanceTime(10 * time.Second)
		_, err := os.Stat(local)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUsers_HeartbeatRefreshesWithoutCreating(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	u := NewUsers(clk, dir, time.Minute, time.Second, nil)
	defer u.Stop()

	// Heartbeat for a session that was never created should not make folders.
	u.Heartbeat(99)
	assert.NoDirExists(t, dir+"/tmp/99")
}
