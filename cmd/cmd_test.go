package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/gburn/internal/config"
	"github.com/theirongolddev/gburn/internal/model"
	"github.com/theirongolddev/gburn/internal/store"
	"github.com/theirongolddev/gburn/internal/tracker"
)

func TestBlockCount(t *testing.T) {
	n, err := blockCount(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = blockCount([]string{"4"})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = blockCount([]string{"-2"})
	assert.Error(t, err)
	_, err = blockCount([]string{"two"})
	assert.Error(t, err)
}

func TestFilterDetachArg(t *testing.T) {
	got := filterDetachArg([]string{"daemon", "--detach", "--addr", "x", "--detach=true"})
	assert.Equal(t, []string{"daemon", "--addr", "x"}, got)
}

func TestPIDFile(t *testing.T) {
	p := pidFile(filepath.Join(t.TempDir(), "run", "gburnd.pid"))

	_, err := p.Read()
	require.ErrorIs(t, err, os.ErrNotExist)
	require.NoError(t, p.ensureFree())

	require.NoError(t, p.Claim(daemonInfo{PID: os.Getpid(), Addr: "127.0.0.1:1"}))
	pid, err := p.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	di, err := p.Info()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1", di.Addr)

	assert.ErrorContains(t, p.Claim(daemonInfo{PID: os.Getpid()}), "already running")

	p.Remove()
	_, err = p.Info()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPIDFile_StaleIsCleared(t *testing.T) {
	p := pidFile(filepath.Join(t.TempDir(), "gburnd.pid"))
	require.NoError(t, os.WriteFile(string(p), []byte("2147483646\n"), 0o600))

	require.NoError(t, p.ensureFree())
	_, err := p.Read()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReferenceNow(t *testing.T) {
	defer func(prev string) { flagNow = prev }(flagNow)

	flagNow = "2023-01-15T12:00"
	got, err := referenceNow()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 15, 12, 0, 0, 0, time.Local), got)

	flagNow = "2023-01-15T12:00:00Z"
	got, err = referenceNow()
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2023, 1, 15, 12, 0, 0, 0, time.UTC)))

	flagNow = "soon"
	_, err = referenceNow()
	assert.Error(t, err)
}

// execute runs the root command against an isolated config and database.
func execute(t *testing.T, db string, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(append([]string{"--db", db, "--quiet", "--now", "2023-01-15T12:00"}, args...))
	return rootCmd.ExecuteContext(context.Background())
}

func exported(t *testing.T, db string) model.State {
	t.Helper()
	out := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, execute(t, db, "export", "-o", out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	return store.DecodeState(data)
}

func TestCommandsEditStoredRecord(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("GBURN_DB", "")
	db := filepath.Join(t.TempDir(), "gburn.db")

	require.NoError(t, execute(t, db, "balance", "42", "30"))
	require.NoError(t, execute(t, db, "topup", "add", "3"))
	require.NoError(t, execute(t, db, "topup", "remove"))
	require.NoError(t, execute(t, db, "rollover", "on"))
	require.NoError(t, execute(t, db, "plan", "Ultimate", "--cycle", "yearly"))
	require.NoError(t, execute(t, db, "renewal", "2023-01-01T00:00", "--clear-topups=false"))

	st := exported(t, db)
	assert.Equal(t, model.Balance{Hours: 42, Minutes: 30}, st.Balance)
	assert.Equal(t, 2, st.PurchasedBlocks)
	assert.True(t, st.ExcludeRollover)
	assert.Equal(t, "ultimate", st.Plan)
	assert.Equal(t, model.Yearly, st.BillingCycle)
	assert.Equal(t, "2023-01-01T00:00", st.RenewalDate)
	assert.False(t, st.ClearTopUpsOnRenewal)
	assert.True(t, st.AutoRenew)

	require.NoError(t, execute(t, db, "renew"))
	st = exported(t, db)
	assert.Equal(t, "2023-02-01T00:00", st.RenewalDate)
	assert.Equal(t, model.Balance{Hours: 115}, st.Balance)
	assert.Equal(t, 2, st.PurchasedBlocks)
}

func TestCommandsRejectBadInput(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	db := filepath.Join(t.TempDir(), "gburn.db")

	err := execute(t, db, "plan", "platinum")
	assert.ErrorIs(t, err, config.ErrInvalidPlan)

	assert.ErrorIs(t, execute(t, db, "balance", "lots"), tracker.ErrInvalidBalance)
	assert.Error(t, execute(t, db, "renewal", "tomorrow"))
	assert.Error(t, execute(t, db, "rollover", "maybe"))
}

func TestImportTolerantRecord(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	db := filepath.Join(t.TempDir(), "gburn.db")

	in := filepath.Join(t.TempDir(), "record.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"plan":"ultimate","balance":{"hours":"12","minutes":"x"},"purchasedBlocks":"2"}`), 0o600))
	require.NoError(t, execute(t, db, "import", in))

	st := exported(t, db)
	assert.Equal(t, "ultimate", st.Plan)
	assert.Equal(t, model.Balance{Hours: 12, Minutes: 0}, st.Balance)
	assert.Equal(t, 2, st.PurchasedBlocks)
	assert.Equal(t, model.Monthly, st.BillingCycle)
	assert.True(t, st.ResetBalanceOnRenewal)
}
