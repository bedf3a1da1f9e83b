package agent

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchkit/loadcal/pkg/loadcal/types"
)

func TestStartBenchBumpsSequence(t *testing.T) {
	s := NewSession(t.TempDir(), "")

	require.NoError(t, s.StartBench(StartRequest{BalloonSize: types.GiB, LogBps: 512 * types.KiB}))
	require.NoError(t, s.StartBench(StartRequest{}))

	var cmd CmdFile
	require.NoError(t, LoadJSON(filepath.Join(s.Dir(), CmdFileName), &cmd))
	assert.Equal(t, uint64(2), cmd.BenchSeq)
}

func TestStartBenchCarriesPendingFlags(t *testing.T) {
	s := NewSession(t.TempDir(), "")

	require.NoError(t, s.RelaxMemProtection())
	require.NoError(t, s.CommitBaseline())
	require.NoError(t, s.StartBench(StartRequest{
		BalloonSize: 2 * types.GiB,
		LogBps:      types.MiB,
		ExtraArgs:   []string{"--bench-rps-max=5000"},
	}))

	var cmd CmdFile
	require.NoError(t, LoadJSON(filepath.Join(s.Dir(), CmdFileName), &cmd))
	assert.True(t, cmd.Passive)
	assert.True(t, cmd.CommitBaseline)
	assert.Equal(t, 2*types.GiB, cmd.BalloonSize)
	assert.Equal(t, types.MiB, cmd.LogBps)
	assert.Equal(t, []string{"--bench-rps-max=5000"}, cmd.BenchArgs)
	assert.Equal(t, uint64(1), cmd.BenchSeq)
}

func TestSnapshotMissingCommandFile(t *testing.T) {
	s := NewSession(t.TempDir(), "")

	_, err := s.Snapshot()
	require.Error(t, err)
	assert.True(t, IsNotExist(err))
}

func TestSnapshotPartialState(t *testing.T) {
	s := NewSession(t.TempDir(), "")
	require.NoError(t, s.StartBench(StartRequest{}))

	// Bench and report files not written yet: zero values, no error.
	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.CmdSeq)
	assert.Equal(t, uint64(0), snap.BenchSeq)
	assert.Empty(t, snap.BenchState)
	assert.Zero(t, snap.Report.MemProbeSize)
}

func TestSnapshotComplete(t *testing.T) {
	s := NewSession(t.TempDir(), "")
	require.NoError(t, s.StartBench(StartRequest{}))

	bench := BenchFile{Seq: 1, State: BenchDone, Knobs: types.Knobs{RPSMax: 1500}}
	require.NoError(t, SaveJSON(filepath.Join(s.Dir(), BenchFileName), &bench))

	report := ReportFile{Phase: "mem-probe", MemProbeSize: 2 * types.GiB}
	require.NoError(t, SaveJSON(filepath.Join(s.Dir(), ReportFileName), &report))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.CmdSeq)
	assert.Equal(t, uint64(1), snap.BenchSeq)
	assert.Equal(t, BenchDone, snap.BenchState)
	assert.Equal(t, "mem-probe", snap.Report.Phase)

	knobs, err := s.BenchKnobs()
	require.NoError(t, err)
	assert.Equal(t, uint32(1500), knobs.RPSMax)
}

func TestMissingSysReqs(t *testing.T) {
	s := NewSession(t.TempDir(), "")

	// Before the agent writes its preflight report, nothing is missing.
	missing, err := s.MissingSysReqs([]string{"memory-controller", "swap"})
	require.NoError(t, err)
	assert.Empty(t, missing)

	report := SysReqFile{Satisfied: []string{"memory-controller", "io-controller"}}
	require.NoError(t, SaveJSON(filepath.Join(s.Dir(), SysReqFileName), &report))

	missing, err = s.MissingSysReqs([]string{"memory-controller", "io-controller", "swap"})
	require.NoError(t, err)
	assert.Equal(t, []string{"swap"}, missing)
}

func TestRunning(t *testing.T) {
	s := NewSession(t.TempDir(), "")

	// No PID file.
	assert.False(t, s.Running())

	// Our own PID is certainly alive.
	pidPath := filepath.Join(s.Dir(), PIDFileName)
	require.NoError(t, os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644))
	assert.True(t, s.Running())

	// Garbage PID file.
	require.NoError(t, os.WriteFile(pidPath, []byte("not a pid"), 0o644))
	assert.False(t, s.Running())
}

func TestResolveBinaryConfiguredMissing(t *testing.T) {
	s := NewSession(t.TempDir(), filepath.Join(t.TempDir(), "no-such-binary"))

	_, err := s.resolveBinary()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
