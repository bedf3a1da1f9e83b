// Package main provides loadcal-agentsim, a development stand-in for the
// externally-owned calibration agent. It speaks the same run-directory
// file protocol: it watches the command file for bench requests, walks a
// scripted phase sequence writing live report ticks, then publishes a
// knob report and bumps the completed sequence. The real agent, which
// actually drives the load generator under cgroup controllers, is not
// part of this repository.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/benchkit/loadcal/pkg/loadcal/agent"
	"github.com/benchkit/loadcal/pkg/loadcal/config"
	"github.com/benchkit/loadcal/pkg/loadcal/sysinfo"
	"github.com/benchkit/loadcal/pkg/loadcal/types"
)

// phases is the scripted bench phase sequence.
var phases = []string{"preload", "mem-probe", "io-probe", "converge"}

func main() {
	runDir := flag.String("run-dir", config.DefaultAgentRunDir(), "agent run directory")
	tick := flag.Duration("tick", 200*time.Millisecond, "report tick interval")
	phaseTicks := flag.Int("phase-ticks", 5, "report ticks per phase")
	memSize := flag.String("mem-size", "", "simulated memory footprint (default: host total)")
	flag.Parse()

	mem := sysinfo.TotalMemory()
	if *memSize != "" {
		v, err := types.ParseSize(*memSize)
		if err != nil {
			log.Fatalf("invalid --mem-size: %v", err)
		}
		mem = v
	}

	sim := &simulator{
		dir:        *runDir,
		tick:       *tick,
		phaseTicks: *phaseTicks,
		profile:    config.DefaultProfile(mem),
	}

	if err := sim.start(); err != nil {
		_ = agent.SaveJSON(filepath.Join(*runDir, agent.StatusFileName), &agent.StatusFile{
			Status: "error",
			Error:  err.Error(),
		})
		log.Fatalf("agentsim failed to start: %v", err)
	}
	defer sim.cleanup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Printf("agentsim serving %s", *runDir)
	sim.serve(sigChan)
	log.Println("agentsim shutting down")
}

// simulator owns the run directory and reacts to command-file changes.
type simulator struct {
	dir        string
	tick       time.Duration
	phaseTicks int
	profile    config.Profile

	watcher *fsnotify.Watcher
	done    uint64 // last completed bench sequence
}

func (s *simulator) path(name string) string {
	return filepath.Join(s.dir, name)
}

// start prepares the run directory and announces readiness.
func (s *simulator) start() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating run dir: %w", err)
	}

	pid := os.Getpid()
	if err := os.WriteFile(s.path(agent.PIDFileName), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}

	// Preflight: the simulator satisfies everything.
	sysreqs := agent.SysReqFile{
		Satisfied: []string{"memory-controller", "io-controller", "swap"},
	}
	if err := agent.SaveJSON(s.path(agent.SysReqFileName), &sysreqs); err != nil {
		return fmt.Errorf("writing sysreq file: %w", err)
	}

	// Resume the completed sequence from a previous incarnation so
	// stale completions stay observable, as with the real agent.
	var bench agent.BenchFile
	if err := agent.LoadJSON(s.path(agent.BenchFileName), &bench); err == nil {
		s.done = bench.Seq
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watching run dir: %w", err)
	}
	s.watcher = watcher

	status := agent.StatusFile{Status: "ready", PID: pid}
	if err := agent.SaveJSON(s.path(agent.StatusFileName), &status); err != nil {
		return fmt.Errorf("writing status file: %w", err)
	}

	return nil
}

// serve reacts to command-file changes until a shutdown signal arrives.
func (s *simulator) serve(sigChan <-chan os.Signal) {
	// The command file may already hold an unserved request.
	s.checkCommand()

	for {
		select {
		case <-sigChan:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != agent.CmdFileName {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			s.checkCommand()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watch error: %v", err)
		}
	}
}

// checkCommand serves the pending bench request, if any.
func (s *simulator) checkCommand() {
	var cmd agent.CmdFile
	if err := agent.LoadJSON(s.path(agent.CmdFileName), &cmd); err != nil {
		return
	}
	if cmd.BenchSeq <= s.done {
		return
	}

	log.Printf("bench %d requested (balloon=%d log_bps=%d args=%v)",
		cmd.BenchSeq, cmd.BalloonSize, cmd.LogBps, cmd.BenchArgs)

	if err := s.runBench(&cmd); err != nil {
		_ = agent.SaveJSON(s.path(agent.BenchFileName), &agent.BenchFile{
			Seq:     cmd.BenchSeq,
			State:   agent.BenchFailed,
			Failure: err.Error(),
		})
	}
	// Failed or not, the sequence has been served; only a new request
	// may trigger another run.
	s.done = cmd.BenchSeq
}

// runBench walks the scripted phases and publishes the final knob report.
func (s *simulator) runBench(cmd *agent.CmdFile) error {
	running := agent.BenchFile{Seq: s.done, State: agent.BenchRunning}
	if err := agent.SaveJSON(s.path(agent.BenchFileName), &running); err != nil {
		return err
	}

	knobs := s.finalKnobs(cmd)

	for _, phase := range phases {
		for i := range s.phaseTicks {
			report := agent.ReportFile{
				Timestamp:    time.Now(),
				Phase:        phase,
				MemProbeSize: knobs.MemSize / uint64(s.phaseTicks) * uint64(i+1),
				IOReadBps:    48 * types.MiB,
				IOWriteBps:   16 * types.MiB,
				LatP50:       2 * time.Millisecond,
				LatP90:       9 * time.Millisecond,
				LatP99:       34 * time.Millisecond,
			}
			if err := agent.SaveJSON(s.path(agent.ReportFileName), &report); err != nil {
				return err
			}
			time.Sleep(s.tick)
		}
	}

	done := agent.BenchFile{
		Seq:   cmd.BenchSeq,
		State: agent.BenchDone,
		Knobs: knobs,
	}
	return agent.SaveJSON(s.path(agent.BenchFileName), &done)
}

// finalKnobs derives the published knob set from the sizing profile, the
// balloon and any bench-arg overrides.
func (s *simulator) finalKnobs(cmd *agent.CmdFile) types.Knobs {
	knobs := types.Knobs{
		HashSize:   s.profile.HashSizeMean,
		RPSMax:     config.FakeCPULoadRPSMax,
		MemSize:    s.profile.MemSize,
		MemFrac:    s.profile.MemFrac,
		ChunkPages: s.profile.ChunkPages,
		FileFrac:   s.profile.FileFrac,
	}
	if cmd.BalloonSize < knobs.MemSize {
		knobs.MemSize -= cmd.BalloonSize
	}

	for _, arg := range cmd.BenchArgs {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "--bench-hash-size":
			knobs.HashSize = n
		case "--bench-chunk-pages":
			knobs.ChunkPages = uint32(n)
		case "--bench-rps-max":
			knobs.RPSMax = uint32(n)
		}
	}

	return knobs
}

// cleanup removes the process files so a stale incarnation is not
// mistaken for a live one.
func (s *simulator) cleanup() {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	_ = os.Remove(s.path(agent.PIDFileName))
	_ = os.Remove(s.path(agent.StatusFileName))
}
