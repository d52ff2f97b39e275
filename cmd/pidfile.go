package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// daemonInfo is written next to the pid file so `daemon status` can find the API.
type daemonInfo struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	Schedule  string    `json:"schedule"`
	StartedAt time.Time `json:"started_at"`
	DBPath    string    `json:"db_path"`
}

// pidFile manages the daemon's pid file and its JSON sidecar.
type pidFile string

func (p pidFile) infoPath() string { return string(p) + ".json" }

func (p pidFile) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(string(p)), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	return nil
}

// Read returns the recorded pid. A missing file yields an os.ErrNotExist error.
func (p pidFile) Read() (int, error) {
	//nolint:gosec // path is configured by the local user
	data, err := os.ReadFile(string(p))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", p)
	}
	return pid, nil
}

// Claim records the current process, failing when another live daemon owns the file.
func (p pidFile) Claim(info daemonInfo) error {
	if err := p.ensureFree(); err != nil {
		return err
	}
	if err := p.ensureDir(); err != nil {
		return err
	}
	if err := os.WriteFile(string(p), []byte(strconv.Itoa(info.PID)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.infoPath(), append(data, '\n'), 0o600)
}

// Info reads the sidecar written by Claim.
func (p pidFile) Info() (daemonInfo, error) {
	var info daemonInfo
	//nolint:gosec // path is configured by the local user
	data, err := os.ReadFile(p.infoPath())
	if err != nil {
		return info, err
	}
	err = json.Unmarshal(data, &info)
	return info, err
}

func (p pidFile) Remove() {
	_ = os.Remove(string(p))
	_ = os.Remove(p.infoPath())
}

// ensureFree clears a stale pid file and errors if the recorded process is alive.
func (p pidFile) ensureFree() error {
	pid, err := p.Read()
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return err
	case processAlive(pid):
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	p.Remove()
	return nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// waitExit polls until pid is gone or the timeout passes.
func waitExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return true
		}
		time.Sleep(150 * time.Millisecond)
	}
	return false
}
