//go:build e2e

package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

// ServerProcess manages a peertrack tracker subprocess for E2E testing.
type ServerProcess struct {
	cmd           *exec.Cmd
	apiPort       int
	trackerPort   int
	logFile       string
	configFile    string
	process       *os.Process
	logFileHandle *os.File
}

// HealthResponse represents the /health endpoint response structure.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
	Data      struct {
		Service   string `json:"service,omitempty"`
		StartedAt string `json:"started_at,omitempty"`
		Uptime    string `json:"uptime,omitempty"`
		UptimeSec int64  `json:"uptime_sec,omitempty"`
	} `json:"data,omitempty"`
}

// FindFreePort finds an available TCP port by binding to :0 and reading the assigned port.
func FindFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer func() { _ = listener.Close() }()

	return listener.Addr().(*net.TCPAddr).Port
}

// FindFreeUDPPort finds an available UDP port.
func FindFreeUDPPort(t *testing.T) int {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("Failed to find free UDP port: %v", err)
	}
	defer func() { _ = conn.Close() }()

	return conn.LocalAddr().(*net.UDPAddr).Port
}

// ServerOptions tunes the generated tracker configuration.
type ServerOptions struct {
	PacketMaxSize int
	CatalogYAML   string
	Env           []string
}

// StartServerProcess starts `peertrack start` with a generated config bound
// to free ports and waits until /health/ready answers.
func StartServerProcess(t *testing.T, opts ServerOptions) *ServerProcess {
	t.Helper()

	stateDir := t.TempDir()
	apiPort := FindFreePort(t)
	trackerPort := FindFreeUDPPort(t)

	if opts.PacketMaxSize == 0 {
		opts.PacketMaxSize = 1024
	}

	configFile := filepath.Join(stateDir, "config.yaml")
	config := fmt.Sprintf(`logging:
  level: DEBUG
  output: stdout
server:
  address: 127.0.0.1
  port: %d
  packet_max_size: %d
  poll_interval: 100ms
api:
  address: 127.0.0.1
  port: %d
metrics:
  enabled: true
%s`, trackerPort, opts.PacketMaxSize, apiPort, opts.CatalogYAML)
	if err := os.WriteFile(configFile, []byte(config), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	logFile := filepath.Join(stateDir, "peertrack.log")
	logFileHandle, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("Failed to create log file: %v", err)
	}

	cmd := exec.Command(FindBinary(t), "start", "--config", configFile)
	cmd.Env = append(filteredEnv(), opts.Env...)
	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle

	if err := cmd.Start(); err != nil {
		_ = logFileHandle.Close()
		t.Fatalf("Failed to start peertrack: %v", err)
	}

	sp := &ServerProcess{
		cmd:           cmd,
		apiPort:       apiPort,
		trackerPort:   trackerPort,
		logFile:       logFile,
		configFile:    configFile,
		process:       cmd.Process,
		logFileHandle: logFileHandle,
	}

	if err := sp.WaitReady(5 * time.Second); err != nil {
		sp.dumpLogs(t)
		sp.ForceKill()
		t.Fatalf("Tracker failed to become ready: %v", err)
	}

	t.Cleanup(sp.ForceKill)
	return sp
}

// filteredEnv drops PEERTRACK_* variables so the host cannot skew a test.
func filteredEnv() []string {
	var env []string
	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, "PEERTRACK_") {
			env = append(env, e)
		}
	}
	return env
}

// WaitReady polls /health/ready until it returns 200 or timeout elapses.
func (sp *ServerProcess) WaitReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 500 * time.Millisecond}
	url := sp.APIURL() + "/health/ready"

	var lastErr error
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err != nil {
			lastErr = err
			time.Sleep(100 * time.Millisecond)
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			return nil
		}

		lastErr = fmt.Errorf("readiness returned %d: %s", resp.StatusCode, string(body))
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("tracker not ready after %v: %w", timeout, lastErr)
}

// CheckHealth performs a GET /health and parses the response.
func (sp *ServerProcess) CheckHealth() (*HealthResponse, error) {
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(sp.APIURL() + "/health")
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var healthResp HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}

	return &healthResp, nil
}

// Metrics returns the raw Prometheus exposition.
func (sp *ServerProcess) Metrics() (string, error) {
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(sp.APIURL() + "/metrics")
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	return string(body), err
}

// SendSignal sends a signal to the server process.
func (sp *ServerProcess) SendSignal(sig syscall.Signal) error {
	if sp.process == nil {
		return fmt.Errorf("no process to signal")
	}
	return sp.process.Signal(sig)
}

// WaitForExit waits for the process to exit within the timeout.
func (sp *ServerProcess) WaitForExit(timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- sp.cmd.Wait()
	}()

	select {
	case err := <-done:
		sp.process = nil
		return err
	case <-time.After(timeout):
		return fmt.Errorf("process did not exit within %v", timeout)
	}
}

// ForceKill terminates the server process: SIGTERM first, SIGKILL after 2s.
func (sp *ServerProcess) ForceKill() {
	if sp.process != nil {
		_ = sp.process.Signal(syscall.SIGTERM)

		done := make(chan struct{})
		go func() {
			_ = sp.cmd.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			_ = sp.process.Kill()
			<-done
		}
		sp.process = nil
	}

	if sp.logFileHandle != nil {
		_ = sp.logFileHandle.Close()
		sp.logFileHandle = nil
	}
}

// StopGracefully sends SIGTERM and waits for clean exit.
func (sp *ServerProcess) StopGracefully() error {
	if err := sp.SendSignal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}
	return sp.WaitForExit(10 * time.Second)
}

// TrackerAddr returns the UDP address of the tracker.
func (sp *ServerProcess) TrackerAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", sp.trackerPort)
}

// APIURL returns the admin API base URL.
func (sp *ServerProcess) APIURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", sp.apiPort)
}

// ConfigFile returns the path to the generated config file.
func (sp *ServerProcess) ConfigFile() string {
	return sp.configFile
}

// Logs returns the server log contents.
func (sp *ServerProcess) Logs() string {
	data, _ := os.ReadFile(sp.logFile)
	return string(data)
}

func (sp *ServerProcess) dumpLogs(t *testing.T) {
	t.Helper()
	t.Logf("=== peertrack log (%s) ===\n%s", sp.logFile, sp.Logs())
}
