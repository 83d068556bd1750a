//go:build e2e

package helpers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

var (
	binaryOnce sync.Once
	binaryPath string
	binaryErr  error
)

// FindBinary returns the peertrack binary: $PEERTRACK_BINARY, then PATH,
// then a fresh build from the project root.
func FindBinary(t *testing.T) string {
	t.Helper()

	binaryOnce.Do(func() {
		if path := os.Getenv("PEERTRACK_BINARY"); path != "" {
			binaryPath = path
			return
		}
		if path, err := exec.LookPath("peertrack"); err == nil {
			binaryPath = path
			return
		}

		root, err := findProjectRoot()
		if err != nil {
			binaryErr = err
			return
		}
		out := filepath.Join(os.TempDir(), "peertrack-e2e")
		cmd := exec.Command("go", "build", "-o", out, "./cmd/peertrack/")
		cmd.Dir = root
		if output, err := cmd.CombinedOutput(); err != nil {
			binaryErr = fmt.Errorf("go build failed: %w\n%s", err, output)
			return
		}
		binaryPath = out
	})

	if binaryErr != nil {
		t.Fatalf("peertrack binary unavailable: %v", binaryErr)
	}
	return binaryPath
}

// findProjectRoot locates the project root by looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found above %s", dir)
		}
		dir = parent
	}
}

// CLIRunner executes peertrack client commands against one tracker with
// JSON output for reliable parsing.
type CLIRunner struct {
	t       *testing.T
	tracker string
	api     string
}

// NewCLIRunner creates a runner for the tracker at trackerAddr whose admin
// API is at apiURL.
func NewCLIRunner(t *testing.T, trackerAddr, apiURL string) *CLIRunner {
	return &CLIRunner{t: t, tracker: trackerAddr, api: apiURL}
}

// Run executes peertrack with --output json, --tracker and --api prepended.
func (r *CLIRunner) Run(args ...string) ([]byte, error) {
	full := append([]string{"--output", "json", "--tracker", r.tracker, "--api", r.api}, args...)

	cmd := exec.Command(FindBinary(r.t), full...)
	cmd.Env = filteredEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("peertrack %s failed: %w\nstderr: %s",
			strings.Join(args, " "), err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// RunJSON executes a command and decodes its JSON output into v.
func (r *CLIRunner) RunJSON(v any, args ...string) error {
	out, err := r.Run(args...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(out, v); err != nil {
		return fmt.Errorf("failed to parse output of %s: %w\noutput: %s", strings.Join(args, " "), err, out)
	}
	return nil
}
