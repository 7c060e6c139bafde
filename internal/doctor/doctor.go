// Package doctor runs runtime readiness diagnostics for config, labels,
// camera, and the inference server.
package doctor

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lcampos/visor/internal/config"
	"github.com/lcampos/visor/internal/labels"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: message})

	checks = append(checks, checkServerURL(cfg.Config.Server.URL))
	checks = append(checks, checkServerReachable(cfg.Config.Server.URL))
	checks = append(checks, checkLabelsFile(cfg.Config.Labels.File))
	checks = append(checks, checkCamera(cfg.Config.Camera))

	return Report{Checks: checks}
}

// checkServerURL validates the server URL shape without touching the network.
func checkServerURL(raw string) Check {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Check{Name: "server.url", Pass: false, Message: fmt.Sprintf("invalid URL: %v", err)}
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return Check{Name: "server.url", Pass: false, Message: fmt.Sprintf("scheme must be ws or wss, got %q", parsed.Scheme)}
	}
	if parsed.Host == "" {
		return Check{Name: "server.url", Pass: false, Message: "URL has no host"}
	}
	return Check{Name: "server.url", Pass: true, Message: fmt.Sprintf("well-formed (%s)", raw)}
}

// checkServerReachable probes the server's TCP endpoint. A WebSocket
// handshake is not attempted; this only surfaces "nothing is listening".
func checkServerReachable(raw string) Check {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return Check{Name: "server.reachable", Pass: false, Message: "server URL is not probeable"}
	}

	hostport := parsed.Host
	if parsed.Port() == "" {
		port := "80"
		if parsed.Scheme == "wss" {
			port = "443"
		}
		hostport = net.JoinHostPort(parsed.Hostname(), port)
	}

	conn, err := net.DialTimeout("tcp", hostport, 2*time.Second)
	if err != nil {
		return Check{Name: "server.reachable", Pass: false, Message: fmt.Sprintf("dial failed: %v", err)}
	}
	_ = conn.Close()
	return Check{Name: "server.reachable", Pass: true, Message: fmt.Sprintf("accepting connections at %s", hostport)}
}

// checkLabelsFile validates the class-label table when one is configured.
// An unset file is allowed: detections resolve to the unknown label.
func checkLabelsFile(path string) Check {
	if strings.TrimSpace(path) == "" {
		return Check{Name: "labels.file", Pass: true, Message: fmt.Sprintf("not set; classes resolve to %q", labels.Unknown)}
	}

	expanded := config.ExpandUserPath(path)
	table, err := labels.Load(expanded)
	if err != nil {
		return Check{Name: "labels.file", Pass: false, Message: fmt.Sprintf("unreadable: %v", err)}
	}
	return Check{Name: "labels.file", Pass: true, Message: fmt.Sprintf("%d labels from %q", table.Len(), expanded)}
}

// checkCamera validates the configured frame source.
func checkCamera(cfg config.CameraConfig) Check {
	switch cfg.Source {
	case "still":
		return Check{Name: "camera", Pass: true, Message: "still source needs no files"}
	case "dir":
		return checkCameraDir(cfg.Dir)
	default:
		return Check{Name: "camera", Pass: false, Message: fmt.Sprintf("unknown source %q", cfg.Source)}
	}
}

func checkCameraDir(dir string) Check {
	if strings.TrimSpace(dir) == "" {
		return Check{Name: "camera", Pass: false, Message: "dir source requires camera.dir"}
	}

	expanded := config.ExpandUserPath(dir)
	entries, err := os.ReadDir(expanded)
	if err != nil {
		return Check{Name: "camera", Pass: false, Message: fmt.Sprintf("unreadable: %v", err)}
	}

	frames := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			frames++
		}
	}
	if frames == 0 {
		return Check{Name: "camera", Pass: false, Message: fmt.Sprintf("no frame images in %q", expanded)}
	}
	return Check{Name: "camera", Pass: true, Message: fmt.Sprintf("%d frame images in %q", frames, expanded)}
}
