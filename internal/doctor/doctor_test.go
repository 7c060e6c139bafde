package doctor

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lcampos/visor/internal/config"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckServerURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		pass bool
	}{
		{name: "ws", url: "ws://127.0.0.1:8000/ws", pass: true},
		{name: "wss", url: "wss://inference.local/ws", pass: true},
		{name: "http scheme", url: "http://127.0.0.1:8000/ws", pass: false},
		{name: "no host", url: "ws:///ws", pass: false},
		{name: "garbage", url: "ws://bad url with spaces", pass: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.pass, checkServerURL(tt.url).Pass)
		})
	}
}

func TestCheckServerReachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	check := checkServerReachable(fmt.Sprintf("ws://%s/ws", listener.Addr()))
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "accepting connections")
}

func TestCheckServerReachableNothingListening(t *testing.T) {
	check := checkServerReachable("ws://127.0.0.1:1/ws")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "dial failed")
}

func TestCheckLabelsFileUnsetIsTolerated(t *testing.T) {
	check := checkLabelsFile("")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "not set")
}

func TestCheckLabelsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("person\ncell phone\ncup\n"), 0o644))

	check := checkLabelsFile(path)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "3 labels")
}

func TestCheckLabelsFileMissing(t *testing.T) {
	check := checkLabelsFile(filepath.Join(t.TempDir(), "absent.txt"))
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "unreadable")
}

func TestCheckCameraStill(t *testing.T) {
	check := checkCamera(config.CameraConfig{Source: "still"})
	require.True(t, check.Pass)
}

func TestCheckCameraUnknownSource(t *testing.T) {
	check := checkCamera(config.CameraConfig{Source: "webcam"})
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "unknown source")
}

func TestCheckCameraDir(t *testing.T) {
	dir := t.TempDir()

	check := checkCamera(config.CameraConfig{Source: "dir", Dir: dir})
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "no frame images")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame.jpg"), []byte("x"), 0o644))
	check = checkCamera(config.CameraConfig{Source: "dir", Dir: dir})
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "1 frame images")
}

func TestCheckCameraDirUnset(t *testing.T) {
	check := checkCamera(config.CameraConfig{Source: "dir"})
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "requires camera.dir")
}

func TestRunProducesAllChecks(t *testing.T) {
	cfg := config.Default()
	cfg.Server.URL = "ws://127.0.0.1:1/ws"

	report := Run(config.Loaded{Path: "/tmp/config.conf", Config: cfg, Exists: true})

	names := make([]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		names = append(names, check.Name)
	}
	require.Equal(t, []string{"config", "server.url", "server.reachable", "labels.file", "camera"}, names)
}
