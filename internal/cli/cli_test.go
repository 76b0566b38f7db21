package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func executeCommand(args ...string) (string, error) {
	root := NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := NewRootCommand()
	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"watch", "settings"} {
		if !names[want] {
			t.Fatalf("missing subcommand %q", want)
		}
	}
}

func TestSettingsPrintsMergedLayers(t *testing.T) {
	config := writeFile(t, "roomsync.yaml", "bridge:\n  poll_interval_ms: 400\n")
	out, err := executeCommand("settings", "--config", config, "--engine", "cel")
	if err != nil {
		t.Fatalf("settings: %v\n%s", err, out)
	}
	for _, want := range []string{"poll_interval_ms: 400", "rule_engine: cel", "namespace: RoboScapeOnline_fns"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestSettingsJSON(t *testing.T) {
	out, err := executeCommand("settings", "--format", "json", "--push=false")
	if err != nil {
		t.Fatalf("settings: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"push": false`) {
		t.Fatalf("expected push false in:\n%s", out)
	}
}

func TestSettingsExplain(t *testing.T) {
	t.Setenv("ROOMSYNC_BRIDGE_POLL_INTERVAL_MS", "300")
	config := writeFile(t, "roomsync.json", `{"bridge": {"poll_interval_ms": 400}}`)
	out, err := executeCommand("settings", "--config", config, "--explain", "bridge.poll_interval_ms")
	if err != nil {
		t.Fatalf("settings: %v\n%s", err, out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 || lines[0] != "bridge.poll_interval_ms" {
		t.Fatalf("unexpected explain output:\n%s", out)
	}
	if !strings.HasPrefix(lines[1], "  flags") {
		t.Fatalf("expected unset flags layer first, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "* env") || !strings.HasSuffix(lines[2], "300") {
		t.Fatalf("expected env to win, got %q", lines[2])
	}
	if !strings.HasSuffix(lines[3], "400") || !strings.HasSuffix(lines[4], "1000") {
		t.Fatalf("expected file and defaults values, got:\n%s", out)
	}
}

func TestSettingsRejectsInvalid(t *testing.T) {
	if _, err := executeCommand("settings", "--engine", "lua"); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestSettingsSetUsesRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	out, err := executeCommand("settings", "set", "--redis", mr.Addr(), "extension.roboscape_beep=false", "bridge.poll_interval_ms=250")
	if err != nil {
		t.Fatalf("set: %v\n%s", err, out)
	}
	if !strings.Contains(out, "saved extension etag=") {
		t.Fatalf("unexpected set output %q", out)
	}

	out, err = executeCommand("settings", "--redis", mr.Addr(), "--explain", "extension.roboscape_beep")
	if err != nil {
		t.Fatalf("explain: %v\n%s", err, out)
	}
	if !strings.Contains(out, "* stored") {
		t.Fatalf("expected stored layer to win:\n%s", out)
	}

	if _, err := executeCommand("settings", "set", "--redis", mr.Addr(), "--etag", "stale", "bridge.push=false"); err == nil {
		t.Fatalf("expected etag mismatch")
	}
	if _, err := executeCommand("settings", "set", "--redis", mr.Addr(), "bridge.bogus=1"); err == nil {
		t.Fatalf("expected unknown path error")
	}
	if _, err := executeCommand("settings", "set", "bridge.push=false"); err == nil {
		t.Fatalf("expected missing redis error")
	}
}

func TestWatchPrintsRoomChanges(t *testing.T) {
	script := writeFile(t, "loader.js", `
		var current = "room42";
		RoboScapeOnline_fns = { room_id: function () { return current; } };
		setTimeout(function () { current = "room7"; }, 30);
	`)
	out, err := executeCommand("watch", "--script", script, "--interval", "10ms", "--for", "300ms")
	if err != nil {
		t.Fatalf("watch: %v\n%s", err, out)
	}
	first := strings.Index(out, "room: room42")
	second := strings.Index(out, "room: room7")
	if first < 0 || second < first {
		t.Fatalf("expected room42 then room7 in output:\n%s", out)
	}
	if strings.Count(out, "room: room42") != 1 {
		t.Fatalf("expected repeated reconciliations to be collapsed:\n%s", out)
	}
}

func TestWatchMissingScript(t *testing.T) {
	if _, err := executeCommand("watch", "--script", filepath.Join(t.TempDir(), "missing.js"), "--for", "10ms"); err == nil {
		t.Fatalf("expected missing script error")
	}
}

func TestSettingsDescribe(t *testing.T) {
	out, err := executeCommand("settings", "--describe")
	if err != nil {
		t.Fatalf("describe: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ROOMSYNC_BRIDGE_POLL_INTERVAL_MS") || !strings.Contains(out, "extension.roboscape_id_billboards") {
		t.Fatalf("unexpected describe output:\n%s", out)
	}
}
