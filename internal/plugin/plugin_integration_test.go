package plugin

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// buildPlugin compiles plugins/<name> into a temp plugin directory.
func buildPlugin(t *testing.T, name string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not available")
	}

	src := filepath.Join("..", "..", "plugins", name)
	manifest, err := os.ReadFile(filepath.Join(src, ManifestFile))
	if err != nil {
		t.Skipf("plugin source %s not found", src)
	}

	root := t.TempDir()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), manifest, 0644); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command("go", "build", "-o", filepath.Join(dir, name), ".")
	cmd.Dir = src
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build %s: %v\n%s", name, err, out)
	}
	return root
}

func TestPlugin_Webhook_Integration(t *testing.T) {
	root := buildPlugin(t, "webhook")

	mgr := NewManager(root)
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	p, err := mgr.Get("webhook")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	// Without a url the plugin answers with a failure instead of crashing.
	resp, err := NewExecutor(10*time.Second).Execute(context.Background(), p, &Request{
		Event:  "window-in",
		Zone:   "btn1",
		Action: "post",
		Config: json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Success {
		t.Error("expected failure without a url")
	}
}

func TestPlugin_Keyboard_Integration(t *testing.T) {
	if runtime.GOOS != "darwin" {
		t.Skip("keyboard plugin only works on macOS")
	}
	root := buildPlugin(t, "keyboard")

	mgr := NewManager(root)
	mgr.Discover()
	p, err := mgr.Get("keyboard")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{
		Event:  "window-in",
		Zone:   "btn1",
		Action: "keystroke",
		Config: json.RawMessage(`{"key": ""}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Success {
		t.Error("expected failure for empty key")
	}
}
