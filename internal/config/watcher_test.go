package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const watcherBaseConfig = `
identities: [bot_a]
min_interval_min: 5
max_interval_min: 60
`

// newIdleWatcher builds a watcher without its goroutines so checkAndReload
// can be driven synchronously.
func newIdleWatcher(path string, current *Config, onChange func(old, new *Config)) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		current:  current,
		stopCh:   make(chan struct{}),
	}
}

func TestCheckAndReloadAppliesValidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(watcherBaseConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	current, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var gotOld, gotNew *Config
	w := newIdleWatcher(path, current, func(old, new *Config) {
		gotOld, gotNew = old, new
	})

	updated := watcherBaseConfig + "debug: true\n"
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	// Force a strictly newer mtime than the zero value the watcher holds.
	future := time.Now().Add(time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	w.checkAndReload()

	if gotNew == nil {
		t.Fatal("onChange not invoked")
	}
	if gotOld.Debug || !gotNew.Debug {
		t.Fatalf("debug old/new = %v/%v", gotOld.Debug, gotNew.Debug)
	}
}

func TestCheckAndReloadKeepsPreviousOnInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(watcherBaseConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	current, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	called := false
	w := newIdleWatcher(path, current, func(old, new *Config) { called = true })

	// Strictly-less bound violated: the reload must be rejected.
	invalid := "identities: [bot_a]\nmin_interval_min: 60\nmax_interval_min: 5\n"
	if err := os.WriteFile(path, []byte(invalid), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	future := time.Now().Add(time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	w.checkAndReload()

	if called {
		t.Fatal("onChange invoked for invalid config")
	}
	if w.current != current {
		t.Fatal("current config replaced despite invalid reload")
	}
}

func TestCheckAndReloadSkipsUnchangedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(watcherBaseConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	current, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	called := false
	w := newIdleWatcher(path, current, func(old, new *Config) { called = true })
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	w.lastMod = info.ModTime()

	w.checkAndReload()
	if called {
		t.Fatal("onChange invoked for unchanged file")
	}
}
