package audioctl

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

type recordingNotifier struct {
	titles []string
}

func (rn *recordingNotifier) Notify(title string, message string) {
	rn.titles = append(rn.titles, title)
}

// chdirTemp moves the process into a fresh directory so config loading sees a
// controlled config.yaml. Tests using it must not run in parallel.
func chdirTemp(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { os.Chdir(orig) })

	return dir
}

func newTestConfig(t *testing.T) (*CanonicalConfig, *recordingNotifier) {
	t.Helper()

	notifier := &recordingNotifier{}

	config, err := NewConfig(zap.NewNop().Sugar(), notifier)
	if err != nil {
		t.Fatalf("NewConfig error = %v", err)
	}

	return config, notifier
}

func TestConfigLoad_MissingFileUsesDefaults(t *testing.T) {
	chdirTemp(t)
	config, _ := newTestConfig(t)

	if err := config.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if config.PollInterval != time.Second {
		t.Errorf("PollInterval = %v, want 1s", config.PollInterval)
	}
	if !config.Notifications {
		t.Error("Notifications = false, want the default true")
	}
	if len(config.DeviceAliases) != 0 {
		t.Errorf("DeviceAliases = %v, want empty", config.DeviceAliases)
	}
}

func TestConfigLoad(t *testing.T) {
	dir := chdirTemp(t)

	content := `device_aliases:
  Desk: Speakers
poll_interval_ms: 250
notifications: false
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	config, _ := newTestConfig(t)

	if err := config.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// alias names are matched case-insensitively
	for _, name := range []string{"desk", "Desk", "DESK"} {
		if got := config.ResolveAlias(name); got != "Speakers" {
			t.Errorf("ResolveAlias(%q) = %q, want Speakers", name, got)
		}
	}

	if got := config.ResolveAlias("unknown"); got != "unknown" {
		t.Errorf("ResolveAlias(unknown) = %q, want the input unchanged", got)
	}

	names := config.AliasNames()
	if len(names) != 1 || names[0] != "desk" {
		t.Errorf("AliasNames() = %v, want [desk]", names)
	}

	if config.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval = %v, want 250ms", config.PollInterval)
	}
	if config.Notifications {
		t.Error("Notifications = true, want false")
	}
}

func TestConfigLoad_InvalidPollIntervalFallsBack(t *testing.T) {
	dir := chdirTemp(t)

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("poll_interval_ms: -50\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	config, _ := newTestConfig(t)

	if err := config.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if config.PollInterval != time.Second {
		t.Errorf("PollInterval = %v, want the 1s fallback", config.PollInterval)
	}
}

func TestConfigLoad_InvalidYamlNotifies(t *testing.T) {
	dir := chdirTemp(t)

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("\t: not yaml : ["), 0o644); err != nil {
		t.Fatal(err)
	}

	config, notifier := newTestConfig(t)

	if err := config.Load(); err == nil {
		t.Fatal("Load() error = nil, want a parse failure")
	}

	if len(notifier.titles) == 0 {
		t.Error("invalid config produced no notification")
	}
}
