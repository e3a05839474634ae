package audioctl

import (
	"math"
	"os"
	"strings"
	"testing"

	ps "github.com/mitchellh/go-ps"
	"go.uber.org/zap"
)

// newTestMixer wires a mixer over a fake provider with a single default
// playback endpoint DEV-P carrying the given master handle and sessions
func newTestMixer(handle *fakeHandle, sessions ...*fakeSession) (*Mixer, *fakeProvider) {
	provider := newFakeProvider()
	provider.addEndpoint(Playback, "DEV-P", "Speakers")
	provider.defaults[Playback][RoleMultimedia] = "DEV-P"

	if handle != nil {
		provider.volumes["DEV-P"] = handle
	}
	provider.sessions["DEV-P"] = sessions

	logger := zap.NewNop().Sugar()
	directory := NewDirectory(logger, provider)

	return NewMixer(logger, directory, provider), provider
}

func newAbsentMixer() *Mixer {
	logger := zap.NewNop().Sugar()
	provider := newFakeProvider()
	directory := NewDirectory(logger, provider)

	return NewMixer(logger, directory, provider)
}

func TestMasterVolume(t *testing.T) {
	t.Parallel()

	handle := &fakeHandle{volume: 0.42}
	mixer, _ := newTestMixer(handle)

	if got := mixer.MasterVolume(); got != 0.42 {
		t.Errorf("MasterVolume() = %v, want 0.42", got)
	}
	if handle.released != 1 {
		t.Errorf("handle released %d times, want 1", handle.released)
	}
}

func TestMasterVolume_NoDefaultDevice(t *testing.T) {
	t.Parallel()

	mixer := newAbsentMixer()

	if got := mixer.MasterVolume(); !math.IsNaN(float64(got)) {
		t.Errorf("MasterVolume() with no device = %v, want NaN", got)
	}
}

func TestMasterVolume_HandleFailure(t *testing.T) {
	t.Parallel()

	handle := &fakeHandle{volumeErr: errFakeVolume}
	mixer, _ := newTestMixer(handle)

	if got := mixer.MasterVolume(); !math.IsNaN(float64(got)) {
		t.Errorf("MasterVolume() on handle failure = %v, want NaN", got)
	}
}

func TestSetMasterVolume_Clamps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		level float32
		want  float32
	}{
		{"in range", 0.5, 0.5},
		{"above full", 1.5, 1.0},
		{"below zero", -0.25, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle := &fakeHandle{volume: 0.3}
			mixer, _ := newTestMixer(handle)

			mixer.SetMasterVolume(tt.level)

			if handle.volume != tt.want {
				t.Errorf("SetMasterVolume(%v) stored %v, want %v", tt.level, handle.volume, tt.want)
			}
		})
	}
}

func TestSetMasterVolume_NaNWritesInRange(t *testing.T) {
	t.Parallel()

	handle := &fakeHandle{volume: 0.3}
	mixer, _ := newTestMixer(handle)

	mixer.SetMasterVolume(float32(math.NaN()))

	if math.IsNaN(float64(handle.volume)) || handle.volume < 0 || handle.volume > 1 {
		t.Errorf("SetMasterVolume(NaN) stored %v, want a value in [0, 1]", handle.volume)
	}
}

func TestAdjustMasterVolume_NaNAmount(t *testing.T) {
	t.Parallel()

	handle := &fakeHandle{volume: 0.5}
	mixer, _ := newTestMixer(handle)

	got := mixer.AdjustMasterVolume(float32(math.NaN()))

	if math.IsNaN(float64(got)) || got < 0 || got > 1 {
		t.Errorf("AdjustMasterVolume(NaN) = %v, want a value in [0, 1]", got)
	}
	if math.IsNaN(float64(handle.volume)) {
		t.Error("AdjustMasterVolume(NaN) wrote NaN to the device")
	}
}

func TestSetMasterVolume_NoDefaultDeviceIsNoOp(t *testing.T) {
	t.Parallel()

	mixer := newAbsentMixer()

	// must not panic, fail or signal
	mixer.SetMasterVolume(0.5)
	mixer.SetMasterMute(true)
}

func TestAdjustMasterVolume(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		start  float32
		amount float32
		want   float32
	}{
		{"step up", 0.5, 0.2, 0.7},
		{"step down", 0.5, -0.2, 0.3},
		{"clamped high", 0.9, 0.5, 1.0},
		{"clamped low", 0.1, -0.5, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle := &fakeHandle{volume: tt.start}
			mixer, _ := newTestMixer(handle)

			got := mixer.AdjustMasterVolume(tt.amount)

			if got != tt.want {
				t.Errorf("AdjustMasterVolume(%v) = %v, want %v", tt.amount, got, tt.want)
			}
			if handle.volume != tt.want {
				t.Errorf("stored volume = %v, want %v", handle.volume, tt.want)
			}
		})
	}
}

func TestAdjustMasterVolume_NoDefaultDevice(t *testing.T) {
	t.Parallel()

	mixer := newAbsentMixer()

	if got := mixer.AdjustMasterVolume(0.1); !math.IsNaN(float64(got)) {
		t.Errorf("AdjustMasterVolume() with no device = %v, want NaN", got)
	}
}

func TestToggleMasterMute_Involution(t *testing.T) {
	t.Parallel()

	handle := &fakeHandle{muted: false}
	mixer, _ := newTestMixer(handle)

	if got := mixer.ToggleMasterMute(); !got {
		t.Error("first toggle = false, want true")
	}
	if got := mixer.ToggleMasterMute(); got {
		t.Error("second toggle = true, want false")
	}
	if handle.muted {
		t.Error("two toggles left the handle muted")
	}
}

func TestMasterMute(t *testing.T) {
	t.Parallel()

	handle := &fakeHandle{}
	mixer, _ := newTestMixer(handle)

	mixer.SetMasterMute(true)
	if !mixer.MasterMute() {
		t.Error("MasterMute() = false after SetMasterMute(true)")
	}

	mixer.SetMasterMute(false)
	if mixer.MasterMute() {
		t.Error("MasterMute() = true after SetMasterMute(false)")
	}
}

func TestApplicationVolume(t *testing.T) {
	t.Parallel()

	session := &fakeSession{fakeHandle: fakeHandle{volume: 0.6}, pid: 1234}
	other := &fakeSession{fakeHandle: fakeHandle{volume: 0.1}, pid: 9999}
	mixer, _ := newTestMixer(nil, other, session)

	level, ok := mixer.ApplicationVolume(1234)
	if !ok {
		t.Fatal("ApplicationVolume(1234) ok = false, want true")
	}
	if level != 0.6 {
		t.Errorf("ApplicationVolume(1234) = %v, want 0.6", level)
	}

	// the non-matching session must still be released by the scan
	if other.released == 0 {
		t.Error("non-matching session was never released")
	}
}

func TestApplicationVolume_NoSession(t *testing.T) {
	t.Parallel()

	mixer, _ := newTestMixer(nil)

	if _, ok := mixer.ApplicationVolume(1234); ok {
		t.Error("ApplicationVolume with no session ok = true, want false")
	}
}

func TestApplicationVolume_FreshLookupSeesRemoval(t *testing.T) {
	t.Parallel()

	session := &fakeSession{fakeHandle: fakeHandle{volume: 0.6}, pid: 1234}
	mixer, provider := newTestMixer(nil, session)

	if _, ok := mixer.ApplicationVolume(1234); !ok {
		t.Fatal("ApplicationVolume before removal ok = false, want true")
	}

	// the process exits between calls; the next lookup must not find it
	provider.sessions["DEV-P"] = nil

	if _, ok := mixer.ApplicationVolume(1234); ok {
		t.Error("ApplicationVolume after removal ok = true, want false")
	}
}

func TestSetApplicationVolume_Clamps(t *testing.T) {
	t.Parallel()

	session := &fakeSession{fakeHandle: fakeHandle{volume: 0.5}, pid: 1234}
	mixer, _ := newTestMixer(nil, session)

	if !mixer.SetApplicationVolume(1234, 2.0) {
		t.Fatal("SetApplicationVolume = false, want true")
	}
	if session.volume != 1.0 {
		t.Errorf("stored session volume = %v, want 1.0", session.volume)
	}
}

func TestAdjustApplicationVolume(t *testing.T) {
	t.Parallel()

	session := &fakeSession{fakeHandle: fakeHandle{volume: 0.5}, pid: 1234}
	mixer, _ := newTestMixer(nil, session)

	level, ok := mixer.AdjustApplicationVolume(1234, -0.2)
	if !ok {
		t.Fatal("AdjustApplicationVolume ok = false, want true")
	}
	if math.Abs(float64(level-0.3)) > 1e-6 {
		t.Errorf("AdjustApplicationVolume = %v, want 0.3", level)
	}
}

func TestToggleApplicationMute_Involution(t *testing.T) {
	t.Parallel()

	session := &fakeSession{pid: 1234}
	mixer, _ := newTestMixer(nil, session)

	muted, ok := mixer.ToggleApplicationMute(1234)
	if !ok || !muted {
		t.Fatalf("first toggle = (%t, %t), want (true, true)", muted, ok)
	}

	muted, ok = mixer.ToggleApplicationMute(1234)
	if !ok || muted {
		t.Fatalf("second toggle = (%t, %t), want (false, true)", muted, ok)
	}
}

func TestPidByName(t *testing.T) {
	t.Parallel()

	mixer, _ := newTestMixer(nil)

	if _, ok := mixer.PidByName("no-such-executable-a6df2"); ok {
		t.Error("PidByName(bogus) ok = true, want false")
	}

	self, err := ps.FindProcess(os.Getpid())
	if err != nil || self == nil {
		t.Skipf("cannot resolve own process: %v", err)
	}

	pid, ok := mixer.PidByName(self.Executable())
	if !ok {
		t.Fatalf("PidByName(%q) ok = false, want true", self.Executable())
	}

	// the first match may be another process with the same executable name
	proc, err := ps.FindProcess(int(pid))
	if err != nil || proc == nil {
		t.Fatalf("resolved pid %d is not a live process", pid)
	}

	if !strings.EqualFold(
		strings.TrimSuffix(proc.Executable(), ".exe"),
		strings.TrimSuffix(self.Executable(), ".exe")) {
		t.Errorf("resolved pid %d runs %q, want %q", pid, proc.Executable(), self.Executable())
	}
}

func TestApplicationMute(t *testing.T) {
	t.Parallel()

	session := &fakeSession{pid: 1234}
	mixer, _ := newTestMixer(nil, session)

	if !mixer.SetApplicationMute(1234, true) {
		t.Fatal("SetApplicationMute = false, want true")
	}

	muted, ok := mixer.ApplicationMute(1234)
	if !ok || !muted {
		t.Errorf("ApplicationMute = (%t, %t), want (true, true)", muted, ok)
	}
}
