package audioctl

import (
	"fmt"
	"math"
	"strings"

	ps "github.com/mitchellh/go-ps"
	funk "github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/soundops/audioctl/pkg/audioctl/util"
)

// masterUsage is the role set master-volume and session lookups resolve
// their playback endpoint against
const masterUsage = RoleSystem | RoleMultimedia

// notAVolume is the read sentinel for "no default playback endpoint exists"
var notAVolume = float32(math.NaN())

// Mixer locates volume controls on the current default playback endpoint:
// the device-wide master control and the per-process session controls.
// Every operation resolves the endpoint and its handles fresh, nothing is
// cached across calls - both the default device and the session list can
// change underneath us at any moment. Having no audio device present is an
// expected, signal-free condition: reads degrade to NaN, writes to a no-op.
type Mixer struct {
	logger    *zap.SugaredLogger
	directory *Directory
	provider  Provider
}

// NewMixer creates a mixer over the given directory and provider
func NewMixer(logger *zap.SugaredLogger, directory *Directory, provider Provider) *Mixer {
	m := &Mixer{
		logger:    logger.Named("mixer"),
		directory: directory,
		provider:  provider,
	}

	m.logger.Debug("Created mixer instance")

	return m
}

// masterControl resolves the device-wide volume handle of the current default
// playback endpoint, or nil when none exists
func (m *Mixer) masterControl() VolumeHandle {
	device, err := m.directory.DefaultDevice(Playback, masterUsage)
	if err != nil {
		m.logger.Warnw("Failed to resolve default playback device", "error", err)
		return nil
	}

	if device == nil {
		m.logger.Debug("No default playback device present")
		return nil
	}

	handle, err := m.provider.VolumeControl(device.ID)
	if err != nil {
		m.logger.Warnw("Failed to get master volume control",
			"device", device.FriendlyName,
			"error", err)

		return nil
	}

	return handle
}

// MasterVolume returns the master volume scalar in [0, 1], or NaN when no
// default playback endpoint exists
func (m *Mixer) MasterVolume() float32 {
	handle := m.masterControl()
	if handle == nil {
		return notAVolume
	}
	defer handle.Release()

	level, err := handle.Volume()
	if err != nil {
		m.logger.Warnw("Failed to get master volume", "error", err)
		return notAVolume
	}

	return level
}

// SetMasterVolume sets the master volume. Out-of-range levels are clamped to
// [0, 1], never rejected. Silently a no-op when no default playback endpoint
// exists.
func (m *Mixer) SetMasterVolume(level float32) {
	handle := m.masterControl()
	if handle == nil {
		return
	}
	defer handle.Release()

	level = util.Clamp(level)

	if err := handle.SetVolume(level); err != nil {
		m.logger.Warnw("Failed to set master volume", "volume", level, "error", err)
		return
	}

	m.logger.Debugw("Adjusting master volume", "to", fmt.Sprintf("%.2f", level))
}

// AdjustMasterVolume steps the master volume by amount and returns the new
// level, always clamped to [0, 1]. Single read-modify-write: not atomic with
// respect to concurrent external volume changes, last writer wins. Returns
// NaN when no default playback endpoint exists.
func (m *Mixer) AdjustMasterVolume(amount float32) float32 {
	handle := m.masterControl()
	if handle == nil {
		return notAVolume
	}
	defer handle.Release()

	current, err := handle.Volume()
	if err != nil {
		m.logger.Warnw("Failed to get master volume", "error", err)
		return notAVolume
	}

	level := util.Clamp(current + amount)

	if err := handle.SetVolume(level); err != nil {
		m.logger.Warnw("Failed to set master volume", "volume", level, "error", err)
		return notAVolume
	}

	m.logger.Debugw("Adjusting master volume", "to", fmt.Sprintf("%.2f", level))

	return level
}

// MasterMute returns the master mute flag, false when no default playback
// endpoint exists
func (m *Mixer) MasterMute() bool {
	handle := m.masterControl()
	if handle == nil {
		return false
	}
	defer handle.Release()

	muted, err := handle.Mute()
	if err != nil {
		m.logger.Warnw("Failed to get master mute state", "error", err)
		return false
	}

	return muted
}

// SetMasterMute sets the master mute flag, silently a no-op when no default
// playback endpoint exists
func (m *Mixer) SetMasterMute(mute bool) {
	handle := m.masterControl()
	if handle == nil {
		return
	}
	defer handle.Release()

	if err := handle.SetMute(mute); err != nil {
		m.logger.Warnw("Failed to set master mute state", "muted", mute, "error", err)
		return
	}

	m.logger.Debugw("Setting master mute state", "muted", mute)
}

// ToggleMasterMute inverts the master mute flag and returns the new value.
// Read-modify-write, last writer wins. Returns false when no default playback
// endpoint exists.
func (m *Mixer) ToggleMasterMute() bool {
	handle := m.masterControl()
	if handle == nil {
		return false
	}
	defer handle.Release()

	muted, err := handle.Mute()
	if err != nil {
		m.logger.Warnw("Failed to get master mute state", "error", err)
		return false
	}

	if err := handle.SetMute(!muted); err != nil {
		m.logger.Warnw("Failed to set master mute state", "muted", !muted, "error", err)
		return muted
	}

	m.logger.Debugw("Setting master mute state", "muted", !muted)

	return !muted
}

// applicationSession scans the default playback endpoint's current session
// list for the first one owned by pid. The lookup is fresh on every call:
// sessions are tied to process lifetime, so a handle held across calls would
// go stale without notice. Returns nil when the endpoint is unresolvable or
// no session matches.
func (m *Mixer) applicationSession(pid uint32) SessionHandle {
	device, err := m.directory.DefaultDevice(Playback, masterUsage)
	if err != nil {
		m.logger.Warnw("Failed to resolve default playback device", "error", err)
		return nil
	}

	if device == nil {
		m.logger.Debug("No default playback device present")
		return nil
	}

	sessions, err := m.provider.Sessions(device.ID)
	if err != nil {
		m.logger.Warnw("Failed to get audio sessions",
			"device", device.FriendlyName,
			"error", err)

		return nil
	}

	var match SessionHandle
	for _, session := range sessions {
		if match == nil && session.ProcessID() == pid {
			match = session
		} else {
			session.Release()
		}
	}

	if match == nil {
		m.logger.Debugw("No audio session for process", "pid", pid)
	}

	return match
}

// ApplicationVolume returns the session volume scalar of the given process.
// The second return value is false when the process has no audio session on
// the default playback endpoint.
func (m *Mixer) ApplicationVolume(pid uint32) (float32, bool) {
	session := m.applicationSession(pid)
	if session == nil {
		return 0, false
	}
	defer session.Release()

	level, err := session.Volume()
	if err != nil {
		m.logger.Warnw("Failed to get session volume", "pid", pid, "error", err)
		return 0, false
	}

	return level, true
}

// SetApplicationVolume sets the session volume of the given process, clamped
// to [0, 1]. Returns false when the process has no audio session.
func (m *Mixer) SetApplicationVolume(pid uint32, level float32) bool {
	session := m.applicationSession(pid)
	if session == nil {
		return false
	}
	defer session.Release()

	level = util.Clamp(level)

	if err := session.SetVolume(level); err != nil {
		m.logger.Warnw("Failed to set session volume", "pid", pid, "volume", level, "error", err)
		return false
	}

	m.logger.Debugw("Adjusting session volume",
		"process", m.processName(pid),
		"to", fmt.Sprintf("%.2f", level))

	return true
}

// AdjustApplicationVolume steps the session volume of the given process by
// amount and returns the new level, clamped to [0, 1]. Read-modify-write,
// last writer wins.
func (m *Mixer) AdjustApplicationVolume(pid uint32, amount float32) (float32, bool) {
	session := m.applicationSession(pid)
	if session == nil {
		return 0, false
	}
	defer session.Release()

	current, err := session.Volume()
	if err != nil {
		m.logger.Warnw("Failed to get session volume", "pid", pid, "error", err)
		return 0, false
	}

	level := util.Clamp(current + amount)

	if err := session.SetVolume(level); err != nil {
		m.logger.Warnw("Failed to set session volume", "pid", pid, "volume", level, "error", err)
		return 0, false
	}

	return level, true
}

// ApplicationMute returns the session mute flag of the given process
func (m *Mixer) ApplicationMute(pid uint32) (bool, bool) {
	session := m.applicationSession(pid)
	if session == nil {
		return false, false
	}
	defer session.Release()

	muted, err := session.Mute()
	if err != nil {
		m.logger.Warnw("Failed to get session mute state", "pid", pid, "error", err)
		return false, false
	}

	return muted, true
}

// SetApplicationMute sets the session mute flag of the given process
func (m *Mixer) SetApplicationMute(pid uint32, mute bool) bool {
	session := m.applicationSession(pid)
	if session == nil {
		return false
	}
	defer session.Release()

	if err := session.SetMute(mute); err != nil {
		m.logger.Warnw("Failed to set session mute state", "pid", pid, "muted", mute, "error", err)
		return false
	}

	m.logger.Debugw("Setting session mute state",
		"process", m.processName(pid),
		"muted", mute)

	return true
}

// ToggleApplicationMute inverts the session mute flag of the given process
// and returns the new value. Read-modify-write, last writer wins.
func (m *Mixer) ToggleApplicationMute(pid uint32) (bool, bool) {
	session := m.applicationSession(pid)
	if session == nil {
		return false, false
	}
	defer session.Release()

	muted, err := session.Mute()
	if err != nil {
		m.logger.Warnw("Failed to get session mute state", "pid", pid, "error", err)
		return false, false
	}

	if err := session.SetMute(!muted); err != nil {
		m.logger.Warnw("Failed to set session mute state", "pid", pid, "muted", !muted, "error", err)
		return false, false
	}

	return !muted, true
}

// PidByName resolves a running process by executable name, matched
// case-insensitively with or without the .exe suffix. First match wins.
func (m *Mixer) PidByName(name string) (uint32, bool) {
	procs, err := ps.Processes()
	if err != nil {
		m.logger.Warnw("Failed to enumerate processes", "error", err)
		return 0, false
	}

	candidates := funk.UniqString([]string{
		strings.ToLower(name),
		strings.ToLower(strings.TrimSuffix(name, ".exe")),
	})

	for _, proc := range procs {
		executable := strings.ToLower(proc.Executable())

		if funk.ContainsString(candidates, executable) ||
			funk.ContainsString(candidates, strings.TrimSuffix(executable, ".exe")) {
			return uint32(proc.Pid()), true
		}
	}

	return 0, false
}

// processName resolves an executable name for logging, falling back to the
// numeric pid when the process is already gone
func (m *Mixer) processName(pid uint32) string {
	proc, err := ps.FindProcess(int(pid))
	if err != nil || proc == nil {
		return fmt.Sprintf("pid %d", pid)
	}

	return proc.Executable()
}
