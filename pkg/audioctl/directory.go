package audioctl

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrEmptyDeviceID is returned by default-assignment calls that were given no
// device identity. It is raised before any platform call is attempted.
var ErrEmptyDeviceID = errors.New("empty device id")

// Directory enumerates audio devices and resolves their default-role state.
// It holds no device state of its own: every query is a fresh round-trip to
// the provider, so role membership always reflects the live platform defaults
// rather than a stale mirror.
type Directory struct {
	logger   *zap.SugaredLogger
	provider Provider
}

// NewDirectory creates a device directory over the given provider
func NewDirectory(logger *zap.SugaredLogger, provider Provider) *Directory {
	d := &Directory{
		logger:   logger.Named("directory"),
		provider: provider,
	}

	d.logger.Debug("Created device directory instance")

	return d
}

// Devices returns the active devices of the given direction, in native
// enumeration order. Callers must not depend on that order.
func (d *Directory) Devices(direction Direction) ([]Device, error) {
	endpoints, err := d.provider.Endpoints(direction)
	if err != nil {
		d.logger.Warnw("Failed to enumerate endpoints", "direction", direction, "error", err)
		return nil, fmt.Errorf("enumerate %s endpoints: %w", direction, err)
	}

	devices := make([]Device, 0, len(endpoints))
	for _, endpoint := range endpoints {
		devices = append(devices, Device{
			ID:           endpoint.ID,
			FriendlyName: endpoint.FriendlyName,
			Direction:    direction,
		})
	}

	return devices, nil
}

// DeviceByID looks a device up by identity across both directions.
// Returns nil when no active device matches.
func (d *Directory) DeviceByID(id string) (*Device, error) {
	for _, direction := range []Direction{Playback, Recording} {
		devices, err := d.Devices(direction)
		if err != nil {
			return nil, err
		}

		for i := range devices {
			if EqualID(devices[i].ID, id) {
				return &devices[i], nil
			}
		}
	}

	return nil, nil
}

// Roles computes the set of default roles the device currently holds within
// its own direction. Computed fresh on every call, the platform defaults can
// change between any two calls.
func (d *Directory) Roles(device Device) (RoleSet, error) {
	held := RoleNone

	for _, role := range RoleAll.Roles() {
		id, err := d.provider.DefaultEndpointID(device.Direction, role)
		if err != nil {
			return RoleNone, fmt.Errorf("get default endpoint for role %s: %w", role, err)
		}

		if EqualID(device.ID, id) {
			held |= role
		}
	}

	return held, nil
}

// IsDefault reports whether the device currently holds at least one of the
// requested roles. An empty usage never matches.
func (d *Directory) IsDefault(device Device, usage RoleSet) (bool, error) {
	if usage.Empty() {
		return false, nil
	}

	held, err := d.Roles(device)
	if err != nil {
		return false, err
	}

	return held.Has(usage), nil
}

// DefaultDevice resolves the device that is currently default for any of the
// requested roles. Roles absent from usage are never queried, so they can
// never match. Returns nil when usage is empty or no active device holds a
// requested role. The first match over enumeration order wins; there is no
// priority order among roles.
func (d *Directory) DefaultDevice(direction Direction, usage RoleSet) (*Device, error) {
	if usage.Empty() {
		return nil, nil
	}

	wanted := make([]string, 0, 3)
	for _, role := range usage.Roles() {
		id, err := d.provider.DefaultEndpointID(direction, role)
		if err != nil {
			return nil, fmt.Errorf("get default endpoint for role %s: %w", role, err)
		}

		if id != "" {
			wanted = append(wanted, id)
		}
	}

	if len(wanted) == 0 {
		return nil, nil
	}

	devices, err := d.Devices(direction)
	if err != nil {
		return nil, err
	}

	for i := range devices {
		for _, id := range wanted {
			if EqualID(devices[i].ID, id) {
				return &devices[i], nil
			}
		}
	}

	return nil, nil
}

// DefaultPlaybackDevice resolves the default playback device for usage
func (d *Directory) DefaultPlaybackDevice(usage RoleSet) (*Device, error) {
	return d.DefaultDevice(Playback, usage)
}

// DefaultRecordingDevice resolves the default recording device for usage
func (d *Directory) DefaultRecordingDevice(usage RoleSet) (*Device, error) {
	return d.DefaultDevice(Recording, usage)
}

// SetDefaultDevice assigns the identified device as default for every role in
// usage, one platform call per role. The platform tracks the three slots
// independently, so a subset of slots can be targeted and partial failures
// are logged rather than rolled back. Returns true when an active device
// matched the identity, regardless of the individual per-role outcomes.
func (d *Directory) SetDefaultDevice(direction Direction, deviceID string, usage RoleSet) (bool, error) {
	if deviceID == "" {
		return false, ErrEmptyDeviceID
	}

	if usage.Empty() {
		return false, nil
	}

	devices, err := d.Devices(direction)
	if err != nil {
		return false, err
	}

	var target *Device
	for i := range devices {
		if EqualID(devices[i].ID, deviceID) {
			target = &devices[i]
			break
		}
	}

	if target == nil {
		d.logger.Debugw("No active device matches identity for default assignment",
			"direction", direction,
			"deviceID", deviceID)

		return false, nil
	}

	for _, role := range usage.Roles() {

		// always hand the platform its own identity spelling, not the caller's
		if err := d.provider.SetDefaultEndpoint(direction, target.ID, role); err != nil {
			d.logger.Warnw("Failed to assign default endpoint for role",
				"device", target.FriendlyName,
				"role", role,
				"error", err)
		}
	}

	d.logger.Debugw("Assigned default device", "device", target.FriendlyName, "roles", usage)

	return true, nil
}

// SetDefaultPlaybackDevice assigns the device as default playback for usage
func (d *Directory) SetDefaultPlaybackDevice(deviceID string, usage RoleSet) (bool, error) {
	return d.SetDefaultDevice(Playback, deviceID, usage)
}

// SetDefaultRecordingDevice assigns the device as default recording for usage
func (d *Directory) SetDefaultRecordingDevice(deviceID string, usage RoleSet) (bool, error) {
	return d.SetDefaultDevice(Recording, deviceID, usage)
}
