package audioctl

// Endpoint is a raw enumeration record returned by a Provider.
type Endpoint struct {
	ID           string
	FriendlyName string
	Direction    Direction
}

// VolumeHandle is a live volume/mute accessor on the platform audio control
// plane. Volume scalars are in [0, 1]. Handles are cheap and short-lived;
// callers must Release them once done and never reuse one across calls.
type VolumeHandle interface {
	Volume() (float32, error)
	SetVolume(level float32) error

	Mute() (bool, error)
	SetMute(mute bool) error

	Release()
}

// SessionHandle is the volume/mute accessor of a single per-process audio
// session. It stays valid only while the owning process keeps its session
// alive.
type SessionHandle interface {
	VolumeHandle

	ProcessID() uint32
}

// Provider abstracts the host audio subsystem. Implementations exist per
// platform (Windows Core Audio, PulseAudio); every method is a direct,
// blocking round-trip with no caching between calls.
type Provider interface {
	// Endpoints returns the currently active endpoints of the given
	// direction, in native enumeration order.
	Endpoints(direction Direction) ([]Endpoint, error)

	// DefaultEndpointID returns the identity of the live default endpoint
	// for a single role, or "" when the platform holds no default for it.
	DefaultEndpointID(direction Direction, role RoleSet) (string, error)

	// SetDefaultEndpoint assigns the endpoint as the default for a single
	// role within the given direction.
	SetDefaultEndpoint(direction Direction, id string, role RoleSet) error

	// VolumeControl returns the device-wide volume accessor of an endpoint.
	VolumeControl(id string) (VolumeHandle, error)

	// Sessions returns a snapshot of the per-process audio sessions active
	// on an endpoint at call time.
	Sessions(id string) ([]SessionHandle, error)

	Release() error
}
