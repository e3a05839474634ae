//go:build windows
// +build windows

package audioctl

import (
	"fmt"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	wca "github.com/moutend/go-wca/pkg/wca"
	"go.uber.org/zap"

	"github.com/soundops/audioctl/pkg/audioctl/util"
)

type wcaProvider struct {
	logger *zap.SugaredLogger

	eventCtx *ole.GUID
}

// NewProvider connects to the Windows Core Audio control plane. The calling
// goroutine's OS thread joins an STA apartment until Release is called, so
// create and release the provider on the same goroutine.
func NewProvider(logger *zap.SugaredLogger) (Provider, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		logger.Warnw("Failed to initialize COM", "error", err)
		return nil, fmt.Errorf("initialize COM: %w", err)
	}

	p := &wcaProvider{
		logger: logger.Named("wca"),

		// distinguishes our volume writes in the system's change notifications
		eventCtx: ole.NewGUID("{7f2ab9e4-51c6-4d2f-b8a3-c90e4e3b16d5}"),
	}

	p.logger.Debug("Created WCA provider instance")

	return p, nil
}

func (p *wcaProvider) Release() error {
	ole.CoUninitialize()
	p.logger.Debug("Released WCA provider instance")

	return nil
}

func dataFlow(direction Direction) uint32 {
	if direction == Recording {
		return wca.ECapture
	}

	return wca.ERender
}

func eRole(role RoleSet) uint32 {
	switch role {
	case RoleMultimedia:
		return wca.EMultimedia
	case RoleCommunication:
		return wca.ECommunications
	default:
		return wca.EConsole
	}
}

func (p *wcaProvider) enumerator() (*wca.IMMDeviceEnumerator, error) {
	var mmde *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &mmde); err != nil {
		return nil, fmt.Errorf("create device enumerator: %w", err)
	}

	return mmde, nil
}

func (p *wcaProvider) Endpoints(direction Direction) ([]Endpoint, error) {
	mmde, err := p.enumerator()
	if err != nil {
		return nil, err
	}
	defer mmde.Release()

	var mdc *wca.IMMDeviceCollection
	if err := mmde.EnumAudioEndpoints(dataFlow(direction), wca.DEVICE_STATE_ACTIVE, &mdc); err != nil {
		return nil, fmt.Errorf("enumerate active endpoints: %w", err)
	}
	defer mdc.Release()

	var count uint32
	if err := mdc.GetCount(&count); err != nil {
		return nil, fmt.Errorf("get endpoint count: %w", err)
	}

	endpoints := make([]Endpoint, 0, count)

	for i := uint32(0); i < count; i++ {
		var mmd *wca.IMMDevice
		if err := mdc.Item(i, &mmd); err != nil {
			p.logger.Warnw("Failed to get endpoint from collection", "index", i, "error", err)
			continue
		}

		endpoint, err := describeEndpoint(mmd, direction)
		mmd.Release()

		if err != nil {
			p.logger.Warnw("Failed to describe endpoint", "index", i, "error", err)
			continue
		}

		endpoints = append(endpoints, endpoint)
	}

	return endpoints, nil
}

func describeEndpoint(mmd *wca.IMMDevice, direction Direction) (Endpoint, error) {
	var id string
	if err := mmd.GetId(&id); err != nil {
		return Endpoint{}, fmt.Errorf("get endpoint id: %w", err)
	}

	var propertyStore *wca.IPropertyStore
	if err := mmd.OpenPropertyStore(wca.STGM_READ, &propertyStore); err != nil {
		return Endpoint{}, fmt.Errorf("open endpoint property store: %w", err)
	}
	defer propertyStore.Release()

	var value wca.PROPVARIANT
	if err := propertyStore.GetValue(&wca.PKEY_Device_FriendlyName, &value); err != nil {
		return Endpoint{}, fmt.Errorf("get endpoint friendly name: %w", err)
	}

	return Endpoint{
		ID:           id,
		FriendlyName: value.String(),
		Direction:    direction,
	}, nil
}

func (p *wcaProvider) DefaultEndpointID(direction Direction, role RoleSet) (string, error) {
	mmde, err := p.enumerator()
	if err != nil {
		return "", err
	}
	defer mmde.Release()

	var mmd *wca.IMMDevice
	if err := mmde.GetDefaultAudioEndpoint(dataFlow(direction), eRole(role), &mmd); err != nil {

		// the platform holds no default for this role right now
		p.logger.Debugw("No default endpoint for role",
			"direction", direction,
			"role", role,
			"error", err)

		return "", nil
	}
	defer mmd.Release()

	var id string
	if err := mmd.GetId(&id); err != nil {
		return "", fmt.Errorf("get default endpoint id: %w", err)
	}

	return id, nil
}

func (p *wcaProvider) SetDefaultEndpoint(direction Direction, id string, role RoleSet) error {
	policyConfig, err := newPolicyConfig()
	if err != nil {
		return err
	}
	defer policyConfig.Release()

	return policyConfig.setDefaultEndpoint(id, eRole(role))
}

// device resolves an endpoint identity to a live IMMDevice by scanning the
// active endpoints of both directions. The caller owns the returned device
// and must Release it.
func (p *wcaProvider) device(id string) (*wca.IMMDevice, error) {
	mmde, err := p.enumerator()
	if err != nil {
		return nil, err
	}
	defer mmde.Release()

	for _, flow := range []uint32{wca.ERender, wca.ECapture} {
		var mdc *wca.IMMDeviceCollection
		if err := mmde.EnumAudioEndpoints(flow, wca.DEVICE_STATE_ACTIVE, &mdc); err != nil {
			return nil, fmt.Errorf("enumerate active endpoints: %w", err)
		}

		var count uint32
		if err := mdc.GetCount(&count); err != nil {
			mdc.Release()
			return nil, fmt.Errorf("get endpoint count: %w", err)
		}

		for i := uint32(0); i < count; i++ {
			var mmd *wca.IMMDevice
			if err := mdc.Item(i, &mmd); err != nil {
				p.logger.Warnw("Failed to get endpoint from collection", "index", i, "error", err)
				continue
			}

			var candidate string
			if err := mmd.GetId(&candidate); err != nil {
				p.logger.Warnw("Failed to get endpoint id", "index", i, "error", err)
				mmd.Release()
				continue
			}

			if EqualID(candidate, id) {
				mdc.Release()
				return mmd, nil
			}

			mmd.Release()
		}

		mdc.Release()
	}

	return nil, fmt.Errorf("no active endpoint matches %s", id)
}

func (p *wcaProvider) VolumeControl(id string) (VolumeHandle, error) {
	mmd, err := p.device(id)
	if err != nil {
		return nil, err
	}

	var endpointVolume *wca.IAudioEndpointVolume
	if err := mmd.Activate(wca.IID_IAudioEndpointVolume, wca.CLSCTX_ALL, nil, &endpointVolume); err != nil {
		mmd.Release()
		return nil, fmt.Errorf("activate endpoint volume: %w", err)
	}

	return &wcaEndpointVolume{
		device:   mmd,
		volume:   endpointVolume,
		eventCtx: p.eventCtx,
	}, nil
}

func (p *wcaProvider) Sessions(id string) ([]SessionHandle, error) {
	mmd, err := p.device(id)
	if err != nil {
		return nil, err
	}
	defer mmd.Release()

	var sessionManager *wca.IAudioSessionManager2
	if err := mmd.Activate(wca.IID_IAudioSessionManager2, wca.CLSCTX_ALL, nil, &sessionManager); err != nil {
		return nil, fmt.Errorf("activate session manager: %w", err)
	}
	defer sessionManager.Release()

	var sessionEnumerator *wca.IAudioSessionEnumerator
	if err := sessionManager.GetSessionEnumerator(&sessionEnumerator); err != nil {
		return nil, fmt.Errorf("get session enumerator: %w", err)
	}
	defer sessionEnumerator.Release()

	var count int
	if err := sessionEnumerator.GetCount(&count); err != nil {
		return nil, fmt.Errorf("get session count: %w", err)
	}

	sessions := make([]SessionHandle, 0, count)

	for i := 0; i < count; i++ {
		session, err := p.session(sessionEnumerator, i)
		if err != nil {
			p.logger.Warnw("Failed to acquire audio session", "index", i, "error", err)
			continue
		}

		sessions = append(sessions, session)
	}

	return sessions, nil
}

func (p *wcaProvider) session(sessionEnumerator *wca.IAudioSessionEnumerator, idx int) (SessionHandle, error) {
	var sessionControl *wca.IAudioSessionControl
	if err := sessionEnumerator.GetSession(idx, &sessionControl); err != nil {
		return nil, fmt.Errorf("get session control: %w", err)
	}

	dispatch, err := sessionControl.QueryInterface(wca.IID_IAudioSessionControl2)
	if err != nil {
		sessionControl.Release()
		return nil, fmt.Errorf("query session control2: %w", err)
	}

	sessionControl2 := (*wca.IAudioSessionControl2)(unsafe.Pointer(dispatch))

	var pid uint32
	if err := sessionControl2.GetProcessId(&pid); err != nil {

		// the system sounds session fails this query and reports pid 0
		pid = 0
	}

	if path, err := util.GetProcessPath(int(pid)); err == nil {
		p.logger.Debugw("Discovered audio session", "pid", pid, "processPath", path)
	}

	volumeDispatch, err := sessionControl.QueryInterface(wca.IID_ISimpleAudioVolume)
	if err != nil {
		sessionControl2.Release()
		sessionControl.Release()
		return nil, fmt.Errorf("query simple audio volume: %w", err)
	}

	simpleVolume := (*wca.ISimpleAudioVolume)(unsafe.Pointer(volumeDispatch))

	sessionControl.Release()

	return &wcaSessionVolume{
		pid:      pid,
		control:  sessionControl2,
		volume:   simpleVolume,
		eventCtx: p.eventCtx,
	}, nil
}

// wcaEndpointVolume is the device-wide volume handle of a render/capture endpoint
type wcaEndpointVolume struct {
	device   *wca.IMMDevice
	volume   *wca.IAudioEndpointVolume
	eventCtx *ole.GUID
}

func (h *wcaEndpointVolume) Volume() (float32, error) {
	var level float32
	if err := h.volume.GetMasterVolumeLevelScalar(&level); err != nil {
		return 0, fmt.Errorf("get master volume: %w", err)
	}

	return level, nil
}

func (h *wcaEndpointVolume) SetVolume(level float32) error {
	if err := h.volume.SetMasterVolumeLevelScalar(level, h.eventCtx); err != nil {
		return fmt.Errorf("set master volume: %w", err)
	}

	return nil
}

func (h *wcaEndpointVolume) Mute() (bool, error) {
	var muted bool
	if err := h.volume.GetMute(&muted); err != nil {
		return false, fmt.Errorf("get master mute: %w", err)
	}

	return muted, nil
}

func (h *wcaEndpointVolume) SetMute(mute bool) error {
	if err := h.volume.SetMute(mute, h.eventCtx); err != nil {
		return fmt.Errorf("set master mute: %w", err)
	}

	return nil
}

func (h *wcaEndpointVolume) Release() {
	h.volume.Release()
	h.device.Release()
}

// wcaSessionVolume is the volume handle of a single per-process audio session
type wcaSessionVolume struct {
	pid      uint32
	control  *wca.IAudioSessionControl2
	volume   *wca.ISimpleAudioVolume
	eventCtx *ole.GUID
}

func (h *wcaSessionVolume) ProcessID() uint32 {
	return h.pid
}

func (h *wcaSessionVolume) Volume() (float32, error) {
	var level float32
	if err := h.volume.GetMasterVolume(&level); err != nil {
		return 0, fmt.Errorf("get session volume: %w", err)
	}

	return level, nil
}

func (h *wcaSessionVolume) SetVolume(level float32) error {
	if err := h.volume.SetMasterVolume(level, h.eventCtx); err != nil {
		return fmt.Errorf("set session volume: %w", err)
	}

	return nil
}

func (h *wcaSessionVolume) Mute() (bool, error) {
	var muted bool
	if err := h.volume.GetMute(&muted); err != nil {
		return false, fmt.Errorf("get session mute: %w", err)
	}

	return muted, nil
}

func (h *wcaSessionVolume) SetMute(mute bool) error {
	if err := h.volume.SetMute(mute, h.eventCtx); err != nil {
		return fmt.Errorf("set session mute: %w", err)
	}

	return nil
}

func (h *wcaSessionVolume) Release() {
	h.volume.Release()
	h.control.Release()
}
