package audioctl

import (
	"errors"
	"fmt"
)

// fakeProvider is an in-memory Provider used to exercise the directory and
// mixer logic without a live audio subsystem
type fakeProvider struct {
	endpoints map[Direction][]Endpoint
	defaults  map[Direction]map[RoleSet]string
	volumes   map[string]*fakeHandle
	sessions  map[string][]*fakeSession

	setCalls       []setCall
	defaultQueries int

	endpointsErr error
}

type setCall struct {
	direction Direction
	id        string
	role      RoleSet
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		endpoints: map[Direction][]Endpoint{},
		defaults: map[Direction]map[RoleSet]string{
			Playback:  {},
			Recording: {},
		},
		volumes:  map[string]*fakeHandle{},
		sessions: map[string][]*fakeSession{},
	}
}

func (f *fakeProvider) addEndpoint(direction Direction, id string, name string) {
	f.endpoints[direction] = append(f.endpoints[direction], Endpoint{
		ID:           id,
		FriendlyName: name,
		Direction:    direction,
	})
}

func (f *fakeProvider) Endpoints(direction Direction) ([]Endpoint, error) {
	if f.endpointsErr != nil {
		return nil, f.endpointsErr
	}

	return f.endpoints[direction], nil
}

func (f *fakeProvider) DefaultEndpointID(direction Direction, role RoleSet) (string, error) {
	f.defaultQueries++
	return f.defaults[direction][role], nil
}

func (f *fakeProvider) SetDefaultEndpoint(direction Direction, id string, role RoleSet) error {
	f.setCalls = append(f.setCalls, setCall{direction: direction, id: id, role: role})
	f.defaults[direction][role] = id

	return nil
}

func (f *fakeProvider) VolumeControl(id string) (VolumeHandle, error) {
	handle, ok := f.volumes[id]
	if !ok {
		return nil, fmt.Errorf("no volume control for %s", id)
	}

	return handle, nil
}

func (f *fakeProvider) Sessions(id string) ([]SessionHandle, error) {
	sessions := make([]SessionHandle, 0, len(f.sessions[id]))
	for _, session := range f.sessions[id] {
		sessions = append(sessions, session)
	}

	return sessions, nil
}

func (f *fakeProvider) Release() error {
	return nil
}

type fakeHandle struct {
	volume float32
	muted  bool

	released  int
	volumeErr error
}

func (h *fakeHandle) Volume() (float32, error) {
	if h.volumeErr != nil {
		return 0, h.volumeErr
	}

	return h.volume, nil
}

func (h *fakeHandle) SetVolume(level float32) error {
	if h.volumeErr != nil {
		return h.volumeErr
	}

	h.volume = level
	return nil
}

func (h *fakeHandle) Mute() (bool, error) {
	return h.muted, nil
}

func (h *fakeHandle) SetMute(mute bool) error {
	h.muted = mute
	return nil
}

func (h *fakeHandle) Release() {
	h.released++
}

type fakeSession struct {
	fakeHandle

	pid uint32
}

func (s *fakeSession) ProcessID() uint32 {
	return s.pid
}

var errFakeVolume = errors.New("volume handle failure")
