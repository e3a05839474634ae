//go:build linux
// +build linux

package audioctl

import (
	"fmt"
	"net"
	"strconv"

	"github.com/jfreymuth/pulse/proto"
	"go.uber.org/zap"

	"github.com/soundops/audioctl/pkg/audioctl/util"
)

// normal PulseAudio volume (100%)
const maxVolume = 0x10000

type paProvider struct {
	logger *zap.SugaredLogger

	client *proto.Client
	conn   net.Conn
}

// NewProvider establishes a native-protocol connection to the PulseAudio
// server. PulseAudio keeps a single default slot per direction, so all three
// roles resolve to, and assign, the same endpoint here.
func NewProvider(logger *zap.SugaredLogger) (Provider, error) {
	client, conn, err := proto.Connect("")
	if err != nil {
		logger.Warnw("Failed to establish PulseAudio connection", "error", err)
		return nil, fmt.Errorf("establish PulseAudio connection: %w", err)
	}

	request := proto.SetClientName{
		Props: proto.PropList{
			"application.name": proto.PropListString("audioctl"),
		},
	}
	reply := proto.SetClientNameReply{}

	if err := client.Request(&request, &reply); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set client name: %w", err)
	}

	p := &paProvider{
		logger: logger.Named("pulse"),
		client: client,
		conn:   conn,
	}

	p.logger.Debug("Created PulseAudio provider instance")

	return p, nil
}

func (p *paProvider) Release() error {
	if err := p.conn.Close(); err != nil {
		p.logger.Warnw("Failed to close PulseAudio connection", "error", err)
		return fmt.Errorf("close PulseAudio connection: %w", err)
	}

	p.logger.Debug("Released PulseAudio provider instance")

	return nil
}

func (p *paProvider) Endpoints(direction Direction) ([]Endpoint, error) {
	if direction == Recording {
		request := proto.GetSourceInfoList{}
		reply := proto.GetSourceInfoListReply{}

		if err := p.client.Request(&request, &reply); err != nil {
			return nil, fmt.Errorf("get source list: %w", err)
		}

		endpoints := make([]Endpoint, 0, len(reply))
		for _, source := range reply {
			if source == nil {
				continue
			}

			// skip monitor sources, they mirror sinks rather than capture anything
			if source.MonitorSourceIndex != proto.Undefined {
				continue
			}

			endpoints = append(endpoints, Endpoint{
				ID:           source.SourceName,
				FriendlyName: paDescription(source.Properties, source.SourceName),
				Direction:    Recording,
			})
		}

		return endpoints, nil
	}

	request := proto.GetSinkInfoList{}
	reply := proto.GetSinkInfoListReply{}

	if err := p.client.Request(&request, &reply); err != nil {
		return nil, fmt.Errorf("get sink list: %w", err)
	}

	endpoints := make([]Endpoint, 0, len(reply))
	for _, sink := range reply {
		if sink == nil {
			continue
		}

		endpoints = append(endpoints, Endpoint{
			ID:           sink.SinkName,
			FriendlyName: paDescription(sink.Properties, sink.SinkName),
			Direction:    Playback,
		})
	}

	return endpoints, nil
}

func paDescription(props proto.PropList, fallback string) string {
	if props != nil {
		if desc, ok := props["device.description"]; ok {
			return desc.String()
		}
	}

	return fallback
}

func (p *paProvider) DefaultEndpointID(direction Direction, role RoleSet) (string, error) {
	request := proto.GetServerInfo{}
	reply := proto.GetServerInfoReply{}

	if err := p.client.Request(&request, &reply); err != nil {
		return "", fmt.Errorf("get server info: %w", err)
	}

	// role is irrelevant here, PulseAudio tracks one default per direction
	if direction == Recording {
		return reply.DefaultSourceName, nil
	}

	return reply.DefaultSinkName, nil
}

func (p *paProvider) SetDefaultEndpoint(direction Direction, id string, role RoleSet) error {
	var request proto.RequestArgs

	if direction == Recording {
		request = &proto.SetDefaultSource{SourceName: id}
	} else {
		request = &proto.SetDefaultSink{SinkName: id}
	}

	if err := p.client.Request(request, nil); err != nil {
		return fmt.Errorf("set default %s endpoint: %w", direction, err)
	}

	return nil
}

func (p *paProvider) VolumeControl(id string) (VolumeHandle, error) {
	sinkRequest := proto.GetSinkInfo{SinkIndex: proto.Undefined, SinkName: id}
	sinkReply := proto.GetSinkInfoReply{}

	if err := p.client.Request(&sinkRequest, &sinkReply); err == nil {
		return &paDeviceVolume{
			logger:   p.logger,
			client:   p.client,
			sink:     true,
			index:    sinkReply.SinkIndex,
			channels: sinkReply.Channels,
		}, nil
	}

	sourceRequest := proto.GetSourceInfo{SourceIndex: proto.Undefined, SourceName: id}
	sourceReply := proto.GetSourceInfoReply{}

	if err := p.client.Request(&sourceRequest, &sourceReply); err != nil {
		return nil, fmt.Errorf("get endpoint info for %s: %w", id, err)
	}

	return &paDeviceVolume{
		logger:   p.logger,
		client:   p.client,
		sink:     false,
		index:    sourceReply.SourceIndex,
		channels: sourceReply.Channels,
	}, nil
}

func (p *paProvider) Sessions(id string) ([]SessionHandle, error) {
	request := proto.GetSinkInputInfoList{}
	reply := proto.GetSinkInputInfoListReply{}

	if err := p.client.Request(&request, &reply); err != nil {
		return nil, fmt.Errorf("get sink input list: %w", err)
	}

	sessions := make([]SessionHandle, 0, len(reply))

	for _, info := range reply {
		if info == nil {
			continue
		}

		// sink inputs without a resolvable owning process can't be addressed by pid
		pidProp, ok := info.Properties["application.process.id"]
		if !ok {
			continue
		}

		pid, err := strconv.Atoi(pidProp.String())
		if err != nil {
			p.logger.Debugw("Sink input carries a malformed process id",
				"sinkInputIndex", info.SinkInputIndex,
				"value", pidProp.String())

			continue
		}

		if path, err := util.GetProcessPath(pid); err == nil {
			p.logger.Debugw("Discovered audio session",
				"pid", pid,
				"processPath", path,
				"sinkInputIndex", info.SinkInputIndex)
		}

		sessions = append(sessions, &paSessionVolume{
			logger:   p.logger,
			client:   p.client,
			pid:      uint32(pid),
			index:    info.SinkInputIndex,
			channels: info.Channels,
		})
	}

	return sessions, nil
}

// paDeviceVolume is the device-wide volume handle of a sink or source
type paDeviceVolume struct {
	logger *zap.SugaredLogger
	client *proto.Client

	sink     bool
	index    uint32
	channels byte
}

func (h *paDeviceVolume) Volume() (float32, error) {
	if h.sink {
		request := proto.GetSinkInfo{SinkIndex: h.index}
		reply := proto.GetSinkInfoReply{}

		if err := h.client.Request(&request, &reply); err != nil {
			return 0, fmt.Errorf("get sink volume: %w", err)
		}

		return parseChannelVolumes(reply.ChannelVolumes), nil
	}

	request := proto.GetSourceInfo{SourceIndex: h.index}
	reply := proto.GetSourceInfoReply{}

	if err := h.client.Request(&request, &reply); err != nil {
		return 0, fmt.Errorf("get source volume: %w", err)
	}

	return parseChannelVolumes(reply.ChannelVolumes), nil
}

func (h *paDeviceVolume) SetVolume(level float32) error {
	volumes := createChannelVolumes(h.channels, level)

	var request proto.RequestArgs
	if h.sink {
		request = &proto.SetSinkVolume{
			SinkIndex:      h.index,
			ChannelVolumes: volumes,
		}
	} else {
		request = &proto.SetSourceVolume{
			SourceIndex:    h.index,
			ChannelVolumes: volumes,
		}
	}

	if err := h.client.Request(request, nil); err != nil {
		return fmt.Errorf("set device volume: %w", err)
	}

	return nil
}

func (h *paDeviceVolume) Mute() (bool, error) {
	if h.sink {
		request := proto.GetSinkInfo{SinkIndex: h.index}
		reply := proto.GetSinkInfoReply{}

		if err := h.client.Request(&request, &reply); err != nil {
			return false, fmt.Errorf("get sink mute: %w", err)
		}

		return reply.Mute, nil
	}

	request := proto.GetSourceInfo{SourceIndex: h.index}
	reply := proto.GetSourceInfoReply{}

	if err := h.client.Request(&request, &reply); err != nil {
		return false, fmt.Errorf("get source mute: %w", err)
	}

	return reply.Mute, nil
}

func (h *paDeviceVolume) SetMute(mute bool) error {
	var request proto.RequestArgs
	if h.sink {
		request = &proto.SetSinkMute{
			SinkIndex: h.index,
			Mute:      mute,
		}
	} else {
		request = &proto.SetSourceMute{
			SourceIndex: h.index,
			Mute:        mute,
		}
	}

	if err := h.client.Request(request, nil); err != nil {
		return fmt.Errorf("set device mute: %w", err)
	}

	return nil
}

func (h *paDeviceVolume) Release() {
	// protocol handles are plain indices, nothing to free
}

// paSessionVolume is the volume handle of a single sink input
type paSessionVolume struct {
	logger *zap.SugaredLogger
	client *proto.Client

	pid      uint32
	index    uint32
	channels byte
}

func (h *paSessionVolume) ProcessID() uint32 {
	return h.pid
}

func (h *paSessionVolume) Volume() (float32, error) {
	request := proto.GetSinkInputInfo{SinkInputIndex: h.index}
	reply := proto.GetSinkInputInfoReply{}

	if err := h.client.Request(&request, &reply); err != nil {
		return 0, fmt.Errorf("get sink input volume: %w", err)
	}

	return parseChannelVolumes(reply.ChannelVolumes), nil
}

func (h *paSessionVolume) SetVolume(level float32) error {
	request := proto.SetSinkInputVolume{
		SinkInputIndex: h.index,
		ChannelVolumes: createChannelVolumes(h.channels, level),
	}

	if err := h.client.Request(&request, nil); err != nil {
		return fmt.Errorf("set sink input volume: %w", err)
	}

	return nil
}

func (h *paSessionVolume) Mute() (bool, error) {
	request := proto.GetSinkInputInfo{SinkInputIndex: h.index}
	reply := proto.GetSinkInputInfoReply{}

	if err := h.client.Request(&request, &reply); err != nil {
		return false, fmt.Errorf("get sink input mute: %w", err)
	}

	return reply.Muted, nil
}

func (h *paSessionVolume) SetMute(mute bool) error {
	request := proto.SetSinkInputMute{
		SinkInputIndex: h.index,
		Mute:           mute,
	}

	if err := h.client.Request(&request, nil); err != nil {
		return fmt.Errorf("set sink input mute: %w", err)
	}

	return nil
}

func (h *paSessionVolume) Release() {
	// protocol handles are plain indices, nothing to free
}

func createChannelVolumes(channels byte, volume float32) []uint32 {
	volumes := make([]uint32, channels)

	for i := range volumes {
		volumes[i] = uint32(volume * maxVolume)
	}

	return volumes
}

func parseChannelVolumes(volumes []uint32) float32 {
	var level uint32

	for _, volume := range volumes {
		level += volume
	}

	return float32(level) / float32(len(volumes)) / float32(maxVolume)
}
