package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soundops/audioctl/pkg/audioctl"
	"github.com/soundops/audioctl/pkg/audioctl/util"
)

const usageText = `usage: audioctl [-verbose] <command> [args]

commands:
  list [-dir playback|recording]             list active devices with their default roles
  defaults [-dir playback|recording]         show the default device per role
  set-default [-dir ...] [-roles ...] <dev>  make a device the default (dev: id, friendly name or alias)
  volume [get|set|adjust] [value]            master volume operations
  mute [status|on|off|toggle]                master mute operations
  app [-pid N|-name exe] <op> [value]        per-process session operations
                                             op: volume|set|adjust|mute|unmute|toggle
  aliases                                    list configured device aliases
  watch                                      poll for default-device changes and notify
`

func usage() {
	fmt.Fprint(os.Stderr, usageText)
}

type app struct {
	logger    *zap.SugaredLogger
	directory *audioctl.Directory
	mixer     *audioctl.Mixer
	config    *audioctl.CanonicalConfig
	notifier  audioctl.Notifier
}

func main() {
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()

	logger, err := audioctl.NewLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	provider, err := audioctl.NewProvider(logger)
	if err != nil {
		logger.Fatalw("Failed to connect to audio subsystem", "error", err)
	}
	defer provider.Release()

	directory := audioctl.NewDirectory(logger, provider)
	mixer := audioctl.NewMixer(logger, directory, provider)

	notifier, err := audioctl.NewToastNotifier(logger)
	if err != nil {
		logger.Fatalw("Failed to create notifier", "error", err)
	}

	config, err := audioctl.NewConfig(logger, notifier)
	if err != nil {
		logger.Fatalw("Failed to create config", "error", err)
	}

	if err := config.Load(); err != nil {
		logger.Warnw("Failed to load config, continuing with defaults", "error", err)
	}

	a := &app{
		logger:    logger,
		directory: directory,
		mixer:     mixer,
		config:    config,
		notifier:  notifier,
	}

	if err := a.run(args[0], args[1:]); err != nil {
		logger.Errorw("Command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

func (a *app) run(command string, args []string) error {
	switch command {
	case "list":
		return a.cmdList(args)
	case "defaults":
		return a.cmdDefaults(args)
	case "set-default":
		return a.cmdSetDefault(args)
	case "volume":
		return a.cmdVolume(args)
	case "mute":
		return a.cmdMute(args)
	case "app":
		return a.cmdApp(args)
	case "aliases":
		return a.cmdAliases(args)
	case "watch":
		return a.cmdWatch(args)
	default:
		usage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func parseDirection(s string) (audioctl.Direction, error) {
	switch strings.ToLower(s) {
	case "playback", "output":
		return audioctl.Playback, nil
	case "recording", "input":
		return audioctl.Recording, nil
	default:
		return audioctl.Playback, fmt.Errorf("unknown direction: %q", s)
	}
}

func (a *app) cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	dir := fs.String("dir", "playback", "device direction")
	fs.Parse(args)

	direction, err := parseDirection(*dir)
	if err != nil {
		return err
	}

	devices, err := a.directory.Devices(direction)
	if err != nil {
		return err
	}

	for _, device := range devices {
		roles, err := a.directory.Roles(device)
		if err != nil {
			return err
		}

		marker := " "
		if !roles.Empty() {
			marker = "*"
		}

		fmt.Printf("%s %-40s %-20s %s\n", marker, device.FriendlyName, roles, device.ID)
	}

	return nil
}

func (a *app) cmdDefaults(args []string) error {
	fs := flag.NewFlagSet("defaults", flag.ExitOnError)
	dir := fs.String("dir", "playback", "device direction")
	fs.Parse(args)

	direction, err := parseDirection(*dir)
	if err != nil {
		return err
	}

	for _, role := range audioctl.RoleAll.Roles() {
		device, err := a.directory.DefaultDevice(direction, role)
		if err != nil {
			return err
		}

		name := "(none)"
		if device != nil {
			name = device.FriendlyName
		}

		fmt.Printf("%-15s %s\n", role, name)
	}

	return nil
}

// resolveDevice turns a config alias, endpoint identity or friendly name into
// an active device of the given direction
func (a *app) resolveDevice(direction audioctl.Direction, name string) (*audioctl.Device, error) {
	name = a.config.ResolveAlias(name)

	devices, err := a.directory.Devices(direction)
	if err != nil {
		return nil, err
	}

	for i := range devices {
		if audioctl.EqualID(devices[i].ID, name) || strings.EqualFold(devices[i].FriendlyName, name) {
			return &devices[i], nil
		}
	}

	return nil, nil
}

func (a *app) cmdSetDefault(args []string) error {
	fs := flag.NewFlagSet("set-default", flag.ExitOnError)
	dir := fs.String("dir", "playback", "device direction")
	roles := fs.String("roles", "all", "comma-separated roles to assign (system,multimedia,communication)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("set-default takes exactly one device argument")
	}

	direction, err := parseDirection(*dir)
	if err != nil {
		return err
	}

	usage, err := audioctl.ParseRoleSet(*roles)
	if err != nil {
		return err
	}

	device, err := a.resolveDevice(direction, fs.Arg(0))
	if err != nil {
		return err
	}
	if device == nil {
		return fmt.Errorf("no active %s device matches %q", direction, fs.Arg(0))
	}

	ok, err := a.directory.SetDefaultDevice(direction, device.ID, usage)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("device %q was not assigned", device.FriendlyName)
	}

	fmt.Printf("default %s device for %s: %s\n", direction, usage, device.FriendlyName)

	if a.config.Notifications {
		a.notifier.Notify("Default device changed",
			fmt.Sprintf("%s is now the default %s device (%s)", device.FriendlyName, direction, usage))
	}

	return nil
}

func (a *app) cmdVolume(args []string) error {
	op := "get"
	if len(args) > 0 {
		op = args[0]
	}

	switch op {
	case "get":
		level := a.mixer.MasterVolume()
		if math.IsNaN(float64(level)) {
			fmt.Println("no default playback device")
			return nil
		}

		fmt.Printf("%.0f%%\n", util.NormalizeScalar(level)*100)
		return nil

	case "set":
		if len(args) != 2 {
			return fmt.Errorf("volume set takes a level between 0 and 1")
		}

		level, err := strconv.ParseFloat(args[1], 32)
		if err != nil {
			return fmt.Errorf("parse volume level: %w", err)
		}

		a.mixer.SetMasterVolume(float32(level))
		return nil

	case "adjust":
		if len(args) != 2 {
			return fmt.Errorf("volume adjust takes a signed amount, e.g. -0.1")
		}

		amount, err := strconv.ParseFloat(args[1], 32)
		if err != nil {
			return fmt.Errorf("parse adjust amount: %w", err)
		}

		level := a.mixer.AdjustMasterVolume(float32(amount))
		if math.IsNaN(float64(level)) {
			fmt.Println("no default playback device")
			return nil
		}

		fmt.Printf("%.0f%%\n", util.NormalizeScalar(level)*100)
		return nil

	default:
		return fmt.Errorf("unknown volume operation: %s", op)
	}
}

func (a *app) cmdMute(args []string) error {
	op := "status"
	if len(args) > 0 {
		op = args[0]
	}

	switch op {
	case "status":
		fmt.Printf("muted: %t\n", a.mixer.MasterMute())
	case "on":
		a.mixer.SetMasterMute(true)
	case "off":
		a.mixer.SetMasterMute(false)
	case "toggle":
		fmt.Printf("muted: %t\n", a.mixer.ToggleMasterMute())
	default:
		return fmt.Errorf("unknown mute operation: %s", op)
	}

	return nil
}

func (a *app) cmdApp(args []string) error {
	fs := flag.NewFlagSet("app", flag.ExitOnError)
	pid := fs.Uint("pid", 0, "target process id")
	name := fs.String("name", "", "target executable name")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("app requires an operation")
	}

	target := uint32(*pid)
	if target == 0 {
		if *name == "" {
			return fmt.Errorf("app requires -pid or -name")
		}

		resolved, ok := a.mixer.PidByName(*name)
		if !ok {
			return fmt.Errorf("no running process matches %q", *name)
		}
		target = resolved
	}

	op := fs.Arg(0)

	switch op {
	case "volume":
		level, ok := a.mixer.ApplicationVolume(target)
		if !ok {
			fmt.Println("no audio session for process")
			return nil
		}

		fmt.Printf("%.0f%%\n", util.NormalizeScalar(level)*100)

	case "set":
		if fs.NArg() != 2 {
			return fmt.Errorf("app set takes a level between 0 and 1")
		}

		level, err := strconv.ParseFloat(fs.Arg(1), 32)
		if err != nil {
			return fmt.Errorf("parse volume level: %w", err)
		}

		if !a.mixer.SetApplicationVolume(target, float32(level)) {
			fmt.Println("no audio session for process")
		}

	case "adjust":
		if fs.NArg() != 2 {
			return fmt.Errorf("app adjust takes a signed amount, e.g. -0.1")
		}

		amount, err := strconv.ParseFloat(fs.Arg(1), 32)
		if err != nil {
			return fmt.Errorf("parse adjust amount: %w", err)
		}

		level, ok := a.mixer.AdjustApplicationVolume(target, float32(amount))
		if !ok {
			fmt.Println("no audio session for process")
			return nil
		}

		fmt.Printf("%.0f%%\n", util.NormalizeScalar(level)*100)

	case "mute":
		if !a.mixer.SetApplicationMute(target, true) {
			fmt.Println("no audio session for process")
		}

	case "unmute":
		if !a.mixer.SetApplicationMute(target, false) {
			fmt.Println("no audio session for process")
		}

	case "toggle":
		muted, ok := a.mixer.ToggleApplicationMute(target)
		if !ok {
			fmt.Println("no audio session for process")
			return nil
		}

		fmt.Printf("muted: %t\n", muted)

	default:
		return fmt.Errorf("unknown app operation: %s", op)
	}

	return nil
}

func (a *app) cmdAliases(args []string) error {
	names := a.config.AliasNames()
	if len(names) == 0 {
		fmt.Println("no device aliases configured")
		return nil
	}

	for _, alias := range names {
		fmt.Printf("%-20s %s\n", alias, a.config.ResolveAlias(alias))
	}

	return nil
}

// cmdWatch re-queries the default playback device on an interval and reports
// changes. Polling lives here in the CLI - the library itself stays
// synchronous and subscription-free.
func (a *app) cmdWatch(args []string) error {
	go a.config.WatchConfigFileChanges()
	defer a.config.StopWatchingConfigFile()

	reload := a.config.SubscribeToChanges()
	interrupt := util.SetupCloseHandler()

	ticker := time.NewTicker(a.config.PollInterval)
	defer ticker.Stop()

	lastID, lastName := "", "(none)"

	check := func() {
		device, err := a.directory.DefaultDevice(audioctl.Playback, audioctl.RoleSystem|audioctl.RoleMultimedia)
		if err != nil {
			a.logger.Warnw("Failed to resolve default playback device", "error", err)
			return
		}

		id, name := "", "(none)"
		if device != nil {
			id, name = device.ID, device.FriendlyName
		}

		if !audioctl.EqualID(id, lastID) {
			a.logger.Infow("Default playback device changed", "from", lastName, "to", name)

			if a.config.Notifications {
				a.notifier.Notify("Default device changed", fmt.Sprintf("%s -> %s", lastName, name))
			}

			lastID, lastName = id, name
		}
	}

	check()

	for {
		select {
		case <-ticker.C:
			check()

		case <-reload:
			a.logger.Debugw("Config reloaded, adjusting poll interval", "interval", a.config.PollInterval)
			ticker.Reset(a.config.PollInterval)

		case sig := <-interrupt:
			a.logger.Debugw("Interrupted", "signal", sig)
			return nil
		}
	}
}
