package audioctl

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	funk "github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/soundops/audioctl/pkg/audioctl/util"
)

// CanonicalConfig provides application-wide access to configuration fields,
// as well as loading/file watching logic for audioctl's configuration file
type CanonicalConfig struct {
	DeviceAliases map[string]string
	PollInterval  time.Duration
	Notifications bool

	logger             *zap.SugaredLogger
	notifier           Notifier
	stopWatcherChannel chan bool

	reloadConsumers []chan bool

	userConfig *viper.Viper
}

const (
	userConfigFilepath = "config.yaml"

	userConfigName = "config"
	userConfigPath = "."

	configType = "yaml"

	configKeyDeviceAliases = "device_aliases"
	configKeyPollInterval  = "poll_interval_ms"
	configKeyNotifications = "notifications"

	defaultPollIntervalMs = 1000
	defaultNotifications  = true
)

// NewConfig creates a config instance and sets up its viper backing store
func NewConfig(logger *zap.SugaredLogger, notifier Notifier) (*CanonicalConfig, error) {
	logger = logger.Named("config")

	cc := &CanonicalConfig{
		logger:             logger,
		notifier:           notifier,
		reloadConsumers:    []chan bool{},
		stopWatcherChannel: make(chan bool),
	}

	userConfig := viper.New()
	userConfig.SetConfigName(userConfigName)
	userConfig.SetConfigType(configType)
	userConfig.AddConfigPath(userConfigPath)

	userConfig.SetDefault(configKeyDeviceAliases, map[string]string{})
	userConfig.SetDefault(configKeyPollInterval, defaultPollIntervalMs)
	userConfig.SetDefault(configKeyNotifications, defaultNotifications)

	cc.userConfig = userConfig

	logger.Debug("Created config instance")

	return cc, nil
}

// Load reads the config file from disk and tries to parse it. A missing file
// is fine, the defaults apply.
func (cc *CanonicalConfig) Load() error {
	cc.logger.Debugw("Loading config", "path", userConfigFilepath)

	if !util.FileExists(userConfigFilepath) {
		cc.logger.Debugw("No config file found, using defaults", "path", userConfigFilepath)
		cc.populateFromViper()
		return nil
	}

	if err := cc.userConfig.ReadInConfig(); err != nil {
		cc.logger.Warnw("Viper failed to read user config", "error", err)

		if strings.Contains(err.Error(), "yaml:") {
			cc.notifier.Notify("Invalid configuration!",
				fmt.Sprintf("Please make sure %s is in a valid YAML format.", userConfigFilepath))
		}

		return fmt.Errorf("read user config: %w", err)
	}

	cc.populateFromViper()

	cc.logger.Info("Loaded config successfully")
	cc.logger.Infow("Config values",
		"deviceAliases", cc.DeviceAliases,
		"pollInterval", cc.PollInterval,
		"notifications", cc.Notifications)

	return nil
}

// ResolveAlias maps a user-defined device alias to its configured identity or
// friendly name, returning the input unchanged when no alias matches
func (cc *CanonicalConfig) ResolveAlias(name string) string {
	if target, ok := cc.DeviceAliases[strings.ToLower(name)]; ok {
		return target
	}

	return name
}

// AliasNames returns the configured alias names
func (cc *CanonicalConfig) AliasNames() []string {
	names := make([]string, 0, len(cc.DeviceAliases))
	for alias := range cc.DeviceAliases {
		names = append(names, alias)
	}

	return funk.UniqString(names)
}

// SubscribeToChanges allows external components to receive updates when the config is reloaded
func (cc *CanonicalConfig) SubscribeToChanges() chan bool {
	c := make(chan bool)
	cc.reloadConsumers = append(cc.reloadConsumers, c)

	return c
}

// WatchConfigFileChanges starts watching for configuration file changes
// and attempts reloading the config when they happen
func (cc *CanonicalConfig) WatchConfigFileChanges() {
	cc.logger.Debugw("Starting to watch user config file for changes", "path", userConfigFilepath)

	const (
		minTimeBetweenReloadAttempts = time.Millisecond * 500
		delayBetweenEventAndReload   = time.Millisecond * 50
	)

	lastAttemptedReload := time.Now()

	// establish watch using viper as opposed to doing it ourselves, though our internal cooldown is still required
	cc.userConfig.WatchConfig()
	cc.userConfig.OnConfigChange(func(event fsnotify.Event) {

		// when we get a write event...
		if event.Op&fsnotify.Write == fsnotify.Write {

			now := time.Now()

			// ... check if it's not a duplicate (many editors will write to a file twice)
			if lastAttemptedReload.Add(minTimeBetweenReloadAttempts).Before(now) {

				cc.logger.Debugw("Config file modified, attempting reload", "event", event)

				// wait a bit to let the editor actually flush the new file contents to disk
				<-time.After(delayBetweenEventAndReload)

				if err := cc.Load(); err != nil {
					cc.logger.Warnw("Failed to reload config file", "error", err)
				} else {
					cc.logger.Info("Reloaded config successfully")
					cc.onConfigReloaded()
				}

				lastAttemptedReload = now
			}
		}
	})

	// wait till they stop us
	<-cc.stopWatcherChannel
	cc.logger.Debug("Stopping user config file watcher")
	cc.userConfig.OnConfigChange(nil)
}

// StopWatchingConfigFile signals our filesystem watcher to stop
func (cc *CanonicalConfig) StopWatchingConfigFile() {
	cc.stopWatcherChannel <- true
}

func (cc *CanonicalConfig) populateFromViper() {
	cc.DeviceAliases = make(map[string]string)
	for alias, target := range cc.userConfig.GetStringMapString(configKeyDeviceAliases) {
		if target == "" {
			continue
		}

		cc.DeviceAliases[strings.ToLower(alias)] = target
	}

	interval := cc.userConfig.GetInt(configKeyPollInterval)
	if interval <= 0 {
		cc.logger.Warnw("Poll interval out of range, using default",
			"value", interval,
			"default", defaultPollIntervalMs)

		interval = defaultPollIntervalMs
	}
	cc.PollInterval = time.Duration(interval) * time.Millisecond

	cc.Notifications = cc.userConfig.GetBool(configKeyNotifications)

	cc.logger.Debug("Populated config fields from viper")
}

func (cc *CanonicalConfig) onConfigReloaded() {
	cc.logger.Debug("Notifying consumers about configuration reload")

	for _, consumer := range cc.reloadConsumers {
		select {
		case consumer <- true:
		default:
		}
	}
}
