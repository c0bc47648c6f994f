package providers

import (
	"fmt"
	"path/filepath"
	"perimeterd/internal/structures"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("webServer.host", "127.0.0.1")
	v.SetDefault("webServer.port", 8095)
	v.SetDefault("persistence.saveInterval", 60*time.Second)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("events.subject", "perimeter")

	v.SetDefault("perimeter.blockTerms", []string{"phonk", "earrape", "nsfw"})
	v.SetDefault("perimeter.minBitrateKbps", 64)
	v.SetDefault("perimeter.autopanicEnabled", true)
	v.SetDefault("perimeter.hardMode", true)

	v.SetDefault("watchdog.interval", 8*time.Second)
	v.SetDefault("watchdog.homeGrace", 15*time.Second)
	v.SetDefault("watchdog.summonGrace", 10*time.Second)

	v.SetDefault("reassurance.enabled", true)
	v.SetDefault("reassurance.tick", 10*time.Second)
	v.SetDefault("reassurance.inChannelInterval", 300*time.Second)
	v.SetDefault("reassurance.elsewhereInterval", 900*time.Second)
	v.SetDefault("reassurance.useDm", true)
	v.SetDefault("reassurance.notifyExternalStart", true)
	v.SetDefault("reassurance.notifyExternalStop", true)

	v.SetDefault("sleep.enabled", true)
	v.SetDefault("sleep.after", 180*time.Minute)
	v.SetDefault("sleep.repeat", 45*time.Minute)
	v.SetDefault("sleep.quietStartHour", 1)
	v.SetDefault("sleep.quietEndHour", 6)
	v.SetDefault("sleep.timezone", "UTC")

	v.SetDefault("directory.baseUrl", "https://de2.api.radio-browser.info/json")
	v.SetDefault("directory.userAgent", "perimeterd/1.0")
	v.SetDefault("directory.timeout", 18*time.Second)
	v.SetDefault("directory.searchLimit", 50)
	v.SetDefault("directory.maxConcurrent", 1)

	v.SetDefault("bridge.timeout", 10*time.Second)
	v.SetDefault("bridge.playerFlavor", "lavalink")
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")
	setConfigDefaults(v)

	v.BindEnv("logger.level", "PERIMETER_LOG_LEVEL")
	v.BindEnv("persistence.filePath", "PERIMETER_STORE_PATH")
	v.BindEnv("bridge.baseUrl", "PERIMETER_BRIDGE_URL")
	v.BindEnv("bridge.token", "PERIMETER_BRIDGE_TOKEN")
	v.BindEnv("events.url", "PERIMETER_NATS_URL")
	v.BindEnv("perimeter.operatorIds", "PERIMETER_OPERATOR_ID")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "PerimeterDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
