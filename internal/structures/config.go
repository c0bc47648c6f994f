package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type Persistence struct {
	FilePath     string        `yaml:"filePath" validate:"required|unixPath"`
	SaveInterval time.Duration `yaml:"saveInterval" validate:"required|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// PerimeterConfig holds the static part of the perimeter: who may operate it
// and which content is never allowed. Everything that changes at runtime
// lives in the store.
type PerimeterConfig struct {
	OperatorIDs      []string `yaml:"operatorIds" validate:"required"`
	ProtectedUserID  string   `yaml:"protectedUserId"`
	AuditChannelID   string   `yaml:"auditChannelId"`
	BlockTerms       []string `yaml:"blockTerms"`
	MinBitrateKbps   int      `yaml:"minBitrateKbps"`
	AutopanicEnabled bool     `yaml:"autopanicEnabled"`
	HardMode         bool     `yaml:"hardMode"`
}

type WatchdogConfig struct {
	Interval    time.Duration `yaml:"interval"`
	HomeGrace   time.Duration `yaml:"homeGrace"`
	SummonGrace time.Duration `yaml:"summonGrace"`
}

type ReassuranceConfig struct {
	Enabled             bool          `yaml:"enabled"`
	Tick                time.Duration `yaml:"tick"`
	InChannelInterval   time.Duration `yaml:"inChannelInterval"`
	ElsewhereInterval   time.Duration `yaml:"elsewhereInterval"`
	UseDM               bool          `yaml:"useDm"`
	FallbackChannelID   string        `yaml:"fallbackChannelId"`
	NotifyExternalStart bool          `yaml:"notifyExternalStart"`
	NotifyExternalStop  bool          `yaml:"notifyExternalStop"`
}

type SleepConfig struct {
	Enabled        bool          `yaml:"enabled"`
	After          time.Duration `yaml:"after"`
	Repeat         time.Duration `yaml:"repeat"`
	QuietStartHour int           `yaml:"quietStartHour" validate:"min:0|max:23"`
	QuietEndHour   int           `yaml:"quietEndHour" validate:"min:0|max:23"`
	Timezone       string        `yaml:"timezone"`
}

type DirectoryConfig struct {
	BaseURL       string        `yaml:"baseUrl" validate:"required|fullUrl"`
	UserAgent     string        `yaml:"userAgent"`
	Timeout       time.Duration `yaml:"timeout"`
	SearchLimit   int           `yaml:"searchLimit"`
	MaxConcurrent int64         `yaml:"maxConcurrent"`
}

type BridgeConfig struct {
	BaseURL      string        `yaml:"baseUrl" validate:"required|fullUrl"`
	Token        string        `yaml:"token"`
	Timeout      time.Duration `yaml:"timeout"`
	PlayerFlavor string        `yaml:"playerFlavor" validate:"in:lavalink,voiceclient"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	WebServer   Server            `yaml:"webServer"`
	Persistence Persistence       `yaml:"persistence"`
	Logger      LoggerConfig      `yaml:"logger"`
	Cache       CacheConfig       `yaml:"cache"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Events      EventsConfig      `yaml:"events"`
	Perimeter   PerimeterConfig   `yaml:"perimeter"`
	Watchdog    WatchdogConfig    `yaml:"watchdog"`
	Reassurance ReassuranceConfig `yaml:"reassurance"`
	Sleep       SleepConfig       `yaml:"sleep"`
	Directory   DirectoryConfig   `yaml:"directory"`
	Bridge      BridgeConfig      `yaml:"bridge"`
}
