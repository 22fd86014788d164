package domain

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds every recognized key from §6. Zero-value fields are filled
// in by Defaults(); JSON-file overlays win over defaults. No command-line
// flag of cmd/harvester overrides a Config field.
type Config struct {
	MaxActiveThreads         int    `json:"max_active_threads"`
	MaxIfaceRequests         int    `json:"max_iface_requests"`
	URLTimeoutSeconds        int    `json:"url_timeout"`
	MinWaitSeconds           float64 `json:"min_wait_time"`
	MaxWaitSeconds           float64 `json:"max_wait_time"`
	MinSecondsBetweenUpdates int    `json:"min_seconds_between_updates"`
	MaxMsWorktime            int64  `json:"max_ms_worktime"`
	MaxBufferRetries         int    `json:"max_buffer_retries"`
	RetryTimeSeconds         int    `json:"retry_time_sec"`
	DepthMax                 int    `json:"depth_max"`
	ShuffleRoots             bool   `json:"shuffle_roots"`
	RecoveryInstance         bool   `json:"recovery_instance"`
	DebugDelay               bool   `json:"debug_delay"`
	BanPenalty               float64 `json:"ban_penalty"`
	AutoAdaptive             bool   `json:"auto_adaptive"`
	InterfacesEnabled        []string `json:"interfaces_enabled"`
	CaptchaAction            CaptchaAction `json:"captcha_action"`
	BrowserType              BrowserType   `json:"browser_type"`
	ServerURL                string `json:"server_url"`
	EntityPort               int    `json:"entity_port"`
	StatusPort               int    `json:"status_port"`
	FavoredOrg               string `json:"favored_org"`
	NATSURL                  string `json:"nats_url"`
	StatStorePath            string `json:"stat_store_path"`
}

// Defaults returns a Config with the same defaults as the original
// implementation's ConfigConstants module.
func Defaults() Config {
	return Config{
		MaxActiveThreads:         4,
		MaxIfaceRequests:         3,
		URLTimeoutSeconds:        30,
		MinWaitSeconds:           2,
		MaxWaitSeconds:           6,
		MinSecondsBetweenUpdates: 7 * 24 * 3600,
		MaxMsWorktime:            -1,
		MaxBufferRetries:         3,
		RetryTimeSeconds:         5,
		DepthMax:                 6,
		ShuffleRoots:             true,
		RecoveryInstance:         true,
		DebugDelay:               false,
		BanPenalty:               3,
		AutoAdaptive:             true,
		InterfacesEnabled:        []string{IfaceAuthor, IfacePublication, IfaceConference, IfaceJournal},
		CaptchaAction:            CaptchaIgnore,
		BrowserType:              BrowserEmbedded,
		ServerURL:                "127.0.0.1",
		EntityPort:               9090,
		StatusPort:               9091,
		StatStorePath:            "harvester-stats.json",
	}
}

// LoadConfig reads a JSON file at path and overlays it onto Defaults().
// A missing file is not an error; Defaults() is returned unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// IfaceEnabled reports whether the named interface is in InterfacesEnabled.
func (c Config) IfaceEnabled(iface string) bool {
	for _, v := range c.InterfacesEnabled {
		if v == iface {
			return true
		}
	}
	return false
}
