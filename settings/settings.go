// Package settings holds the layered configuration for a room bridge and the
// extension that hosts it. Optional fields are pointers so a layer can leave
// a value unset and let a weaker layer supply it.
package settings

import (
	"time"

	"github.com/goliatone/go-roomsync/rules"
)

// Settings is one layer of configuration.
type Settings struct {
	Bridge    Bridge    `yaml:"bridge" json:"bridge" envPrefix:"BRIDGE_"`
	Extension Extension `yaml:"extension" json:"extension" envPrefix:"EXTENSION_"`
}

// Bridge configures how the room bridge finds the external API and how it is
// driven.
type Bridge struct {
	Namespace      *string `yaml:"namespace,omitempty" json:"namespace,omitempty" env:"NAMESPACE"`
	Accessor       *string `yaml:"accessor,omitempty" json:"accessor,omitempty" env:"ACCESSOR"`
	NotifierKey    *string `yaml:"notifier_key,omitempty" json:"notifier_key,omitempty" env:"NOTIFIER_KEY"`
	Push           *bool   `yaml:"push,omitempty" json:"push,omitempty" env:"PUSH"`
	PollFallback   *bool   `yaml:"poll_fallback,omitempty" json:"poll_fallback,omitempty" env:"POLL_FALLBACK"`
	PollIntervalMS *int64  `yaml:"poll_interval_ms,omitempty" json:"poll_interval_ms,omitempty" env:"POLL_INTERVAL_MS"`
	PollWhen       *string `yaml:"poll_when,omitempty" json:"poll_when,omitempty" env:"POLL_WHEN"`
	RuleEngine     *string `yaml:"rule_engine,omitempty" json:"rule_engine,omitempty" env:"RULE_ENGINE"`
}

// Extension carries the user-facing toggles the hosting extension persists.
type Extension struct {
	Beeps        *bool `yaml:"roboscape_beep,omitempty" json:"roboscape_beep,omitempty" env:"BEEPS"`
	IDBillboards *bool `yaml:"roboscape_id_billboards,omitempty" json:"roboscape_id_billboards,omitempty" env:"ID_BILLBOARDS"`
}

const (
	DefaultNamespace    = "RoboScapeOnline_fns"
	DefaultAccessor     = "room_id"
	DefaultNotifierKey  = "RoboScapeOnline_notifyRoom"
	DefaultPollInterval = 1000
	DefaultPollWhen     = "!push_enabled || poll_fallback"
	DefaultRuleEngine   = rules.EngineExpr
)

// Defaults returns the weakest layer. Every field is set.
func Defaults() Settings {
	return Settings{
		Bridge: Bridge{
			Namespace:      String(DefaultNamespace),
			Accessor:       String(DefaultAccessor),
			NotifierKey:    String(DefaultNotifierKey),
			Push:           Bool(true),
			PollFallback:   Bool(true),
			PollIntervalMS: Int64(DefaultPollInterval),
			PollWhen:       String(DefaultPollWhen),
			RuleEngine:     String(DefaultRuleEngine),
		},
		Extension: Extension{
			Beeps:        Bool(true),
			IDBillboards: Bool(true),
		},
	}
}

// Effective is a fully resolved configuration with concrete values.
type Effective struct {
	Namespace    string        `json:"namespace"`
	Accessor     string        `json:"accessor"`
	NotifierKey  string        `json:"notifier_key"`
	Push         bool          `json:"push"`
	PollFallback bool          `json:"poll_fallback"`
	PollInterval time.Duration `json:"poll_interval"`
	PollWhen     string        `json:"poll_when"`
	RuleEngine   string        `json:"rule_engine"`
	Beeps        bool          `json:"roboscape_beep"`
	IDBillboards bool          `json:"roboscape_id_billboards"`
}

// Effective flattens s, falling back to Defaults for any unset field.
func (s Settings) Effective() Effective {
	merged := MergeLayers(s, Defaults())
	b, e := merged.Bridge, merged.Extension
	return Effective{
		Namespace:    *b.Namespace,
		Accessor:     *b.Accessor,
		NotifierKey:  *b.NotifierKey,
		Push:         *b.Push,
		PollFallback: *b.PollFallback,
		PollInterval: time.Duration(*b.PollIntervalMS) * time.Millisecond,
		PollWhen:     *b.PollWhen,
		RuleEngine:   *b.RuleEngine,
		Beeps:        *e.Beeps,
		IDBillboards: *e.IDBillboards,
	}
}

// Validate checks s as it would resolve over Defaults.
func (s Settings) Validate() error {
	return s.Effective().Validate()
}

// String returns a pointer to v.
func String(v string) *string { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }
