// Package config loads the gateway's on-disk YAML configuration, grounded
// on the teacher's internal/shared/config/file_config.go (pointer-for-
// optional-override YAML structs) and mistermorph's cmd/mister_morph/
// root.go viper wiring (config-file flag + env var overlay).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Options is the root configuration document, covering spec.md §6's
// recognized options plus the policy allowlist and Provider credential
// fields SPEC_FULL.md §6 adds.
type Options struct {
	StateDir string `yaml:"state_dir" mapstructure:"state_dir"`

	Lark LarkOptions `yaml:"lark" mapstructure:"lark"`

	Policy PolicyOptions `yaml:"policy" mapstructure:"policy"`

	StaleDrop StaleDropOptions `yaml:"stale_drop" mapstructure:"stale_drop"`

	Announce AnnounceOptions `yaml:"announce" mapstructure:"announce"`

	ToolResult ToolResultOptions `yaml:"tool_result" mapstructure:"tool_result"`

	Agent AgentOptions `yaml:"agent" mapstructure:"agent"`
}

// LarkOptions configures the single Lark app this gateway process runs
// against, grounded on the teacher's Config.AppID/AppSecret/BaseDomain
// (internal/delivery/channels/lark/config.go).
type LarkOptions struct {
	AccountID   string `yaml:"account_id" mapstructure:"account_id"`
	AppID       string `yaml:"app_id" mapstructure:"app_id"`
	AppSecret   string `yaml:"app_secret" mapstructure:"app_secret"`
	BaseDomain  string `yaml:"base_domain" mapstructure:"base_domain"`
	AllowDirect bool   `yaml:"allow_direct" mapstructure:"allow_direct"`
	AllowGroups bool   `yaml:"allow_groups" mapstructure:"allow_groups"`
}

// PolicyOptions mirrors coordinator.PolicyConfig for YAML decoding.
type PolicyOptions struct {
	RequireMention         bool                `yaml:"require_mention" mapstructure:"require_mention"`
	AllowedGroupChatIDs    []string            `yaml:"allowed_group_chat_ids" mapstructure:"allowed_group_chat_ids"`
	AllowedGroupSenderIDs  map[string][]string `yaml:"allowed_group_sender_ids" mapstructure:"allowed_group_sender_ids"`
	AllowedDirectSenderIDs []string            `yaml:"allowed_direct_sender_ids" mapstructure:"allowed_direct_sender_ids"`
	BotMentionKeys         []string            `yaml:"bot_mention_keys" mapstructure:"bot_mention_keys"`
}

// StaleDropOptions mirrors inbound.Config for YAML decoding (spec.md §6).
type StaleDropOptions struct {
	Enabled        bool  `yaml:"enabled" mapstructure:"enabled"`
	Reply          bool  `yaml:"reply" mapstructure:"reply"`
	SkewWindowMs   int64 `yaml:"skew_window_ms" mapstructure:"skew_window_ms"`
	RecentIDsLimit int   `yaml:"recent_ids_limit" mapstructure:"recent_ids_limit"`
}

// AnnounceOptions mirrors announce.Settings for YAML decoding (spec.md §6).
// Options.AnnounceSettings converts them; announce.Manager.Enqueue does not
// fall back to them on its own, it uses the Settings its caller passes.
type AnnounceOptions struct {
	Mode        string `yaml:"mode" mapstructure:"mode"`
	DebounceMs  int64  `yaml:"debounce_ms" mapstructure:"debounce_ms"`
	Cap         int    `yaml:"cap" mapstructure:"cap"`
	DropPolicy  string `yaml:"drop_policy" mapstructure:"drop_policy"`
	MaxAgeMs    int64  `yaml:"max_age_ms" mapstructure:"max_age_ms"`
	MaxDrainers int    `yaml:"max_drainers" mapstructure:"max_drainers"`
}

// ToolResultOptions mirrors spec.md §6's tool-result row.
type ToolResultOptions struct {
	HardMaxChars int `yaml:"hard_max_chars" mapstructure:"hard_max_chars"`
}

// AgentOptions is opaque routing/model configuration passed through to the
// agent collaborator unmodified (spec.md §6).
type AgentOptions struct {
	Route string `yaml:"route" mapstructure:"route"`
	Model string `yaml:"model" mapstructure:"model"`
}

// Defaults returns the documented defaults from spec.md §6.
func Defaults() Options {
	return Options{
		StateDir: "./state",
		Lark: LarkOptions{
			AllowDirect: true,
			AllowGroups: true,
		},
		StaleDrop: StaleDropOptions{
			Enabled:        true,
			Reply:          true,
			SkewWindowMs:   5000,
			RecentIDsLimit: 250,
		},
		Announce: AnnounceOptions{
			Mode:        "followup",
			DebounceMs:  1000,
			Cap:         20,
			DropPolicy:  "summarize",
			MaxAgeMs:    10 * 60 * 1000,
			MaxDrainers: 8,
		},
		ToolResult: ToolResultOptions{
			HardMaxChars: 20000,
		},
	}
}

// Load reads path (YAML) over Defaults(), then applies OPENCLAW_-prefixed
// environment variable overrides, following mistermorph's
// cmd/mister_morph/root.go initConfig pattern: SetEnvPrefix +
// SetEnvKeyReplacer + AutomaticEnv layered on top of an explicit config
// file. Unmarshal only consults environment variables for keys viper
// already knows from the config file, so an override applies only to a key
// that the file also sets; an empty path skips the file read and returns
// Defaults() unchanged.
func Load(path string) (Options, error) {
	opts := Defaults()

	v := viper.New()
	v.SetEnvPrefix("OPENCLAW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Options{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&opts); err != nil {
		return Options{}, fmt.Errorf("decode config: %w", err)
	}
	return opts, nil
}
