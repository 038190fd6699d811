package config

import (
	"github.com/alfadb/openclaw/internal/announce"
	"github.com/alfadb/openclaw/internal/coordinator"
	"github.com/alfadb/openclaw/internal/inbound"
	"github.com/alfadb/openclaw/internal/provider/lark"
)

// PolicyConfig converts the YAML-decoded policy options into
// coordinator.PolicyConfig.
func (o Options) PolicyConfig() coordinator.PolicyConfig {
	return coordinator.PolicyConfig{
		AllowGroups:            o.Lark.AllowGroups,
		AllowDirect:            o.Lark.AllowDirect,
		RequireMention:         o.Policy.RequireMention,
		AllowedGroupChatIDs:    o.Policy.AllowedGroupChatIDs,
		AllowedGroupSenderIDs:  o.Policy.AllowedGroupSenderIDs,
		AllowedDirectSenderIDs: o.Policy.AllowedDirectSenderIDs,
	}
}

// InboundConfig converts the stale-drop options into inbound.Config.
func (o Options) InboundConfig() inbound.Config {
	return inbound.Config{
		StaleDropEnabled: o.StaleDrop.Enabled,
		StaleDropReply:   o.StaleDrop.Reply,
		SkewWindowMs:     o.StaleDrop.SkewWindowMs,
		RecentIDsLimit:   o.StaleDrop.RecentIDsLimit,
	}
}

// AnnounceSettings converts the announce options into announce.Settings,
// ready to pass to announce.Manager.Enqueue.
func (o Options) AnnounceSettings() announce.Settings {
	mode := announce.ModeFollowup
	if o.Announce.Mode == string(announce.ModeCollect) {
		mode = announce.ModeCollect
	}
	drop := announce.DropSummarize
	switch o.Announce.DropPolicy {
	case string(announce.DropOldest):
		drop = announce.DropOldest
	case string(announce.DropNewest):
		drop = announce.DropNewest
	}
	return announce.Settings{
		Mode:       mode,
		DebounceMs: o.Announce.DebounceMs,
		Cap:        o.Announce.Cap,
		DropPolicy: drop,
		MaxAgeMs:   o.Announce.MaxAgeMs,
	}
}

// LarkConfig converts the Lark options into provider/lark.Config.
func (o Options) LarkConfig() lark.Config {
	return lark.Config{
		AppID:       o.Lark.AppID,
		AppSecret:   o.Lark.AppSecret,
		BaseDomain:  o.Lark.BaseDomain,
		AllowDirect: o.Lark.AllowDirect,
		AllowGroups: o.Lark.AllowGroups,
	}
}
