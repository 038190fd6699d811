// Package lark implements provider.Provider and the inbound event listener
// over the Lark/Feishu Open Platform SDK, grounded on the teacher's
// internal/delivery/channels/lark package (REST client construction,
// WebSocket event dispatch, message/content parsing).
package lark

// Config captures the Lark app credentials and gateway behavior needed to
// run a Provider against a single Lark app.
type Config struct {
	AppID       string
	AppSecret   string
	BaseDomain  string // overrides the default Open Platform base URL; empty uses the SDK default.
	AllowDirect bool
	AllowGroups bool
}
