// Package coordinator implements the inbound task state machine described
// in spec.md §4.4 (component D): classifying new vs. resume requests,
// driving InFlightTask through StatusReactor transitions, dispatching to the
// agent, and reconciling interrupted tasks at boot.
package coordinator

import (
	"time"

	"github.com/alfadb/openclaw/internal/agent"
	"github.com/alfadb/openclaw/internal/announce"
	"github.com/alfadb/openclaw/internal/inbound"
	"github.com/alfadb/openclaw/internal/inflight"
	"github.com/alfadb/openclaw/internal/platform/logging"
	"github.com/alfadb/openclaw/internal/provider"
	"github.com/alfadb/openclaw/internal/session"
	"github.com/alfadb/openclaw/internal/statusreactor"
)

const permissionErrorCooldown = 5 * time.Minute

// SessionFactory resolves the session.Manager backing a given session key,
// so the coordinator never owns persistence details directly.
type SessionFactory func(sessionKey string) session.Manager

// Deps bundles Coordinator's collaborators.
type Deps struct {
	Store          *inflight.Store
	Gate           *inbound.Gate
	Reactor        *statusreactor.Reactor
	Sender         provider.Provider
	Dispatcher     agent.Dispatcher
	Sessions       SessionFactory
	Announce       *announce.Manager
	Policy         PolicyConfig
	BotMentionKeys []string
	Logger         logging.Logger
	AgentRoute     agent.Config
}

// Coordinator is the single object constructed at gateway start that
// encapsulates the process-wide mutable maps this component needs: the
// group-history ring and the permission-error cooldown cache.
type Coordinator struct {
	store      *inflight.Store
	gate       *inbound.Gate
	reactor    *statusreactor.Reactor
	sender     provider.Provider
	dispatcher agent.Dispatcher
	sessions   SessionFactory
	announce   *announce.Manager
	policy     PolicyConfig
	botKeys    []string
	route      agent.Config
	logger     logging.Logger

	history   *groupHistory
	permCache *permissionCache
}

// New creates a Coordinator. deps.Sender is wrapped so every successful
// outbound send it makes is observed for the waiting-to-done auto-finalize
// path (spec.md §8 scenario 7).
func New(deps Deps) *Coordinator {
	c := &Coordinator{
		store:      deps.Store,
		gate:       deps.Gate,
		reactor:    deps.Reactor,
		dispatcher: deps.Dispatcher,
		sessions:   deps.Sessions,
		announce:   deps.Announce,
		policy:     deps.Policy,
		botKeys:    deps.BotMentionKeys,
		route:      deps.AgentRoute,
		logger:     logging.OrNop(deps.Logger),
		history:    newGroupHistory(20),
		permCache:  newPermissionCache(permissionErrorCooldown),
	}
	if deps.Sender != nil {
		c.sender = c.WrapSender("", deps.Sender)
	}
	return c
}
