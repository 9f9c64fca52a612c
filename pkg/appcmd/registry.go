package appcmd

import (
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Registry holds all locally-defined command nodes, partitioned by surface
// kind (chat/user/message) and by scope (global, or one set per guild).
// It is created once at startup and handed by reference to the synchronizer
// and the dispatcher; the synchronizer takes the write path (binding remote
// state), dispatch only reads.
type Registry struct {
	mu     sync.RWMutex
	log    zerolog.Logger
	global *scopeSet
	guilds map[string]*scopeSet
	checks []Check
	gen    uint64
}

type scopeSet struct {
	chat    map[string]*SlashCommand
	user    map[string]*UserCommand
	message map[string]*MessageCommand
}

func newScopeSet() *scopeSet {
	return &scopeSet{
		chat:    make(map[string]*SlashCommand),
		user:    make(map[string]*UserCommand),
		message: make(map[string]*MessageCommand),
	}
}

func (s *scopeSet) lookup(typ discordgo.ApplicationCommandType, name string) Node {
	switch typ {
	case discordgo.ChatApplicationCommand:
		if c, ok := s.chat[name]; ok {
			return c
		}
	case discordgo.UserApplicationCommand:
		if c, ok := s.user[name]; ok {
			return c
		}
	case discordgo.MessageApplicationCommand:
		if c, ok := s.message[name]; ok {
			return c
		}
	}
	return nil
}

// NewRegistry returns an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		log:    log.With().Str("component", "registry").Logger(),
		global: newScopeSet(),
		guilds: make(map[string]*scopeSet),
		gen:    1,
	}
}

// AddCheck appends a registry-wide predicate that runs before every handler,
// ahead of the node's own checks.
func (r *Registry) AddCheck(chk Check) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks = append(r.checks, chk)
	return r
}

// RegisterSlash adds a chat-input command to the registry. Without guild IDs
// the command is global; with guild IDs one logical node is registered for
// each listed guild, sharing its handlers across all of them. Re-registering
// the same node is allowed (reloads depend on it); a different node under an
// already-taken name fails.
func (r *Registry) RegisterSlash(c *SlashCommand, guildIDs ...string) error {
	if err := c.validateTree(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c.setGeneration(r.gen)
	c.setDisabled(false)
	if len(guildIDs) == 0 {
		if existing, dup := r.global.chat[c.name]; dup && existing != c {
			return invalidf("global chat command %q already registered", c.name)
		}
		r.global.chat[c.name] = c
		return nil
	}
	for _, gid := range guildIDs {
		set := r.guildSet(gid)
		if existing, dup := set.chat[c.name]; dup && existing != c {
			return invalidf("chat command %q already registered for guild %s", c.name, gid)
		}
		set.chat[c.name] = c
	}
	return nil
}

// RegisterUser adds a user context-menu command, globally or per guild.
func (r *Registry) RegisterUser(c *UserCommand, guildIDs ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.setGeneration(r.gen)
	c.setDisabled(false)
	if len(guildIDs) == 0 {
		if existing, dup := r.global.user[c.name]; dup && existing != c {
			return invalidf("global user command %q already registered", c.name)
		}
		r.global.user[c.name] = c
		return nil
	}
	for _, gid := range guildIDs {
		set := r.guildSet(gid)
		if existing, dup := set.user[c.name]; dup && existing != c {
			return invalidf("user command %q already registered for guild %s", c.name, gid)
		}
		set.user[c.name] = c
	}
	return nil
}

// RegisterMessage adds a message context-menu command, globally or per guild.
func (r *Registry) RegisterMessage(c *MessageCommand, guildIDs ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.setGeneration(r.gen)
	c.setDisabled(false)
	if len(guildIDs) == 0 {
		if existing, dup := r.global.message[c.name]; dup && existing != c {
			return invalidf("global message command %q already registered", c.name)
		}
		r.global.message[c.name] = c
		return nil
	}
	for _, gid := range guildIDs {
		set := r.guildSet(gid)
		if existing, dup := set.message[c.name]; dup && existing != c {
			return invalidf("message command %q already registered for guild %s", c.name, gid)
		}
		set.message[c.name] = c
	}
	return nil
}

// guildSet returns (creating if needed) the scope set for a guild. Callers
// hold the write lock.
func (r *Registry) guildSet(guildID string) *scopeSet {
	set, ok := r.guilds[guildID]
	if !ok {
		set = newScopeSet()
		r.guilds[guildID] = set
	}
	return set
}

// Slash looks up a chat command by name, preferring the guild's own set and
// falling back to the global one.
func (r *Registry) Slash(guildID, name string) *SlashCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if guildID != "" {
		if set, ok := r.guilds[guildID]; ok {
			if c, ok := set.chat[name]; ok {
				return c
			}
		}
	}
	return r.global.chat[name]
}

// User looks up a user context-menu command by name.
func (r *Registry) User(guildID, name string) *UserCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if guildID != "" {
		if set, ok := r.guilds[guildID]; ok {
			if c, ok := set.user[name]; ok {
				return c
			}
		}
	}
	return r.global.user[name]
}

// Message looks up a message context-menu command by name.
func (r *Registry) Message(guildID, name string) *MessageCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if guildID != "" {
		if set, ok := r.guilds[guildID]; ok {
			if c, ok := set.message[name]; ok {
				return c
			}
		}
	}
	return r.global.message[name]
}

// GuildIDs returns every guild identifier with at least one registered
// command, sorted for stable iteration.
func (r *Registry) GuildIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.guilds))
	for gid := range r.guilds {
		ids = append(ids, gid)
	}
	sort.Strings(ids)
	return ids
}

// All returns every node registered for a scope ("" = global), sorted by
// name within each surface kind.
func (r *Registry) All(guildID string) []Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.scopeFor(guildID)
	if set == nil {
		return nil
	}
	var nodes []Node
	for _, name := range sortedKeys(set.chat) {
		nodes = append(nodes, set.chat[name])
	}
	for _, name := range sortedKeys(set.user) {
		nodes = append(nodes, set.user[name])
	}
	for _, name := range sortedKeys(set.message) {
		nodes = append(nodes, set.message[name])
	}
	return nodes
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry) scopeFor(guildID string) *scopeSet {
	if guildID == "" {
		return r.global
	}
	return r.guilds[guildID]
}

// snapshot returns the nodes of one scope partitioned by surface kind.
// The maps are copies; the nodes are shared.
func (r *Registry) snapshot(guildID string) map[discordgo.ApplicationCommandType]map[string]Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[discordgo.ApplicationCommandType]map[string]Node{
		discordgo.ChatApplicationCommand:    {},
		discordgo.UserApplicationCommand:    {},
		discordgo.MessageApplicationCommand: {},
	}
	set := r.scopeFor(guildID)
	if set == nil {
		return out
	}
	for name, c := range set.chat {
		out[discordgo.ChatApplicationCommand][name] = c
	}
	for name, c := range set.user {
		out[discordgo.UserApplicationCommand][name] = c
	}
	for name, c := range set.message {
		out[discordgo.MessageApplicationCommand][name] = c
	}
	return out
}

// rebind stores remote identifiers, creation timestamps and permission
// snapshots onto the scope's local nodes after a synchronization write.
func (r *Registry) rebind(guildID string, remotes []*discordgo.ApplicationCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.scopeFor(guildID)
	if set == nil {
		return
	}
	for _, rc := range remotes {
		node := set.lookup(typeOrChat(rc.Type), rc.Name)
		if node == nil {
			// remote command with no code definition; kept because deletion
			// is disabled, or external drift
			r.log.Debug().
				Str("guild_id", guildID).
				Str("command", rc.Name).
				Msg("remote command has no local definition")
			continue
		}
		node.bind(guildID, rc)
	}
}

// BeginReload starts a new registration generation. Commands re-registered
// after this call survive FinishReload untouched.
func (r *Registry) BeginReload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
}

// FinishReload handles nodes that were not re-registered since BeginReload:
// with deleteMissing false they are soft-removed — disabled, so dispatch
// refuses them, with remote bindings kept — and a later synchronization with
// deletion enabled can still address them; with deleteMissing true they are
// dropped from the registry entirely. The affected nodes are returned.
func (r *Registry) FinishReload(deleteMissing bool) []Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []Node
	seen := make(map[Node]struct{})
	scopes := make([]*scopeSet, 0, len(r.guilds)+1)
	scopes = append(scopes, r.global)
	for _, set := range r.guilds {
		scopes = append(scopes, set)
	}
	for _, set := range scopes {
		for name, c := range set.chat {
			if c.generation() == r.gen {
				continue
			}
			if deleteMissing {
				delete(set.chat, name)
			}
			if _, dup := seen[c]; !dup {
				seen[c] = struct{}{}
				c.setDisabled(true)
				stale = append(stale, c)
			}
		}
		for name, c := range set.user {
			if c.generation() == r.gen {
				continue
			}
			if deleteMissing {
				delete(set.user, name)
			}
			if _, dup := seen[c]; !dup {
				seen[c] = struct{}{}
				c.setDisabled(true)
				stale = append(stale, c)
			}
		}
		for name, c := range set.message {
			if c.generation() == r.gen {
				continue
			}
			if deleteMissing {
				delete(set.message, name)
			}
			if _, dup := seen[c]; !dup {
				seen[c] = struct{}{}
				c.setDisabled(true)
				stale = append(stale, c)
			}
		}
	}
	if len(stale) > 0 {
		r.log.Warn().
			Int("count", len(stale)).
			Bool("deleted", deleteMissing).
			Msg("commands removed from code but still registered remotely")
	}
	return stale
}

func (r *Registry) inheritedChecks() []Check {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.checks
}
