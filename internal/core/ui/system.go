// Package ui routes bound user interface traffic between sessions and the
// entities whose windows they have open.
//
// Inbound messages become directed events on the target entity. Outbound
// state is pushed as whole snapshots, de-duplicated per session by content
// hash.
package ui

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/contentpack/internal/core/ecs"
	"github.com/zeusync/contentpack/internal/core/observability/log"
)

var (
	ErrNotOpen        = errors.New("ui is not open for this session")
	ErrUnknownMessage = errors.New("no handler for ui message")
	ErrNoActor        = errors.New("session has no actor")
)

// Key names one kind of window an entity can expose.
type Key string

// Received is raised on the target entity for every inbound message of type M.
type Received[M any] struct {
	Key     Key
	Actor   ecs.EntityID
	Session string
	Message *M
}

// StateProvider builds the current snapshot of a window on target.
type StateProvider func(target ecs.EntityID) (any, bool)

// Outbound is one pending push to a session.
type Outbound struct {
	Session string
	Target  ecs.EntityID
	Key     Key
	// State is the JSON snapshot; nil when Closed is set.
	State  json.RawMessage
	Closed bool
}

type ref struct {
	target ecs.EntityID
	key    Key
}

type sessionRef struct {
	session string
	ref
}

type dispatcher func(s *System, session string, actor ecs.EntityID, r ref, msg any) error

// System tracks open windows and pending state pushes.
type System struct {
	w   *ecs.World
	log log.Log

	open      map[ref]map[string]ecs.EntityID
	dispatch  map[reflect.Type]dispatcher
	providers map[Key]StateProvider
	states    map[ref]json.RawMessage
	sent      map[sessionRef]uint64
	outbox    []Outbound
}

// NewSystem creates an empty router for w.
func NewSystem(w *ecs.World, logger log.Log) *System {
	return &System{
		w:         w,
		log:       logger.Named("ui"),
		open:      make(map[ref]map[string]ecs.EntityID),
		dispatch:  make(map[reflect.Type]dispatcher),
		providers: make(map[Key]StateProvider),
		states:    make(map[ref]json.RawMessage),
		sent:      make(map[sessionRef]uint64),
	}
}

// Subscribe runs fn for every M sent to a key window on an entity with a C
// component.
func Subscribe[C any, M any](s *System, key Key, fn func(id ecs.EntityID, comp *C, msg *Received[M])) error {
	typ := reflect.TypeFor[*M]()
	if _, ok := s.dispatch[typ]; !ok {
		s.dispatch[typ] = func(s *System, session string, actor ecs.EntityID, r ref, msg any) error {
			return ecs.RaiseLocalEvent(s.w, r.target, &Received[M]{
				Key:     r.key,
				Actor:   actor,
				Session: session,
				Message: msg.(*M),
			})
		}
	}
	return ecs.SubscribeLocal(s.w, func(id ecs.EntityID, comp *C, ev *Received[M]) {
		if ev.Key != key {
			return
		}
		fn(id, comp, ev)
	})
}

// RegisterStateProvider installs the snapshot builder used when a key window
// opens or its entity is dirtied.
func (s *System) RegisterStateProvider(key Key, p StateProvider) {
	s.providers[key] = p
}

// Interfaces lists the keys whose provider has a snapshot for target.
func (s *System) Interfaces(target ecs.EntityID) []Key {
	var out []Key
	for key, p := range s.providers {
		if _, ok := p(target); ok {
			out = append(out, key)
		}
	}
	slices.Sort(out)
	return out
}

// Open records that session, played by actor, has key open on target and
// queues the current snapshot for it.
func (s *System) Open(session string, actor, target ecs.EntityID, key Key) error {
	if !s.w.Exists(actor) {
		return fmt.Errorf("open %s on %s: %w", key, target, ErrNoActor)
	}
	if !s.w.Exists(target) {
		return fmt.Errorf("open %s on %s: %w", key, target, ecs.ErrEntityNotFound)
	}
	r := ref{target: target, key: key}
	sessions, ok := s.open[r]
	if !ok {
		sessions = make(map[string]ecs.EntityID)
		s.open[r] = sessions
	}
	sessions[session] = actor
	delete(s.sent, sessionRef{session: session, ref: r})

	if p, ok := s.providers[key]; ok {
		if state, ok := p(target); ok {
			s.SetUiState(target, key, state)
			return nil
		}
	}
	if raw, ok := s.states[r]; ok {
		s.queueState(session, r, raw, false)
	}
	return nil
}

// Close forgets that session has key open on target.
func (s *System) Close(session string, target ecs.EntityID, key Key) {
	r := ref{target: target, key: key}
	if sessions, ok := s.open[r]; ok {
		delete(sessions, session)
		if len(sessions) == 0 {
			delete(s.open, r)
		}
	}
	delete(s.sent, sessionRef{session: session, ref: r})
}

// CloseSession closes every window session has open.
func (s *System) CloseSession(session string) {
	for r := range s.open {
		s.Close(session, r.target, r.key)
	}
}

// IsOpen reports whether session has key open on target.
func (s *System) IsOpen(session string, target ecs.EntityID, key Key) bool {
	_, ok := s.open[ref{target: target, key: key}][session]
	return ok
}

// Sessions lists the sessions with key open on target.
func (s *System) Sessions(target ecs.EntityID, key Key) []string {
	sessions := s.open[ref{target: target, key: key}]
	out := make([]string, 0, len(sessions))
	for session := range sessions {
		out = append(out, session)
	}
	sort.Strings(out)
	return out
}

// Receive raises msg, a pointer to a registered message struct, on target.
func (s *System) Receive(session string, target ecs.EntityID, key Key, msg any) error {
	r := ref{target: target, key: key}
	actor, ok := s.open[r][session]
	if !ok {
		return fmt.Errorf("%s on %s: %w", key, target, ErrNotOpen)
	}
	d, ok := s.dispatch[reflect.TypeOf(msg)]
	if !ok {
		return fmt.Errorf("%T: %w", msg, ErrUnknownMessage)
	}
	return d(s, session, actor, r, msg)
}

// SetUiState stores state as the snapshot of key on target and queues it
// for every session that has not received identical content.
func (s *System) SetUiState(target ecs.EntityID, key Key, state any) {
	s.setUiState(target, key, state, false)
}

// ForceUiState is SetUiState without the de-duplication: every viewer gets
// the snapshot even when it matches what they were last sent.
func (s *System) ForceUiState(target ecs.EntityID, key Key, state any) {
	s.setUiState(target, key, state, true)
}

func (s *System) setUiState(target ecs.EntityID, key Key, state any, force bool) {
	raw, err := json.Marshal(state)
	if err != nil {
		s.log.Error("encode ui state", log.String("key", string(key)), log.Error(err))
		return
	}
	r := ref{target: target, key: key}
	s.states[r] = raw
	for _, session := range s.Sessions(target, key) {
		s.queueState(session, r, raw, force)
	}
}

func (s *System) queueState(session string, r ref, raw json.RawMessage, force bool) {
	sr := sessionRef{session: session, ref: r}
	h := xxhash.Sum64(raw)
	if prev, ok := s.sent[sr]; ok && prev == h && !force {
		return
	}
	s.sent[sr] = h
	s.outbox = append(s.outbox, Outbound{Session: session, Target: r.target, Key: r.key, State: raw})
}

// Flush refreshes windows on dirtied entities, closes windows on deleted
// ones and drains the pending pushes in queue order.
func (s *System) Flush() []Outbound {
	dirty := s.w.TakeDirty()
	refs := make([]ref, 0, len(s.open))
	for r := range s.open {
		refs = append(refs, r)
	}
	slices.SortFunc(refs, func(a, b ref) int {
		return cmp.Or(cmp.Compare(a.target, b.target), strings.Compare(string(a.key), string(b.key)))
	})

	for _, r := range refs {
		if !s.w.Exists(r.target) {
			for _, session := range s.Sessions(r.target, r.key) {
				s.outbox = append(s.outbox, Outbound{Session: session, Target: r.target, Key: r.key, Closed: true})
				s.Close(session, r.target, r.key)
			}
			delete(s.states, r)
			continue
		}
		if _, isDirty := slices.BinarySearch(dirty, r.target); !isDirty {
			continue
		}
		if p, ok := s.providers[r.key]; ok {
			if state, ok := p(r.target); ok {
				s.SetUiState(r.target, r.key, state)
			}
		}
	}

	out := s.outbox
	s.outbox = nil
	return out
}
