// Package vocabulary implements the Controlled Vocabulary Store (C3):
// four immutable sets loaded once per process — topics, projects, places,
// and role identifiers — against which the Enricher's tags are validated.
package vocabulary

import (
	"strings"
	"sync/atomic"
)

// Project is a watchlist-bearing controlled-vocabulary entry.
type Project struct {
	ID       string
	Keywords []string // watchlist keywords matched case-insensitive, whole-token
	From     string   // optional ISO-8601 date range bounds; empty means unbounded
	To       string
}

// Store is a read-only, thread-safe controlled vocabulary snapshot.
type Store struct {
	topics   map[string]struct{}
	topicsOrdered []string
	projects map[string]Project
	places   map[string]struct{}
	placesOrdered []string
	roles    map[string]struct{}
	rolesOrdered []string
	keywordIndex map[string]string // lowercase keyword -> project id
}

// New builds an immutable Store from the parsed vocabulary inputs. The
// caller is responsible for loading and parsing the source YAML; Store only
// consumes already-parsed enumerations (spec §1 places the loader out of
// core scope).
func New(topics []string, projects []Project, places []string, roles []string) *Store {
	s := &Store{
		topics:       make(map[string]struct{}, len(topics)),
		projects:     make(map[string]Project, len(projects)),
		places:       make(map[string]struct{}, len(places)),
		roles:        make(map[string]struct{}, len(roles)),
		keywordIndex: map[string]string{},
	}
	for _, t := range topics {
		if _, ok := s.topics[t]; !ok {
			s.topics[t] = struct{}{}
			s.topicsOrdered = append(s.topicsOrdered, t)
		}
	}
	for _, p := range projects {
		s.projects[p.ID] = p
		for _, kw := range p.Keywords {
			s.keywordIndex[strings.ToLower(kw)] = p.ID
		}
	}
	for _, p := range places {
		if _, ok := s.places[p]; !ok {
			s.places[p] = struct{}{}
			s.placesOrdered = append(s.placesOrdered, p)
		}
	}
	for _, r := range roles {
		if _, ok := s.roles[r]; !ok {
			s.roles[r] = struct{}{}
			s.rolesOrdered = append(s.rolesOrdered, r)
		}
	}
	return s
}

func (s *Store) ContainsTopic(name string) bool {
	_, ok := s.topics[name]
	return ok
}

func (s *Store) ContainsProject(id string) bool {
	_, ok := s.projects[id]
	return ok
}

func (s *Store) ContainsPlace(name string) bool {
	_, ok := s.places[name]
	return ok
}

func (s *Store) ContainsRole(name string) bool {
	_, ok := s.roles[name]
	return ok
}

func (s *Store) ListAllTopics() []string {
	out := make([]string, len(s.topicsOrdered))
	copy(out, s.topicsOrdered)
	return out
}

func (s *Store) IterPlaces() []string {
	out := make([]string, len(s.placesOrdered))
	copy(out, s.placesOrdered)
	return out
}

func (s *Store) IterRoles() []string {
	out := make([]string, len(s.rolesOrdered))
	copy(out, s.rolesOrdered)
	return out
}

// MatchProjects scans text for any watchlist keyword, case-insensitive and
// whole-token-bounded, returning the set of matched project ids.
func (s *Store) MatchProjects(text string) map[string]struct{} {
	out := map[string]struct{}{}
	lower := strings.ToLower(text)
	for kw, pid := range s.keywordIndex {
		if ContainsWholeToken(lower, kw) {
			out[pid] = struct{}{}
		}
	}
	return out
}

// ContainsWholeToken reports whether kw occurs in haystack at a token
// boundary (surrounded by non-alphanumeric characters or string edges).
// Exported so other components (e.g. the Enricher's entity presence check)
// can reuse the same whole-word primitive instead of a weaker substring test.
func ContainsWholeToken(haystack, kw string) bool {
	if kw == "" {
		return false
	}
	idx := 0
	for {
		pos := strings.Index(haystack[idx:], kw)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(kw)
		beforeOK := start == 0 || !isAlnum(rune(haystack[start-1]))
		afterOK := end == len(haystack) || !isAlnum(rune(haystack[end]))
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
		if idx >= len(haystack) {
			return false
		}
	}
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// Handle holds an atomically-swappable Store pointer so reload_vocabulary
// (§6 Admin operations) never exposes a half-loaded snapshot to concurrent
// readers.
type Handle struct {
	ptr atomic.Pointer[Store]
}

func NewHandle(s *Store) *Handle {
	h := &Handle{}
	h.ptr.Store(s)
	return h
}

func (h *Handle) Load() *Store { return h.ptr.Load() }

func (h *Handle) Reload(s *Store) { h.ptr.Store(s) }
