package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/contract"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/mapping"
)

// Route is one fully resolved mapping: the subjects a source's messages
// move between and the compiled contract they are judged against. A nil
// Contract marks the source as pass-through.
type Route struct {
	Source   string
	Inbound  string
	Accept   string
	Reject   string
	Contract *contract.Contract
}

// Snapshot is one immutable configuration generation: a compiled
// routing table with every contract reference resolved up front, so the
// hot path never does a name lookup and can never hit a dangling
// reference. The engine holds exactly one snapshot at a time behind an
// atomic pointer; reloads build a complete replacement and swap it.
type Snapshot struct {
	id      string
	builtAt time.Time
	table   *mapping.Table
	store   *contract.Store
	routes  map[string]Route
}

// BuildSnapshot compiles a mapping document and a set of contract
// documents into a snapshot. It is all-or-nothing: a structurally
// invalid mapping, a contract that fails to compile, or a mapping that
// names a contract missing from docs each fail the whole build and the
// caller keeps whatever snapshot it had.
//
// Compilation is pure, so it can run on an API handler thread while the
// engine keeps routing against the previous snapshot.
func BuildSnapshot(doc mapping.Document, contractDocs map[string][]byte) (*Snapshot, error) {
	table, err := mapping.NewTable(doc)
	if err != nil {
		return nil, errors.WrapInvalid(err, "engine", "BuildSnapshot", "compile mapping document")
	}

	store, err := contract.NewStore(contractDocs)
	if err != nil {
		return nil, errors.WrapInvalid(err, "engine", "BuildSnapshot", "compile contract documents")
	}

	routes := make(map[string]Route, table.Len())
	for _, m := range table.Mappings() {
		var c *contract.Contract
		if m.Contract != "" {
			c, err = store.Lookup(m.Contract)
			if err != nil {
				return nil, errors.WrapInvalid(
					fmt.Errorf("mapping for source %s: %w", m.Source, err),
					"engine", "BuildSnapshot", "resolve contract reference")
			}
		}
		routes[m.Inbound] = Route{
			Source:   m.Source,
			Inbound:  m.Inbound,
			Accept:   m.Accept,
			Reject:   m.Reject,
			Contract: c,
		}
	}

	return &Snapshot{
		id:      uuid.NewString(),
		builtAt: time.Now().UTC(),
		table:   table,
		store:   store,
		routes:  routes,
	}, nil
}

// ID identifies the snapshot in logs and status output.
func (s *Snapshot) ID() string { return s.id }

// BuiltAt is when the snapshot was compiled.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Broker returns the broker the snapshot routes through.
func (s *Snapshot) Broker() mapping.BrokerConfig { return s.table.Broker() }

// Route resolves an inbound subject to its route.
func (s *Snapshot) Route(subject string) (Route, bool) {
	r, ok := s.routes[subject]
	return r, ok
}

// Subjects returns the subscription set in document order.
func (s *Snapshot) Subjects() []string { return s.table.Inbounds() }

// Sources returns the number of mapped sources.
func (s *Snapshot) Sources() int { return s.table.Len() }

// Contracts returns the number of compiled contracts.
func (s *Snapshot) Contracts() int { return s.store.Len() }

// Document reconstructs the mapping document the snapshot was built
// from, for serving the active configuration over the API.
func (s *Snapshot) Document() mapping.Document { return s.table.Document() }
