package mapping

import (
	"fmt"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
)

// Table is the compiled, immutable routing table for one configuration
// snapshot. Lookups are exact subject matches.
type Table struct {
	broker    BrokerConfig
	mappings  []Mapping
	bySubject map[string]int
}

// NewTable validates a document and compiles it. The document's rules
// all apply; in particular two mappings may not claim the same inbound
// subject, since the router could not tell their messages apart.
func NewTable(doc Document) (*Table, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	t := &Table{
		broker:    doc.Broker,
		mappings:  make([]Mapping, len(doc.Mappings)),
		bySubject: make(map[string]int, len(doc.Mappings)),
	}
	copy(t.mappings, doc.Mappings)
	for i, m := range t.mappings {
		t.bySubject[m.Inbound] = i
	}
	return t, nil
}

// Resolve returns the mapping for an inbound subject.
func (t *Table) Resolve(subject string) (Mapping, bool) {
	i, ok := t.bySubject[subject]
	if !ok {
		return Mapping{}, false
	}
	return t.mappings[i], true
}

// Lookup is like Resolve but returns an error suitable for wrapping.
func (t *Table) Lookup(subject string) (Mapping, error) {
	m, ok := t.Resolve(subject)
	if !ok {
		return Mapping{}, fmt.Errorf("subject %q: %w", subject, errors.ErrMappingNotFound)
	}
	return m, nil
}

// Broker returns the broker the table routes through.
func (t *Table) Broker() BrokerConfig {
	return t.broker
}

// Mappings returns the mappings in document order.
func (t *Table) Mappings() []Mapping {
	out := make([]Mapping, len(t.mappings))
	copy(out, t.mappings)
	return out
}

// Inbounds returns the inbound subjects in document order. This is the
// subscription set for the snapshot.
func (t *Table) Inbounds() []string {
	out := make([]string, len(t.mappings))
	for i, m := range t.mappings {
		out[i] = m.Inbound
	}
	return out
}

// Len returns the number of mappings.
func (t *Table) Len() int {
	return len(t.mappings)
}

// Document reconstructs the raw document form, for serving the current
// configuration over the API.
func (t *Table) Document() Document {
	return Document{Broker: t.broker, Mappings: t.Mappings()}
}
