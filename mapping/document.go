// Package mapping defines how inbound subjects route to sources,
// contracts, and accept/reject subjects.
//
// A mapping document is one JSON file: the broker to connect to plus a
// list of source mappings. Like contracts, the document is untrusted
// until compiled into a Table, which enforces the structural rules
// (well-formed literal subjects, no duplicate inbound subjects, no
// mapping that would republish to its own inbound subject).
package mapping

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
)

// Document is the raw mapping configuration as stored and served over
// the API.
type Document struct {
	Broker   BrokerConfig `json:"broker"`
	Mappings []Mapping    `json:"mappings"`
}

// BrokerConfig identifies the NATS server the engine subscribes to.
type BrokerConfig struct {
	URL string `json:"url"`
}

// Mapping routes one source's inbound subject. Contract names the data
// contract to validate against; an empty contract means pass-through
// and every message routes to the accept subject as long as it decodes.
type Mapping struct {
	Source   string `json:"source"`
	Inbound  string `json:"inbound"`
	Accept   string `json:"accept"`
	Reject   string `json:"reject"`
	Contract string `json:"contract"`
}

// ParseDocument decodes a mapping document. Structural rules are not
// applied here; NewTable does that.
func ParseDocument(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("mapping document is not valid JSON: %w", err)
	}
	return doc, nil
}

// validateSubject checks that s is a literal NATS subject: dot-separated
// non-empty tokens without wildcards or whitespace. Routing is exact, so
// wildcard subscriptions are rejected rather than silently matched.
func validateSubject(s string) error {
	if s == "" {
		return fmt.Errorf("subject is empty")
	}
	for _, token := range strings.Split(s, ".") {
		switch {
		case token == "":
			return fmt.Errorf("subject %q has an empty token", s)
		case token == "*" || token == ">":
			return fmt.Errorf("subject %q uses a wildcard; only literal subjects are routable", s)
		case strings.ContainsAny(token, " \t"):
			return fmt.Errorf("subject %q contains whitespace", s)
		}
	}
	return nil
}

// validateMapping applies the per-mapping rules.
func validateMapping(m Mapping) error {
	if m.Source == "" {
		return fmt.Errorf("source is empty")
	}
	if err := validateSubject(m.Inbound); err != nil {
		return fmt.Errorf("inbound: %w", err)
	}
	if err := validateSubject(m.Accept); err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	if err := validateSubject(m.Reject); err != nil {
		return fmt.Errorf("reject: %w", err)
	}
	// republishing to the inbound subject would loop the message
	// straight back into validation
	if m.Accept == m.Inbound {
		return fmt.Errorf("accept subject %q equals inbound subject", m.Accept)
	}
	if m.Reject == m.Inbound {
		return fmt.Errorf("reject subject %q equals inbound subject", m.Reject)
	}
	return nil
}

// Validate applies the full structural rule set without building a
// table. The HTTP API uses it to report defects before staging a
// reload.
func (d Document) Validate() error {
	if d.Broker.URL == "" {
		return fmt.Errorf("broker url is empty")
	}
	seen := make(map[string]string, len(d.Mappings))
	for i, m := range d.Mappings {
		if err := validateMapping(m); err != nil {
			return fmt.Errorf("mapping %d (%s): %w", i, m.Source, err)
		}
		if prior, dup := seen[m.Inbound]; dup {
			return fmt.Errorf("mapping %d (%s): inbound subject %q already routed to source %s: %w",
				i, m.Source, m.Inbound, prior, errors.ErrDuplicateTopic)
		}
		seen[m.Inbound] = m.Source
	}
	return nil
}
