package contract

import (
	"fmt"
	"sort"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
)

// Store is an immutable set of compiled contracts. A store is built in
// one shot from raw documents and never mutated; configuration changes
// build a new store and swap it in whole.
type Store struct {
	contracts map[string]*Contract
	names     []string
}

// NewStore compiles every document and fails fast on the first defect.
// Documents are compiled in sorted name order so the reported error is
// deterministic regardless of map iteration.
func NewStore(docs map[string][]byte) (*Store, error) {
	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)

	s := &Store{
		contracts: make(map[string]*Contract, len(docs)),
		names:     names,
	}
	for _, name := range names {
		compiled, err := Compile(name, docs[name])
		if err != nil {
			return nil, err
		}
		s.contracts[name] = compiled
	}
	return s, nil
}

// Lookup returns the compiled contract with the given name.
func (s *Store) Lookup(name string) (*Contract, error) {
	c, ok := s.contracts[name]
	if !ok {
		return nil, fmt.Errorf("contract %q: %w", name, errors.ErrContractNotFound)
	}
	return c, nil
}

// Names returns the contract names in sorted order.
func (s *Store) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of contracts in the store.
func (s *Store) Len() int {
	return len(s.contracts)
}
