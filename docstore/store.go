package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/mapping"
)

const (
	configFileName = "config.json"
	schemasDirName = "schemas"
	contractSuffix = ".json"

	configIndent   = "  "
	contractIndent = "    "
)

// contractNameRE admits plain file-stem names. Separators are excluded
// outright, so a validated name can never escape the schemas directory.
var contractNameRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Store is file-backed storage for the gateway's configuration: the
// mapping document in config.json and one contract document per
// <name>.json under the schemas directory. Every write is structural-
// validated against the embedded meta-schema, then staged to a temp
// file and renamed into place, so a crash mid-write never leaves a
// half-written document behind.
//
// The store holds bytes, not meaning: semantic rules (subject syntax,
// dtype tokens, dangling contract references) belong to the compilers,
// which the API runs before anything is persisted here.
type Store struct {
	configPath string
	schemasDir string
	logger     *slog.Logger

	mu sync.Mutex
}

// Open prepares a store rooted at dir, creating the schemas directory
// if it does not exist.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("data directory is empty"),
			"docstore", "Open", "validate directory")
	}

	schemasDir := filepath.Join(dir, schemasDirName)
	if err := os.MkdirAll(schemasDir, 0o755); err != nil {
		return nil, errors.WrapTransient(err, "docstore", "Open", "create schemas directory")
	}

	return &Store{
		configPath: filepath.Join(dir, configFileName),
		schemasDir: schemasDir,
		logger:     logger.With("component", "docstore"),
	}, nil
}

// LoadMapping reads the mapping document. A missing config file is not
// an error: a fresh installation starts with an empty document and the
// broker is configured through the API.
func (s *Store) LoadMapping() (mapping.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadMappingLocked()
}

func (s *Store) loadMappingLocked() (mapping.Document, error) {
	raw, err := os.ReadFile(s.configPath)
	if os.IsNotExist(err) {
		return mapping.Document{}, nil
	}
	if err != nil {
		return mapping.Document{}, errors.WrapTransient(err, "docstore", "LoadMapping", "read config file")
	}

	doc, err := mapping.ParseDocument(raw)
	if err != nil {
		return mapping.Document{}, errors.WrapFatal(err, "docstore", "LoadMapping", "parse config file")
	}
	return doc, nil
}

// SaveMapping validates the document against the mapping meta-schema
// and writes it atomically.
func (s *Store) SaveMapping(doc mapping.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveMappingLocked(doc)
}

func (s *Store) saveMappingLocked(doc mapping.Document) error {
	raw, err := json.MarshalIndent(doc, "", configIndent)
	if err != nil {
		return errors.WrapFatal(err, "docstore", "SaveMapping", "marshal mapping document")
	}
	if err := ValidateMappingDocument(raw); err != nil {
		return errors.WrapInvalid(err, "docstore", "SaveMapping", "validate mapping document")
	}
	if err := writeFileAtomic(s.configPath, raw); err != nil {
		return errors.WrapTransient(err, "docstore", "SaveMapping", "write config file")
	}

	s.logger.Info("mapping document saved", "mappings", len(doc.Mappings))
	return nil
}

// ListContracts returns the stored contract names in sorted order.
func (s *Store) ListContracts() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.schemasDir)
	if err != nil {
		return nil, errors.WrapTransient(err, "docstore", "ListContracts", "read schemas directory")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), contractSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), contractSuffix))
	}
	sort.Strings(names)
	return names, nil
}

// LoadContracts reads every stored contract document, keyed by name.
// This is the contract set a reload stages.
func (s *Store) LoadContracts() (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.schemasDir)
	if err != nil {
		return nil, errors.WrapTransient(err, "docstore", "LoadContracts", "read schemas directory")
	}

	docs := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), contractSuffix) {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.schemasDir, entry.Name()))
		if err != nil {
			return nil, errors.WrapTransient(err, "docstore", "LoadContracts",
				fmt.Sprintf("read contract %s", entry.Name()))
		}
		docs[strings.TrimSuffix(entry.Name(), contractSuffix)] = raw
	}
	return docs, nil
}

// GetContract returns the raw document for one contract.
func (s *Store) GetContract(name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.contractPath(name)
	if err != nil {
		return nil, errors.WrapInvalid(err, "docstore", "GetContract", "validate contract name")
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("contract %q: %w", name, errors.ErrDocumentNotFound),
			"docstore", "GetContract", "read contract")
	}
	if err != nil {
		return nil, errors.WrapTransient(err, "docstore", "GetContract", "read contract")
	}
	return raw, nil
}

// CreateContract stores a new contract document. The name must not be
// taken; the document must pass the contract meta-schema.
func (s *Store) CreateContract(name string, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.contractPath(name)
	if err != nil {
		return errors.WrapInvalid(err, "docstore", "CreateContract", "validate contract name")
	}
	if _, err := os.Stat(path); err == nil {
		return errors.WrapInvalid(
			fmt.Errorf("contract %q: %w", name, errors.ErrDocumentExists),
			"docstore", "CreateContract", "check for existing contract")
	}

	pretty, err := reindent(raw, contractIndent)
	if err != nil {
		return errors.WrapInvalid(err, "docstore", "CreateContract", "parse contract document")
	}
	if err := ValidateContractDocument(pretty); err != nil {
		return errors.WrapInvalid(err, "docstore", "CreateContract", "validate contract document")
	}
	if err := writeFileAtomic(path, pretty); err != nil {
		return errors.WrapTransient(err, "docstore", "CreateContract", "write contract file")
	}

	s.logger.Info("contract created", "contract", name)
	return nil
}

// UpdateContract replaces an existing contract document.
func (s *Store) UpdateContract(name string, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.contractPath(name)
	if err != nil {
		return errors.WrapInvalid(err, "docstore", "UpdateContract", "validate contract name")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return errors.WrapInvalid(
			fmt.Errorf("contract %q: %w", name, errors.ErrDocumentNotFound),
			"docstore", "UpdateContract", "check for existing contract")
	}

	pretty, err := reindent(raw, contractIndent)
	if err != nil {
		return errors.WrapInvalid(err, "docstore", "UpdateContract", "parse contract document")
	}
	if err := ValidateContractDocument(pretty); err != nil {
		return errors.WrapInvalid(err, "docstore", "UpdateContract", "validate contract document")
	}
	if err := writeFileAtomic(path, pretty); err != nil {
		return errors.WrapTransient(err, "docstore", "UpdateContract", "write contract file")
	}

	s.logger.Info("contract updated", "contract", name)
	return nil
}

// DeleteContract removes a contract document and clears every mapping
// reference to it, saving the updated mapping document when anything
// referenced the deleted contract. The sources that referenced it keep
// routing, contract-free, which matches how reloads treat an empty
// contract name. Returns the mapping document as stored afterwards.
func (s *Store) DeleteContract(name string) (mapping.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.contractPath(name)
	if err != nil {
		return mapping.Document{}, errors.WrapInvalid(err, "docstore", "DeleteContract", "validate contract name")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return mapping.Document{}, errors.WrapInvalid(
			fmt.Errorf("contract %q: %w", name, errors.ErrDocumentNotFound),
			"docstore", "DeleteContract", "check for existing contract")
	}

	if err := os.Remove(path); err != nil {
		return mapping.Document{}, errors.WrapTransient(err, "docstore", "DeleteContract", "remove contract file")
	}

	doc, err := s.loadMappingLocked()
	if err != nil {
		return mapping.Document{}, err
	}
	if ClearContractReferences(&doc, name) {
		if err := s.saveMappingLocked(doc); err != nil {
			return mapping.Document{}, err
		}
	}

	s.logger.Info("contract deleted", "contract", name)
	return doc, nil
}

// ClearContractReferences blanks the contract field of every mapping
// that names the given contract, turning those sources into
// pass-through routes. Reports whether anything changed.
func ClearContractReferences(doc *mapping.Document, name string) bool {
	changed := false
	for i := range doc.Mappings {
		if doc.Mappings[i].Contract == name {
			doc.Mappings[i].Contract = ""
			changed = true
		}
	}
	return changed
}

// ValidateName checks that name is usable as a contract document name:
// letters, digits, dot, dash, underscore, no leading punctuation, no
// traversal sequences. The HTTP API runs this before staging a change so
// a bad name is rejected before any reload work happens.
func ValidateName(name string) error {
	if !contractNameRE.MatchString(name) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", errors.ErrBadDocumentName, name)
	}
	return nil
}

// contractPath validates a contract name and resolves its file path.
func (s *Store) contractPath(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.schemasDir, name+contractSuffix), nil
}

// reindent re-serializes raw JSON with the given indent, verifying it
// parses along the way. Key order is preserved.
func reindent(raw []byte, indent string) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(raw), "", indent); err != nil {
		return nil, fmt.Errorf("document is not valid JSON: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// writeFileAtomic stages data in a temp file beside the target and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".staged-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
