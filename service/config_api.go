package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/contract"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/docstore"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/mapping"
)

// handleBroker serves the broker connection parameters.
func (s *Service) handleBroker(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getBroker(w)
	case http.MethodPut:
		s.putBroker(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Service) getBroker(w http.ResponseWriter) {
	doc, err := s.store.LoadMapping()
	if err != nil {
		s.writeErrors(w, http.StatusInternalServerError, "load configuration: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, doc.Broker)
}

func (s *Service) putBroker(w http.ResponseWriter, r *http.Request) {
	var req mapping.BrokerConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrors(w, http.StatusBadRequest, "request body is not valid JSON: "+err.Error())
		return
	}
	if req.URL == "" {
		s.writeErrors(w, http.StatusBadRequest, "broker url is required")
		return
	}

	s.configMu.Lock()
	defer s.configMu.Unlock()

	doc, contracts, ok := s.loadDocuments(w)
	if !ok {
		return
	}
	doc.Broker = req

	snap, err := s.reloader.Reload(r.Context(), doc, contracts)
	if err != nil {
		s.writeReloadError(w, err)
		return
	}

	if err := s.store.SaveMapping(doc); err != nil {
		s.writePersistError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, "broker updated", snap.ID())
}

// handleMappings serves the topic mapping list.
func (s *Service) handleMappings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getMappings(w)
	case http.MethodPut:
		s.putMappings(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Service) getMappings(w http.ResponseWriter) {
	doc, err := s.store.LoadMapping()
	if err != nil {
		s.writeErrors(w, http.StatusInternalServerError, "load configuration: "+err.Error())
		return
	}
	mappings := doc.Mappings
	if mappings == nil {
		mappings = []mapping.Mapping{}
	}
	s.writeJSON(w, http.StatusOK, struct {
		Mappings []mapping.Mapping `json:"mappings"`
	}{Mappings: mappings})
}

func (s *Service) putMappings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mappings []mapping.Mapping `json:"mappings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrors(w, http.StatusBadRequest, "request body is not valid JSON: "+err.Error())
		return
	}

	s.configMu.Lock()
	defer s.configMu.Unlock()

	doc, contracts, ok := s.loadDocuments(w)
	if !ok {
		return
	}
	doc.Mappings = req.Mappings

	snap, err := s.reloader.Reload(r.Context(), doc, contracts)
	if err != nil {
		s.writeReloadError(w, err)
		return
	}

	if err := s.store.SaveMapping(doc); err != nil {
		s.writePersistError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, "mappings updated", snap.ID())
}

// handleSchemas serves the contract document collection.
func (s *Service) handleSchemas(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listSchemas(w)
	case http.MethodPost:
		s.createSchema(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Service) listSchemas(w http.ResponseWriter) {
	contracts, err := s.store.LoadContracts()
	if err != nil {
		s.writeErrors(w, http.StatusInternalServerError, "load schemas: "+err.Error())
		return
	}

	schemas := make(map[string]json.RawMessage, len(contracts))
	for name, raw := range contracts {
		schemas[name] = raw
	}
	s.writeJSON(w, http.StatusOK, struct {
		Schemas map[string]json.RawMessage `json:"schemas"`
	}{Schemas: schemas})
}

func (s *Service) createSchema(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string          `json:"name"`
		Document json.RawMessage `json:"document"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrors(w, http.StatusBadRequest, "request body is not valid JSON: "+err.Error())
		return
	}

	name := strings.TrimSuffix(req.Name, ".json")
	if err := docstore.ValidateName(name); err != nil {
		s.writeErrors(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Document) == 0 {
		s.writeErrors(w, http.StatusBadRequest, "document is required")
		return
	}
	if err := docstore.ValidateContractDocument(req.Document); err != nil {
		s.writeErrors(w, http.StatusBadRequest, err.Error())
		return
	}

	s.configMu.Lock()
	defer s.configMu.Unlock()

	doc, contracts, ok := s.loadDocuments(w)
	if !ok {
		return
	}
	if _, exists := contracts[name]; exists {
		s.writeErrors(w, http.StatusConflict, fmt.Sprintf("schema %q already exists", name))
		return
	}
	contracts[name] = req.Document

	snapID, err := s.stageReload(r.Context(), doc, contracts)
	if err != nil {
		s.writeReloadError(w, err)
		return
	}

	if err := s.store.CreateContract(name, req.Document); err != nil {
		s.writePersistError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusCreated, fmt.Sprintf("schema %q created", name), snapID)
}

// handleSchemaByName serves one contract document.
func (s *Service) handleSchemaByName(w http.ResponseWriter, r *http.Request) {
	name, err := extractSchemaName(r.URL.Path)
	if err != nil {
		s.writeErrors(w, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getSchema(w, name)
	case http.MethodPut:
		s.updateSchema(w, r, name)
	case http.MethodDelete:
		s.deleteSchema(w, r, name)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Service) getSchema(w http.ResponseWriter, name string) {
	raw, err := s.store.GetContract(name)
	if err != nil {
		if stderrors.Is(err, errors.ErrDocumentNotFound) {
			s.writeErrors(w, http.StatusNotFound, fmt.Sprintf("schema %q not found", name))
			return
		}
		s.writeErrors(w, http.StatusInternalServerError, "load schema: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func (s *Service) updateSchema(w http.ResponseWriter, r *http.Request, name string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeErrors(w, http.StatusBadRequest, "read request body: "+err.Error())
		return
	}
	if len(body) == 0 {
		s.writeErrors(w, http.StatusBadRequest, "document is required")
		return
	}
	if err := docstore.ValidateContractDocument(body); err != nil {
		s.writeErrors(w, http.StatusBadRequest, err.Error())
		return
	}

	s.configMu.Lock()
	defer s.configMu.Unlock()

	doc, contracts, ok := s.loadDocuments(w)
	if !ok {
		return
	}
	if _, exists := contracts[name]; !exists {
		s.writeErrors(w, http.StatusNotFound, fmt.Sprintf("schema %q not found", name))
		return
	}
	contracts[name] = body

	snapID, err := s.stageReload(r.Context(), doc, contracts)
	if err != nil {
		s.writeReloadError(w, err)
		return
	}

	if err := s.store.UpdateContract(name, body); err != nil {
		s.writePersistError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, fmt.Sprintf("schema %q updated", name), snapID)
}

func (s *Service) deleteSchema(w http.ResponseWriter, r *http.Request, name string) {
	s.configMu.Lock()
	defer s.configMu.Unlock()

	doc, contracts, ok := s.loadDocuments(w)
	if !ok {
		return
	}
	if _, exists := contracts[name]; !exists {
		s.writeErrors(w, http.StatusNotFound, fmt.Sprintf("schema %q not found", name))
		return
	}
	delete(contracts, name)
	cleared := docstore.ClearContractReferences(&doc, name)

	snapID, err := s.stageReload(r.Context(), doc, contracts)
	if err != nil {
		s.writeReloadError(w, err)
		return
	}

	if _, err := s.store.DeleteContract(name); err != nil {
		s.writePersistError(w, err)
		return
	}

	message := fmt.Sprintf("schema %q deleted", name)
	if cleared {
		message += "; mapping references cleared"
	}
	s.writeSuccess(w, http.StatusOK, message, snapID)
}

// loadDocuments reads the current document set off disk as the staging
// base for a mutation. Callers hold configMu.
func (s *Service) loadDocuments(w http.ResponseWriter) (mapping.Document, map[string][]byte, bool) {
	doc, err := s.store.LoadMapping()
	if err != nil {
		s.writeErrors(w, http.StatusInternalServerError, "load configuration: "+err.Error())
		return mapping.Document{}, nil, false
	}
	contracts, err := s.store.LoadContracts()
	if err != nil {
		s.writeErrors(w, http.StatusInternalServerError, "load schemas: "+err.Error())
		return mapping.Document{}, nil, false
	}
	return doc, contracts, true
}

// stageReload pushes a staged document set through the reloader. Before
// any broker is configured the engine has nothing to run, so contracts
// are compiled standalone instead; compile defects are reported the same
// way a rejected reload would report them.
func (s *Service) stageReload(ctx context.Context, doc mapping.Document, contracts map[string][]byte) (string, error) {
	if doc.Broker.URL == "" {
		if _, err := contract.NewStore(contracts); err != nil {
			return "", fmt.Errorf("%w: %w", errors.ErrReloadRejected, err)
		}
		return "", nil
	}

	snap, err := s.reloader.Reload(ctx, doc, contracts)
	if err != nil {
		return "", err
	}
	return snap.ID(), nil
}

// writeReloadError maps a reload outcome to an HTTP fault: a rejected
// configuration is the client's defect (422), anything else is the
// gateway's (500). Disk and the live engine are untouched either way.
func (s *Service) writeReloadError(w http.ResponseWriter, err error) {
	if stderrors.Is(err, errors.ErrReloadRejected) {
		s.writeErrors(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeErrors(w, http.StatusInternalServerError, "reload failed: "+err.Error())
}

// writePersistError reports the one partial-failure mode the pipeline
// has: the new configuration is live but could not be written to disk.
func (s *Service) writePersistError(w http.ResponseWriter, err error) {
	s.logger.Error("configuration applied but not persisted", "error", err)
	s.writeErrors(w, http.StatusInternalServerError,
		"configuration applied but could not be persisted: "+err.Error())
}

// extractSchemaName pulls the schema name out of the request path and
// rejects anything that is not a plain document name. A trailing .json
// is accepted and stripped so callers can use the on-disk filename.
func extractSchemaName(path string) (string, error) {
	const marker = "/api/schemas/"
	idx := strings.LastIndex(path, marker)
	if idx < 0 {
		return "", fmt.Errorf("schema name missing from path")
	}

	raw := path[idx+len(marker):]
	if raw == "" {
		return "", fmt.Errorf("schema name missing from path")
	}

	name, err := url.QueryUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("schema name is not valid: %w", err)
	}
	if strings.Contains(name, "/") || strings.Contains(name, "\\") {
		return "", fmt.Errorf("schema name %q contains a path separator", name)
	}

	name = strings.TrimSuffix(name, ".json")
	if err := docstore.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}
