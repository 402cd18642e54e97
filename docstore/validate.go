package docstore

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Meta-schemas pin the structural shape of stored documents: key types,
// required keys, and no unknown keys, so a typoed "nullble" is rejected
// at save time instead of being silently ignored by a later decode.
// Token-level rules (dtype names, check kinds, subject syntax) stay with
// the compilers, whose errors name the offending field.
var (
	//go:embed metaschema/contract.json
	contractMetaSchema []byte

	//go:embed metaschema/mapping.json
	mappingMetaSchema []byte

	compiledContractSchema *gojsonschema.Schema
	compiledMappingSchema  *gojsonschema.Schema
)

func init() {
	var err error
	compiledContractSchema, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(contractMetaSchema))
	if err != nil {
		panic(fmt.Sprintf("docstore: embedded contract meta-schema does not compile: %v", err))
	}
	compiledMappingSchema, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(mappingMetaSchema))
	if err != nil {
		panic(fmt.Sprintf("docstore: embedded mapping meta-schema does not compile: %v", err))
	}
}

// ValidateContractDocument checks raw bytes against the contract
// meta-schema. The returned error lists every structural defect.
func ValidateContractDocument(raw []byte) error {
	return validateAgainst(compiledContractSchema, "contract document", raw)
}

// ValidateMappingDocument checks raw bytes against the mapping
// meta-schema.
func ValidateMappingDocument(raw []byte) error {
	return validateAgainst(compiledMappingSchema, "mapping document", raw)
}

func validateAgainst(schema *gojsonschema.Schema, what string, raw []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%s is not valid JSON: %w", what, err)
	}
	if result.Valid() {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s failed structural validation:", what)
	for _, desc := range result.Errors() {
		fmt.Fprintf(&b, "\n  - %s: %s", desc.Field(), desc.Description())
	}
	return fmt.Errorf("%s", b.String())
}
