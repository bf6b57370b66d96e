package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/aretw0/journey/pkg/domain"
	"github.com/mitchellh/mapstructure"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spf13/cast"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

//go:embed workflow.schema.json
var workflowSchemaJSON []byte

const schemaURL = "https://journey.dev/schemas/workflow.json"

var printer = message.NewPrinter(language.English)

var (
	compileOnce    sync.Once
	workflowSchema *jsonschema.Schema
	compileErr     error
)

// Schema returns the JSON Schema workflow documents are validated against.
func Schema() []byte {
	return append([]byte(nil), workflowSchemaJSON...)
}

func compiled() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(workflowSchemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal workflow schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add workflow schema resource: %w", err)
			return
		}
		workflowSchema, compileErr = c.Compile(schemaURL)
	})
	return workflowSchema, compileErr
}

// Format identifies the text encoding of a workflow document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath infers the document format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FormatYAML, true
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON, true
	}
	return "", false
}

// Parse decodes a workflow document in the given format.
func Parse(data []byte, format Format) (*domain.Workflow, error) {
	switch format {
	case FormatYAML:
		return ParseYAML(data)
	case FormatJSON:
		return ParseJSON(data)
	default:
		return nil, fmt.Errorf("unsupported workflow format %q", format)
	}
}

// ParseYAML decodes a YAML workflow document.
func ParseYAML(data []byte) (*domain.Workflow, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse workflow yaml: %w", err)
	}
	return Decode(raw)
}

// ParseJSON decodes a JSON workflow document.
func ParseJSON(data []byte) (*domain.Workflow, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse workflow json: %w", err)
	}
	return Decode(raw)
}

// Decode validates a generic document against the workflow schema and maps it
// onto the domain model. Validation failures are returned as *AggregateError.
func Decode(raw map[string]any) (*domain.Workflow, error) {
	if raw == nil {
		return nil, &AggregateError{Errors: []error{&ValidationError{Path: "/", Reason: "document is empty"}}}
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	var doc workflowDoc
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: scalarToString,
		Result:     &doc,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode workflow: %w", err)
	}
	return doc.toDomain(), nil
}

func validate(raw map[string]any) error {
	s, err := compiled()
	if err != nil {
		return err
	}

	// The validator expects JSON values (json.Number for numbers).
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("workflow document is not JSON-compatible: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return err
	}

	if err := s.Validate(doc); err != nil {
		verr, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return err
		}
		return &AggregateError{Errors: collectViolations(verr)}
	}
	return nil
}

// collectViolations walks a ValidationError tree and collects the leaf errors.
func collectViolations(verr *jsonschema.ValidationError) []error {
	if len(verr.Causes) == 0 {
		return []error{&ValidationError{
			Path:   "/" + strings.Join(verr.InstanceLocation, "/"),
			Reason: verr.ErrorKind.LocalizedString(printer),
		}}
	}
	var out []error
	for _, cause := range verr.Causes {
		out = append(out, collectViolations(cause)...)
	}
	return out
}

// scalarToString lets numeric and boolean YAML scalars fill string fields.
func scalarToString(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return cast.ToStringE(data)
	}
	return data, nil
}
