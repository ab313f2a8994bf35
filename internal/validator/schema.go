package validator

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchema - скомпилированная JSON-схема для проверки входящих документов
// (используется для payload вебхуков, у которых нет фиксированной Go-структуры)
type JSONSchema struct {
	source string
	once   sync.Once
	schema *gojsonschema.Schema
	err    error
}

func NewJSONSchema(source string) *JSONSchema {
	return &JSONSchema{source: source}
}

func (s *JSONSchema) compile() (*gojsonschema.Schema, error) {
	s.once.Do(func() {
		s.schema, s.err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(s.source))
	})
	return s.schema, s.err
}

// ValidateBytes проверяет сырой JSON. Ошибки схемы возвращаются как *ValidationError.
func (s *JSONSchema) ValidateBytes(doc []byte) error {
	schema, err := s.compile()
	if err != nil {
		return fmt.Errorf("invalid json schema: %w", err)
	}

	res, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		// Документ не является валидным JSON
		return &ValidationError{Errors: map[string]string{"body": err.Error()}}
	}
	if res.Valid() {
		return nil
	}

	errs := make(map[string]string, len(res.Errors()))
	for _, e := range res.Errors() {
		field := e.Field()
		if field == "(root)" {
			field = "body"
		}
		if prev, ok := errs[field]; ok {
			errs[field] = prev + "; " + e.Description()
			continue
		}
		errs[field] = e.Description()
	}
	return &ValidationError{Errors: errs}
}
