package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"cvbuilder_backend/pkg/wizard"
)

// loadDraft читает черновик резюме из YAML. Имена полей такие же, как в JSON API.
func loadDraft(path string) (wizard.Draft, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return wizard.Draft{}, err
	}

	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return wizard.Draft{}, fmt.Errorf("parse %s: %w", path, err)
	}

	// yaml.v2 отдает map[interface{}]interface{}, которые encoding/json не принимает
	asJSON, err := json.Marshal(normalizeYAML(doc))
	if err != nil {
		return wizard.Draft{}, fmt.Errorf("convert %s: %w", path, err)
	}

	draft := wizard.NewDraft()
	if err := json.Unmarshal(asJSON, &draft); err != nil {
		return wizard.Draft{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return draft, nil
}

func normalizeYAML(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		for i := range t {
			t[i] = normalizeYAML(t[i])
		}
		return t
	default:
		return v
	}
}

// runWizard проводит черновик через все шаги мастера, как это делает форма
func runWizard(d wizard.Draft) (wizard.Draft, error) {
	w := wizard.New(nil)
	for _, step := range wizard.Steps() {
		if err := w.JumpTo(step); err != nil {
			return wizard.Draft{}, err
		}
		if err := w.SaveAndContinue(d); err != nil {
			return wizard.Draft{}, fmt.Errorf("step %q: %w", step, err)
		}
	}
	return w.Draft(), nil
}
