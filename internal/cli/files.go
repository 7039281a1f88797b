package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/hierarchy"
	"github.com/regraft/regraft/pkg/homomorphism"
	"github.com/regraft/regraft/pkg/rule"
)

// loadHierarchy reads and validates a hierarchy file.
func loadHierarchy(path string) (*hierarchy.Hierarchy, error) {
	h, err := hierarchy.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load hierarchy %s: %w", path, err)
	}
	return h, nil
}

// loadGraph reads a graph file.
func loadGraph(path string) (*graph.Graph, error) {
	g, err := graph.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load graph %s: %w", path, err)
	}
	return g, nil
}

// loadRule reads a rule file.
func loadRule(path string) (*rule.Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load rule %s: %w", path, err)
	}
	defer f.Close()
	r, err := rule.Read(f)
	if err != nil {
		return nil, fmt.Errorf("load rule %s: %w", path, err)
	}
	return r, nil
}

// loadMapping parses a node mapping from inline JSON or a file path.
// Inline values start with "{", anything else is treated as a path.
func loadMapping(arg string) (homomorphism.Mapping, error) {
	data := []byte(arg)
	if !strings.HasPrefix(strings.TrimSpace(arg), "{") {
		var err error
		data, err = os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("load mapping %s: %w", arg, err)
		}
	}
	var m homomorphism.Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	return m, nil
}

// loadTyping parses typing constraints ({"target": {"node": "type"}}) from
// inline JSON or a file path.
func loadTyping(arg string) (map[string]homomorphism.Mapping, error) {
	if arg == "" {
		return nil, nil
	}
	data := []byte(arg)
	if !strings.HasPrefix(strings.TrimSpace(arg), "{") {
		var err error
		data, err = os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("load typing %s: %w", arg, err)
		}
	}
	var t map[string]homomorphism.Mapping
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse typing: %w", err)
	}
	return t, nil
}

// loadSelection parses clone or typing selections
// ({"graph": {"node": ["choice"]}}) from inline JSON or a file path.
func loadSelection(arg string) (map[string]map[string][]string, error) {
	if arg == "" {
		return nil, nil
	}
	data := []byte(arg)
	if !strings.HasPrefix(strings.TrimSpace(arg), "{") {
		var err error
		data, err = os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("load selection %s: %w", arg, err)
		}
	}
	var sel map[string]map[string][]string
	if err := json.Unmarshal(data, &sel); err != nil {
		return nil, fmt.Errorf("parse selection: %w", err)
	}
	return sel, nil
}

// writeOutput writes data to path, or stdout when path is empty.
func writeOutput(data []byte, path string) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	printFile(path)
	return nil
}

// marshalIndent renders a value as indented JSON with a trailing newline.
func marshalIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
