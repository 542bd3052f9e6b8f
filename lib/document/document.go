// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

// Package document projects a Kubernetes object's structured content
// as a schema-less tagged tree: maps and lists are navigable
// containers, scalars are leaves. Custom resource kinds need no code
// here since everything is driven by the unstructured representation.
package document

import (
	"fmt"
	"sort"
	"strconv"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"
)

// Document wraps one object's content tree.
type Document struct {
	root any
}

// New returns a document over a decoded JSON-compatible content tree
// (the shape unstructured.Unstructured holds: map[string]any, []any,
// string, bool, int64, float64, nil).
func New(content map[string]any) Document {
	return Document{root: content}
}

// FromUnstructured returns a document over the object's full content,
// metadata included.
func FromUnstructured(object *unstructured.Unstructured) Document {
	return Document{root: object.Object}
}

// Root returns the whole document as a value.
func (d Document) Root() Value {
	return Value{inner: d.root}
}

// Field descends the tree along the given path. Maps are indexed by
// key, lists by decimal element index. The second result is false if
// any step is missing or descends into a scalar.
func (d Document) Field(path []string) (Value, bool) {
	current := d.root
	for _, segment := range path {
		switch node := current.(type) {
		case map[string]any:
			child, ok := node[segment]
			if !ok {
				return Value{}, false
			}
			current = child
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return Value{}, false
			}
			current = node[index]
		default:
			return Value{}, false
		}
	}
	return Value{inner: current}, true
}

// Value is one node of the tree: a container (map or list) or a
// scalar leaf.
type Value struct {
	inner any
}

// Container reports whether the value is a map or a list.
func (v Value) Container() bool {
	switch v.inner.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// Entry is one child of a container value.
type Entry struct {
	// Name is the map key or decimal list index.
	Name string
	// Container reports whether the child is itself a container.
	Container bool
}

// Children lists a container's immediate children: map keys sorted
// for a stable view, list indices in element order. Nil for scalars.
func (v Value) Children() []Entry {
	switch node := v.inner.(type) {
	case map[string]any:
		keys := make([]string, 0, len(node))
		for key := range node {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		entries := make([]Entry, len(keys))
		for i, key := range keys {
			entries[i] = Entry{Name: key, Container: Value{inner: node[key]}.Container()}
		}
		return entries
	case []any:
		entries := make([]Entry, len(node))
		for i, element := range node {
			entries[i] = Entry{
				Name:      strconv.Itoa(i),
				Container: Value{inner: element}.Container(),
			}
		}
		return entries
	}
	return nil
}

// Render serializes the value to file bytes: scalars as their literal
// text plus a trailing newline (cat-friendly), containers as YAML.
func (v Value) Render() ([]byte, error) {
	switch node := v.inner.(type) {
	case nil:
		return []byte("null\n"), nil
	case string:
		return []byte(node + "\n"), nil
	case bool:
		return []byte(strconv.FormatBool(node) + "\n"), nil
	case int64:
		return []byte(strconv.FormatInt(node, 10) + "\n"), nil
	case float64:
		return []byte(strconv.FormatFloat(node, 'g', -1, 64) + "\n"), nil
	case map[string]any, []any:
		data, err := yaml.Marshal(node)
		if err != nil {
			return nil, fmt.Errorf("rendering value: %w", err)
		}
		return data, nil
	default:
		// Decoded JSON never produces other types, but a fallback
		// beats a panic on a hand-built document.
		return []byte(fmt.Sprintf("%v\n", node)), nil
	}
}
