// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

// Package coordinate defines the addressing scheme of the kubefs
// virtual tree: every filesystem path maps to exactly one resource
// coordinate in the cluster's object graph, and back.
//
// The grammar, top to bottom:
//
//	/                                  cluster root
//	/<namespace>                       namespace
//	/<namespace>/<resource>            kind (plural, lower-case)
//	/<namespace>/<resource>/<name>     object
//	/<namespace>/<resource>/<name>/<field...>  field path into the object
//
// Cluster-scoped kinds live under the reserved top-level entry
// "_cluster" instead of a namespace. Resolution is purely syntactic:
// it never asks the cluster whether the named thing exists.
package coordinate

import (
	"errors"
	"fmt"
	"strings"
)

// ClusterDir is the reserved root entry holding cluster-scoped kinds.
const ClusterDir = "_cluster"

// ErrInvalidPath reports a path that the grammar cannot parse: empty
// segments, trailing slashes, or the reserved entry out of position.
var ErrInvalidPath = errors.New("invalid path")

// Scope is the depth of a coordinate in the virtual tree.
type Scope int

const (
	// Root is the mount root ("/").
	Root Scope = iota
	// Namespace is a namespace directory, or the reserved _cluster
	// directory for cluster-scoped kinds.
	Namespace
	// Kind is a resource directory such as "pods".
	Kind
	// Object is a single named object.
	Object
	// Field is a path into an object's structured document.
	Field
)

func (s Scope) String() string {
	switch s {
	case Root:
		return "root"
	case Namespace:
		return "namespace"
	case Kind:
		return "kind"
	case Object:
		return "object"
	case Field:
		return "field"
	}
	return fmt.Sprintf("scope(%d)", int(s))
}

// Coordinate identifies one point in the cluster's resource graph or
// a projection of one object's data. The zero value is the root.
// Coordinates are immutable; Child and Parent return new values.
type Coordinate struct {
	clusterScoped bool
	namespace     string
	resource      string
	name          string
	field         []string
}

// RootCoordinate returns the coordinate of the mount root.
func RootCoordinate() Coordinate {
	return Coordinate{}
}

// Resolve parses an absolute slash-separated path into a coordinate.
// Trailing slashes and empty segments are errors, as is the reserved
// _cluster entry anywhere but the first segment.
func Resolve(path string) (Coordinate, error) {
	if path == "/" || path == "" {
		return Coordinate{}, nil
	}
	if !strings.HasPrefix(path, "/") {
		return Coordinate{}, fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, path)
	}
	coord := Coordinate{}
	for _, segment := range strings.Split(path[1:], "/") {
		child, err := coord.Child(segment)
		if err != nil {
			return Coordinate{}, err
		}
		coord = child
	}
	return coord, nil
}

// Child returns the coordinate one level below this one for the given
// entry name. The name is validated syntactically only.
func (c Coordinate) Child(name string) (Coordinate, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, '/') {
		return Coordinate{}, fmt.Errorf("%w: bad segment %q", ErrInvalidPath, name)
	}
	switch c.Scope() {
	case Root:
		if name == ClusterDir {
			return Coordinate{clusterScoped: true}, nil
		}
		return Coordinate{namespace: name}, nil
	case Namespace:
		if name == ClusterDir {
			return Coordinate{}, fmt.Errorf("%w: %q is reserved", ErrInvalidPath, ClusterDir)
		}
		c.resource = name
		return c, nil
	case Kind:
		c.name = name
		return c, nil
	default:
		if name == ClusterDir {
			return Coordinate{}, fmt.Errorf("%w: %q is reserved", ErrInvalidPath, ClusterDir)
		}
		// Append without sharing the backing array with siblings.
		field := make([]string, len(c.field), len(c.field)+1)
		copy(field, c.field)
		c.field = append(field, name)
		return c, nil
	}
}

// Parent returns the coordinate one level above this one. The parent
// of the root is the root.
func (c Coordinate) Parent() Coordinate {
	switch c.Scope() {
	case Root, Namespace:
		return Coordinate{}
	case Kind:
		c.resource = ""
		return c
	case Object:
		c.name = ""
		return c
	default:
		c.field = c.field[:len(c.field)-1]
		return c
	}
}

// Scope reports the coordinate's depth in the tree.
func (c Coordinate) Scope() Scope {
	switch {
	case len(c.field) > 0:
		return Field
	case c.name != "":
		return Object
	case c.resource != "":
		return Kind
	case c.namespace != "" || c.clusterScoped:
		return Namespace
	default:
		return Root
	}
}

// ClusterScoped reports whether the coordinate lives under the
// reserved _cluster entry rather than a namespace.
func (c Coordinate) ClusterScoped() bool { return c.clusterScoped }

// Namespace returns the namespace segment. Empty for the root and for
// cluster-scoped coordinates.
func (c Coordinate) Namespace() string { return c.namespace }

// Resource returns the plural resource name, such as "pods". Empty
// above Kind scope.
func (c Coordinate) Resource() string { return c.resource }

// Name returns the object name. Empty above Object scope.
func (c Coordinate) Name() string { return c.name }

// Field returns the field path below the object. Empty above Field
// scope. The caller must not modify the returned slice.
func (c Coordinate) Field() []string { return c.field }

// Path renders the coordinate back to its absolute path. For every
// valid path p, Resolve(p).Path() == p.
func (c Coordinate) Path() string {
	if c.Scope() == Root {
		return "/"
	}
	segments := make([]string, 0, 3+len(c.field))
	if c.clusterScoped {
		segments = append(segments, ClusterDir)
	} else {
		segments = append(segments, c.namespace)
	}
	if c.resource != "" {
		segments = append(segments, c.resource)
	}
	if c.name != "" {
		segments = append(segments, c.name)
	}
	segments = append(segments, c.field...)
	return "/" + strings.Join(segments, "/")
}

// String implements fmt.Stringer as the rendered path.
func (c Coordinate) String() string { return c.Path() }
