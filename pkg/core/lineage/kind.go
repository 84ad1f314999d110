package lineage

import (
	"fmt"
	"strings"
)

// Kind is the relation category of a node relative to the original image.
type Kind uint8

const (
	// KindOriginal is the image the record is about (level 0).
	KindOriginal Kind = iota
	// KindParent is a direct ancestor (level -1).
	KindParent
	// KindChild is a descendant (level > 0).
	KindChild
	// KindSibling shares parents with the original.
	KindSibling
	// KindAncestor is any ancestor beyond the parents.
	KindAncestor
)

// Kinds lists every kind in spawn/group order.
var Kinds = []Kind{KindOriginal, KindParent, KindChild, KindSibling, KindAncestor}

var kindNames = [...]string{
	KindOriginal: "original",
	KindParent:   "parent",
	KindChild:    "child",
	KindSibling:  "sibling",
	KindAncestor: "ancestor",
}

// String returns the lowercase kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Rank orders kinds for merging and sorting. Parent and child tie.
func (k Kind) Rank() int {
	switch k {
	case KindOriginal:
		return 0
	case KindParent, KindChild:
		return 1
	case KindSibling:
		return 2
	default:
		return 3
	}
}

// Valid reports whether k is one of the five known kinds.
func (k Kind) Valid() bool { return int(k) < len(kindNames) }

// ParseKind parses a kind name, ignoring case and surrounding space.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range kindNames {
		if name == s {
			return Kind(i), true
		}
	}
	return 0, false
}

// InferKind derives a kind from a level: 0 is the original, positive levels
// are children, -1 is a parent and anything further up is an ancestor.
func InferKind(level int) Kind {
	switch {
	case level == 0:
		return KindOriginal
	case level > 0:
		return KindChild
	case level == -1:
		return KindParent
	default:
		return KindAncestor
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("unknown kind %q", b)
	}
	*k = v
	return nil
}
