package graph

import (
	"github.com/matzehuels/kinship/pkg/core/geom"
)

// Vec is a point on the wire: [x, y, z].
type Vec [3]float32

// VecOf converts a geometry vector.
func VecOf(v geom.Vec3) Vec { return Vec{v.X, v.Y, v.Z} }

// Vec3 converts back to a geometry vector.
func (v Vec) Vec3() geom.Vec3 { return geom.V(v[0], v[1], v[2]) }

// Box is an axis-aligned bounding box.
type Box struct {
	Min Vec `json:"min" bson:"min"`
	Max Vec `json:"max" bson:"max"`
}

// Graph is the wire form of a lineage graph.
type Graph struct {
	Original string `json:"original,omitempty" bson:"original,omitempty"`
	Nodes    []Node `json:"nodes" bson:"nodes"`
	Edges    []Edge `json:"edges" bson:"edges"`
}

// Node is a graph node.
type Node struct {
	Name  string `json:"name" bson:"name"`
	Kind  string `json:"kind" bson:"kind"`
	Level int    `json:"level" bson:"level"`
}

// Edge is a directed relation.
type Edge struct {
	Source string `json:"source" bson:"source"`
	Target string `json:"target" bson:"target"`
}
