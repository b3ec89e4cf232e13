// Package models defines the scene-graph types of an MDL model.
package models

import "github.com/starford/mdlforge/internal/types"

// NoID marks an absent object or parent reference.
const NoID = -1

// NodeKind tags the concrete type of a scene-graph node.
type NodeKind string

const (
	KindHelper NodeKind = "helper"
)

// MDX node flag bits.
const (
	FlagDontInheritTranslation = 1 << iota
	FlagDontInheritRotation
	FlagDontInheritScaling
	FlagBillboarded
	FlagBillboardedLockX
	FlagBillboardedLockY
	FlagBillboardedLockZ
	FlagCameraAnchored
)

// sizeName is the fixed width of a node name in the binary format.
const sizeName = 80

// nodeBaseSize covers inclusive size, name, object id, parent id and flags.
const nodeBaseSize = 4 + sizeName + 4 + 4 + 4

// NodeData holds the attributes common to every scene-graph node.
type NodeData struct {
	Kind       NodeKind   `json:"kind"`
	Name       string     `json:"name"`
	ObjectID   int        `json:"object_id"`
	ParentID   int        `json:"parent_id"`
	PivotPoint types.Vec3 `json:"pivot_point"`

	DontInheritTranslation bool `json:"dont_inherit_translation,omitempty"`
	DontInheritRotation    bool `json:"dont_inherit_rotation,omitempty"`
	DontInheritScaling     bool `json:"dont_inherit_scaling,omitempty"`
	Billboarded            bool `json:"billboarded,omitempty"`
	BillboardedLockX       bool `json:"billboarded_lock_x,omitempty"`
	BillboardedLockY       bool `json:"billboarded_lock_y,omitempty"`
	BillboardedLockZ       bool `json:"billboarded_lock_z,omitempty"`
	CameraAnchored         bool `json:"camera_anchored,omitempty"`

	Translation Track[types.Vec3] `json:"translation"`
	Rotation    Track[types.Vec4] `json:"rotation"`
	Scaling     Track[types.Vec3] `json:"scaling"`
}

func defaultNodeData(kind NodeKind) NodeData {
	return NodeData{
		Kind:        kind,
		ObjectID:    NoID,
		ParentID:    NoID,
		Translation: Track[types.Vec3]{GlobalSeqID: NoID},
		Rotation:    Track[types.Vec4]{Static: types.IdentityQuat, GlobalSeqID: NoID},
		Scaling:     Track[types.Vec3]{Static: types.XYZ(1, 1, 1), GlobalSeqID: NoID},
	}
}

// Flags packs the boolean attributes into MDX flag bits.
func (n *NodeData) Flags() int {
	var flags int
	set := func(on bool, bit int) {
		if on {
			flags |= bit
		}
	}
	set(n.DontInheritTranslation, FlagDontInheritTranslation)
	set(n.DontInheritRotation, FlagDontInheritRotation)
	set(n.DontInheritScaling, FlagDontInheritScaling)
	set(n.Billboarded, FlagBillboarded)
	set(n.BillboardedLockX, FlagBillboardedLockX)
	set(n.BillboardedLockY, FlagBillboardedLockY)
	set(n.BillboardedLockZ, FlagBillboardedLockZ)
	set(n.CameraAnchored, FlagCameraAnchored)
	return flags
}

// baseSize returns the binary size of the node header plus animated tracks.
func (n *NodeData) baseSize() int {
	return nodeBaseSize +
		n.Translation.size(12) +
		n.Rotation.size(16) +
		n.Scaling.size(12)
}
