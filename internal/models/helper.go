package models

import "encoding/json"

// Helper is a scene-graph node with no behavior of its own, used as a pivot
// for other nodes.
type Helper struct {
	data NodeData
}

// NewHelper returns a helper with default attributes.
func NewHelper() *Helper {
	return &Helper{data: defaultNodeData(KindHelper)}
}

// Kind always returns KindHelper.
func (h *Helper) Kind() NodeKind {
	return KindHelper
}

// Data returns the mutable attribute set.
func (h *Helper) Data() *NodeData {
	return &h.data
}

// Size returns the number of bytes the helper occupies in the binary format.
func (h *Helper) Size() int {
	return h.data.baseSize()
}

// Clear resets all attributes to their defaults. The kind is preserved.
func (h *Helper) Clear() {
	h.data = defaultNodeData(KindHelper)
}

// MarshalJSON encodes the attribute set.
func (h *Helper) MarshalJSON() ([]byte, error) {
	return json.Marshal(&h.data)
}
