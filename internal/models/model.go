package models

import (
	"sort"

	"github.com/starford/mdlforge/internal/types"
)

// Defaults applied by NewModel.
const (
	DefaultFormatVersion = 800
	DefaultBlendTime     = 150
)

// Extent is an axis-aligned bounding box with a bounding sphere radius.
type Extent struct {
	Min    types.Vec3 `json:"min"`
	Max    types.Vec3 `json:"max"`
	Radius float32    `json:"radius"`
}

// Sequence is a named animation interval.
type Sequence struct {
	Name          string  `json:"name"`
	IntervalStart int     `json:"interval_start"`
	IntervalEnd   int     `json:"interval_end"`
	MoveSpeed     float32 `json:"move_speed,omitempty"`
	Rarity        float32 `json:"rarity,omitempty"`
	SyncPoint     int     `json:"sync_point,omitempty"`
	NonLooping    bool    `json:"non_looping,omitempty"`
	Extent        Extent  `json:"extent"`
}

// GlobalSequence is an animation clock independent of the active sequence.
type GlobalSequence struct {
	Duration int `json:"duration"`
}

// Model is the root of a scene graph.
type Model struct {
	Name            string           `json:"name"`
	FormatVersion   int              `json:"format_version"`
	BlendTime       int              `json:"blend_time"`
	Extent          Extent           `json:"extent"`
	AnimationFile   string           `json:"animation_file,omitempty"`
	Sequences       []Sequence       `json:"sequences"`
	GlobalSequences []GlobalSequence `json:"global_sequences"`
	Helpers         []*Helper        `json:"helpers"`
}

// NewModel returns an empty model with format defaults.
func NewModel(name string) *Model {
	return &Model{
		Name:          name,
		FormatVersion: DefaultFormatVersion,
		BlendTime:     DefaultBlendTime,
	}
}

// Nodes returns the attribute sets of every node in declaration order.
func (m *Model) Nodes() []*NodeData {
	out := make([]*NodeData, 0, len(m.Helpers))
	for _, h := range m.Helpers {
		out = append(out, h.Data())
	}
	return out
}

// AssignObjectIDs numbers nodes in declaration order starting at zero.
func (m *Model) AssignObjectIDs() {
	for i, n := range m.Nodes() {
		n.ObjectID = i
	}
}

// PivotPoints returns node pivots ordered by object id.
func (m *Model) PivotPoints() []types.Vec3 {
	nodes := m.Nodes()
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].ObjectID < nodes[j].ObjectID
	})
	out := make([]types.Vec3, len(nodes))
	for i, n := range nodes {
		out[i] = n.PivotPoint
	}
	return out
}
