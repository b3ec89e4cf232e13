// Package mdl walks a model and emits it as MDL text through a token writer.
package mdl

import (
	"fmt"

	"github.com/starford/mdlforge/internal/buffer"
	"github.com/starford/mdlforge/internal/models"
	"github.com/starford/mdlforge/internal/tokenwriter"
	"github.com/starford/mdlforge/internal/types"
)

// DefaultHeaderTitle is written into the leading comment block.
const DefaultHeaderTitle = "Exported by mdlforge"

// Options controls an export pass.
type Options struct {
	// HeaderTitle replaces DefaultHeaderTitle when non-empty.
	HeaderTitle string
	// FileName labels errors raised while saving.
	FileName string
	// AssignObjectIDs renumbers nodes in declaration order before encoding.
	AssignObjectIDs bool
}

// Export encodes m with a fresh writer and commits the text into buf.
// It returns the number of bytes committed.
func Export(m *models.Model, buf buffer.Resizer, opts Options) (int, error) {
	w := tokenwriter.New()
	w.SetFileName(opts.FileName)
	Encode(w, m, opts)
	if err := w.Save(buf); err != nil {
		return 0, fmt.Errorf("mdl: save %s: %w", m.Name, err)
	}
	return w.Len(), nil
}

// Encode appends the MDL text of m to w.
func Encode(w *tokenwriter.Writer, m *models.Model, opts Options) {
	if opts.AssignObjectIDs {
		m.AssignObjectIDs()
	}
	title := opts.HeaderTitle
	if title == "" {
		title = DefaultHeaderTitle
	}

	e := &encoder{w: w}
	w.WriteHeader(title)
	w.WriteBreak(1)

	e.version(m)
	e.modelInfo(m)
	e.sequences(m)
	e.globalSequences(m)
	for _, h := range m.Helpers {
		e.node("Helper", h.Data())
	}
	e.pivotPoints(m)
}

type encoder struct {
	w     *tokenwriter.Writer
	depth int
}

func (e *encoder) version(m *models.Model) {
	e.beginGroup("Version")
	e.intField("FormatVersion", m.FormatVersion)
	e.endGroup()
}

func (e *encoder) modelInfo(m *models.Model) {
	e.beginNamedGroup("Model", m.Name)
	if n := len(m.Helpers); n > 0 {
		e.intField("NumHelpers", n)
	}
	e.intField("BlendTime", m.BlendTime)
	e.extent(m.Extent)
	if m.AnimationFile != "" {
		e.stringField("AnimationFile", m.AnimationFile)
	}
	e.endGroup()
}

func (e *encoder) sequences(m *models.Model) {
	if len(m.Sequences) == 0 {
		return
	}
	e.beginCountedGroup("Sequences", len(m.Sequences))
	for _, s := range m.Sequences {
		e.beginNamedGroup("Anim", s.Name)
		e.w.WriteTab(e.depth)
		e.w.WriteWord("Interval { ")
		e.w.WriteInt(s.IntervalStart)
		e.w.WriteWord(", ")
		e.w.WriteInt(s.IntervalEnd)
		e.w.WriteLine(" },")
		if s.SyncPoint != 0 {
			e.intField("SyncPoint", s.SyncPoint)
		}
		if s.Rarity != 0 {
			e.floatField("Rarity", s.Rarity)
		}
		if s.MoveSpeed != 0 {
			e.floatField("MoveSpeed", s.MoveSpeed)
		}
		if s.NonLooping {
			e.flag("NonLooping")
		}
		e.extent(s.Extent)
		e.endGroup()
	}
	e.endGroup()
}

func (e *encoder) globalSequences(m *models.Model) {
	if len(m.GlobalSequences) == 0 {
		return
	}
	e.beginCountedGroup("GlobalSequences", len(m.GlobalSequences))
	for _, g := range m.GlobalSequences {
		e.intField("Duration", g.Duration)
	}
	e.endGroup()
}

func (e *encoder) node(group string, n *models.NodeData) {
	e.beginNamedGroup(group, n.Name)
	if n.ObjectID != models.NoID {
		e.intField("ObjectId", n.ObjectID)
	}
	if n.ParentID != models.NoID {
		e.intField("Parent", n.ParentID)
	}
	e.dontInherit(n)
	for _, f := range []struct {
		name string
		on   bool
	}{
		{"Billboarded", n.Billboarded},
		{"BillboardedLockX", n.BillboardedLockX},
		{"BillboardedLockY", n.BillboardedLockY},
		{"BillboardedLockZ", n.BillboardedLockZ},
		{"CameraAnchored", n.CameraAnchored},
	} {
		if f.on {
			e.flag(f.name)
		}
	}
	writeTrack(e, "Translation", &n.Translation, e.w.WriteVector3, types.Vec3.IsZero)
	writeTrack(e, "Rotation", &n.Rotation, e.w.WriteVector4, func(v types.Vec4) bool { return v == types.IdentityQuat })
	writeTrack(e, "Scaling", &n.Scaling, e.w.WriteVector3, types.Vec3.IsOne)
	e.endGroup()
}

func (e *encoder) dontInherit(n *models.NodeData) {
	var parts []string
	if n.DontInheritTranslation {
		parts = append(parts, "Translation")
	}
	if n.DontInheritRotation {
		parts = append(parts, "Rotation")
	}
	if n.DontInheritScaling {
		parts = append(parts, "Scaling")
	}
	if len(parts) == 0 {
		return
	}
	e.w.WriteTab(e.depth)
	e.w.WriteWord("DontInherit { ")
	for i, p := range parts {
		if i > 0 {
			e.w.WriteWord(", ")
		}
		e.w.WriteWord(p)
	}
	e.w.WriteLine(" },")
}

// writeTrack emits an animated track as a counted group, or a static value
// unless it equals the transform default.
func writeTrack[V any](e *encoder, name string, t *models.Track[V], write func(V), isDefault func(V) bool) {
	if !t.Animated() {
		if isDefault(t.Static) {
			return
		}
		e.w.WriteTab(e.depth)
		e.w.WriteWord("static " + name + " ")
		write(t.Static)
		e.w.WriteLine(",")
		return
	}

	e.beginCountedGroup(name, len(t.Keys))
	e.flag(t.Interpolation.String())
	if t.GlobalSeqID != models.NoID {
		e.intField("GlobalSeqId", t.GlobalSeqID)
	}
	for _, k := range t.Keys {
		e.w.WriteTab(e.depth)
		e.w.WriteInt(k.Time)
		e.w.WriteWord(": ")
		write(k.Value)
		e.w.WriteLine(",")
		if !t.Interpolation.HasTangents() {
			continue
		}
		e.w.WriteTab(e.depth + 1)
		e.w.WriteWord("InTan ")
		write(k.InTan)
		e.w.WriteLine(",")
		e.w.WriteTab(e.depth + 1)
		e.w.WriteWord("OutTan ")
		write(k.OutTan)
		e.w.WriteLine(",")
	}
	e.endGroup()
}

func (e *encoder) pivotPoints(m *models.Model) {
	pivots := m.PivotPoints()
	if len(pivots) == 0 {
		return
	}
	e.beginCountedGroup("PivotPoints", len(pivots))
	for _, p := range pivots {
		e.w.WriteTab(e.depth)
		e.w.WriteVector3(p)
		e.w.WriteLine(",")
	}
	e.endGroup()
}

func (e *encoder) extent(x models.Extent) {
	if !x.Min.IsZero() {
		e.vector3Field("MinimumExtent", x.Min)
	}
	if !x.Max.IsZero() {
		e.vector3Field("MaximumExtent", x.Max)
	}
	if x.Radius != 0 {
		e.floatField("BoundsRadius", x.Radius)
	}
}

func (e *encoder) beginGroup(name string) {
	e.w.WriteTab(e.depth)
	e.w.WriteLine(name + " {")
	e.depth++
}

func (e *encoder) beginNamedGroup(group, name string) {
	e.w.WriteTab(e.depth)
	e.w.WriteWord(group + " ")
	e.w.WriteString(name)
	e.w.WriteLine(" {")
	e.depth++
}

func (e *encoder) beginCountedGroup(group string, count int) {
	e.w.WriteTab(e.depth)
	e.w.WriteWord(group + " ")
	e.w.WriteInt(count)
	e.w.WriteLine(" {")
	e.depth++
}

func (e *encoder) endGroup() {
	e.depth--
	e.w.WriteTab(e.depth)
	e.w.WriteLine("}")
}

func (e *encoder) flag(name string) {
	e.w.WriteTab(e.depth)
	e.w.WriteLine(name + ",")
}

func (e *encoder) intField(name string, v int) {
	e.w.WriteTab(e.depth)
	e.w.WriteWord(name + " ")
	e.w.WriteInt(v)
	e.w.WriteLine(",")
}

func (e *encoder) floatField(name string, v float32) {
	e.w.WriteTab(e.depth)
	e.w.WriteWord(name + " ")
	e.w.WriteFloat(v)
	e.w.WriteLine(",")
}

func (e *encoder) stringField(name, v string) {
	e.w.WriteTab(e.depth)
	e.w.WriteWord(name + " ")
	e.w.WriteString(v)
	e.w.WriteLine(",")
}

func (e *encoder) vector3Field(name string, v types.Vec3) {
	e.w.WriteTab(e.depth)
	e.w.WriteWord(name + " ")
	e.w.WriteVector3(v)
	e.w.WriteLine(",")
}
