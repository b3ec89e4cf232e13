package models

import (
	"testing"

	"github.com/starford/mdlforge/internal/types"
)

func TestHelperKindAndDefaults(t *testing.T) {
	h := NewHelper()
	if h.Kind() != KindHelper || h.Data().Kind != KindHelper {
		t.Fatalf("kind = %q / %q", h.Kind(), h.Data().Kind)
	}
	d := h.Data()
	if d.ObjectID != NoID || d.ParentID != NoID {
		t.Errorf("ids = %d/%d, want NoID", d.ObjectID, d.ParentID)
	}
	if d.Rotation.Static != types.IdentityQuat {
		t.Errorf("rotation = %v", d.Rotation.Static)
	}
	if !d.Scaling.Static.IsOne() {
		t.Errorf("scaling = %v", d.Scaling.Static)
	}
}

func TestHelperClearKeepsKind(t *testing.T) {
	h := NewHelper()
	d := h.Data()
	d.Name = "Bone_Chest"
	d.ParentID = 3
	d.Billboarded = true
	d.Kind = "tampered"

	h.Clear()
	if h.Kind() != KindHelper {
		t.Errorf("kind = %q", h.Kind())
	}
	if h.Data().Kind != KindHelper {
		t.Errorf("data kind = %q", h.Data().Kind)
	}
	if h.Data().Name != "" || h.Data().ParentID != NoID || h.Data().Billboarded {
		t.Errorf("data not reset: %+v", h.Data())
	}
}

func TestHelperSize(t *testing.T) {
	h := NewHelper()
	if got := h.Size(); got != 96 {
		t.Fatalf("static size = %d, want 96", got)
	}

	d := h.Data()
	d.Translation.Interpolation = Linear
	d.Translation.Keys = []Key[types.Vec3]{{Time: 0}, {Time: 100}}
	// 16 byte track header + 2 keys * (4 time + 12 value)
	if got := h.Size(); got != 96+16+32 {
		t.Errorf("linear size = %d", got)
	}

	d.Rotation.Interpolation = Hermite
	d.Rotation.Keys = []Key[types.Vec4]{{Time: 0}}
	// 16 + 1 * (4 + 16*3)
	if got := h.Size(); got != 96+16+32+16+52 {
		t.Errorf("hermite size = %d", got)
	}
}

func TestFlags(t *testing.T) {
	d := NewHelper().Data()
	if d.Flags() != 0 {
		t.Errorf("default flags = %d", d.Flags())
	}
	d.DontInheritRotation = true
	d.Billboarded = true
	d.CameraAnchored = true
	if got := d.Flags(); got != 2|8|128 {
		t.Errorf("flags = %d", got)
	}
}

func TestPivotPointsOrderedByObjectID(t *testing.T) {
	m := NewModel("Footman")
	a, b := NewHelper(), NewHelper()
	a.Data().ObjectID = 1
	a.Data().PivotPoint = types.XYZ(1, 1, 1)
	b.Data().ObjectID = 0
	b.Data().PivotPoint = types.XYZ(2, 2, 2)
	m.Helpers = []*Helper{a, b}

	pivots := m.PivotPoints()
	if len(pivots) != 2 || pivots[0] != types.XYZ(2, 2, 2) || pivots[1] != types.XYZ(1, 1, 1) {
		t.Errorf("pivots = %v", pivots)
	}

	m.AssignObjectIDs()
	if a.Data().ObjectID != 0 || b.Data().ObjectID != 1 {
		t.Errorf("ids = %d, %d", a.Data().ObjectID, b.Data().ObjectID)
	}
}

func TestNewModelDefaults(t *testing.T) {
	m := NewModel("x")
	if m.FormatVersion != 800 || m.BlendTime != 150 {
		t.Errorf("defaults = %d/%d", m.FormatVersion, m.BlendTime)
	}
}

func TestParseInterpolation(t *testing.T) {
	for in, want := range map[string]Interpolation{
		"linear":     Linear,
		"Hermite":    Hermite,
		"BEZIER":     Bezier,
		"dontinterp": DontInterp,
	} {
		got, err := ParseInterpolation(in)
		if err != nil || got != want {
			t.Errorf("%q = %v, %v", in, got, err)
		}
	}
	if _, err := ParseInterpolation("cubic"); err == nil {
		t.Error("expected error for unknown interpolation")
	}
	if Linear.String() != "Linear" || !Bezier.HasTangents() || Linear.HasTangents() {
		t.Error("interpolation helpers")
	}
}
