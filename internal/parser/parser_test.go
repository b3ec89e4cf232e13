package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/mdlforge/internal/models"
	"github.com/starford/mdlforge/internal/types"
)

const crateSource = `
name: Crate
blend_time: 300
animation_file: Crate_Anims.mdx
extent:
  min: [-1, -1, 0]
  max: [1, 1, 2]
  radius: 1.5
sequences:
  - name: Stand
    interval: [0, 1000]
  - name: Open
    interval: [1000, 1500]
    non_looping: true
    move_speed: 270
global_sequences: [3000]
helpers:
  - name: Root
    pivot: [0, 0, 1]
  - name: Lid
    parent: Root
    pivot: [0.25, 0, 2]
    dont_inherit: [rotation]
    billboarded: true
    translation:
      interpolation: linear
      global_seq: 0
      keys:
        - time: 0
          value: [0, 0, 0]
        - time: 500
          value: [0, 0, 0.5]
    rotation:
      interpolation: hermite
      keys:
        - time: 1000
          value: [0, 0, 0, 1]
          in_tan: [0, 0, 0, 1]
          out_tan: [0, 0, 1, 0]
    scaling:
      static: [2, 2, 2]
`

func TestParseCrate(t *testing.T) {
	res, err := Parse([]byte(crateSource))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m := res.Model

	if m.Name != "Crate" || m.FormatVersion != 800 || m.BlendTime != 300 {
		t.Errorf("header = %q %d %d", m.Name, m.FormatVersion, m.BlendTime)
	}
	if m.AnimationFile != "Crate_Anims.mdx" {
		t.Errorf("animation file = %q", m.AnimationFile)
	}
	wantExtent := models.Extent{Min: types.XYZ(-1, -1, 0), Max: types.XYZ(1, 1, 2), Radius: 1.5}
	if diff := cmp.Diff(wantExtent, m.Extent); diff != "" {
		t.Errorf("extent (-want +got):\n%s", diff)
	}

	wantSeqs := []models.Sequence{
		{Name: "Stand", IntervalStart: 0, IntervalEnd: 1000},
		{Name: "Open", IntervalStart: 1000, IntervalEnd: 1500, NonLooping: true, MoveSpeed: 270},
	}
	if diff := cmp.Diff(wantSeqs, m.Sequences); diff != "" {
		t.Errorf("sequences (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]models.GlobalSequence{{Duration: 3000}}, m.GlobalSequences); diff != "" {
		t.Errorf("global sequences (-want +got):\n%s", diff)
	}

	if len(m.Helpers) != 2 {
		t.Fatalf("helpers = %d", len(m.Helpers))
	}
	root, lid := m.Helpers[0].Data(), m.Helpers[1].Data()
	if root.ObjectID != 0 || root.ParentID != models.NoID {
		t.Errorf("root ids = %d/%d", root.ObjectID, root.ParentID)
	}
	if lid.ObjectID != 1 || lid.ParentID != 0 {
		t.Errorf("lid ids = %d/%d", lid.ObjectID, lid.ParentID)
	}
	if !lid.DontInheritRotation || lid.DontInheritTranslation || !lid.Billboarded {
		t.Errorf("lid flags = %d", lid.Flags())
	}

	wantTranslation := models.Track[types.Vec3]{
		Interpolation: models.Linear,
		GlobalSeqID:   0,
		Keys: []models.Key[types.Vec3]{
			{Time: 0, Value: types.XYZ(0, 0, 0)},
			{Time: 500, Value: types.XYZ(0, 0, 0.5)},
		},
	}
	if diff := cmp.Diff(wantTranslation, lid.Translation); diff != "" {
		t.Errorf("translation (-want +got):\n%s", diff)
	}

	wantRotation := models.Track[types.Vec4]{
		Static:        types.IdentityQuat,
		Interpolation: models.Hermite,
		GlobalSeqID:   models.NoID,
		Keys: []models.Key[types.Vec4]{
			{Time: 1000, Value: types.IdentityQuat, InTan: types.IdentityQuat, OutTan: types.XYZW(0, 0, 1, 0)},
		},
	}
	if diff := cmp.Diff(wantRotation, lid.Rotation); diff != "" {
		t.Errorf("rotation (-want +got):\n%s", diff)
	}
	if lid.Scaling.Static != types.XYZ(2, 2, 2) || lid.Scaling.Animated() {
		t.Errorf("scaling = %+v", lid.Scaling)
	}
	if root.Scaling.Static != types.XYZ(1, 1, 1) {
		t.Errorf("root scaling default = %v", root.Scaling.Static)
	}
}

func TestParseMinimal(t *testing.T) {
	res, err := Parse([]byte("name: Empty\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Model.BlendTime != models.DefaultBlendTime {
		t.Errorf("blend time = %d", res.Model.BlendTime)
	}
	if len(res.Model.Helpers) != 0 {
		t.Errorf("helpers = %d", len(res.Model.Helpers))
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"invalid yaml", "name: [", "decode"},
		{"missing name", "blend_time: 1\n", "Name: cannot be blank"},
		{"quote in name", "name: 'bad\"name'\n", "Name: must be in a valid format"},
		{"duplicate helper", "name: M\nhelpers:\n  - name: A\n  - name: A\n", "duplicate"},
		{"unknown parent", "name: M\nhelpers:\n  - name: A\n    parent: B\n", "unknown parent"},
		{"self parent", "name: M\nhelpers:\n  - name: A\n    parent: A\n", "own parent"},
		{"bad pivot", "name: M\nhelpers:\n  - name: A\n    pivot: [1, 2]\n", "3 components"},
		{"bad dont inherit", "name: M\nhelpers:\n  - name: A\n    dont_inherit: [color]\n", "DontInherit"},
		{"bad interpolation", "name: M\nhelpers:\n  - name: A\n    translation:\n      interpolation: cubic\n      keys:\n        - time: 0\n          value: [0, 0, 0]\n", "unknown interpolation"},
		{"keys without interpolation", "name: M\nhelpers:\n  - name: A\n    scaling:\n      keys:\n        - time: 0\n          value: [1, 1, 1]\n", "require an interpolation"},
		{"global seq range", "name: M\nhelpers:\n  - name: A\n    translation:\n      interpolation: linear\n      global_seq: 2\n      keys:\n        - time: 0\n          value: [0, 0, 0]\n", "out of range"},
		{"sequence interval", "name: M\nsequences:\n  - name: Stand\n    interval: [0]\n", "Interval"},
		{"missing tangent", "name: M\nhelpers:\n  - name: A\n    rotation:\n      interpolation: bezier\n      keys:\n        - time: 0\n          value: [0, 0, 0, 1]\n", "in_tan"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.src))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
