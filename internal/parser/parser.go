// Package parser decodes YAML model sources into scene-graph models.
package parser

import (
	"errors"
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/mdlforge/internal/models"
	"github.com/starford/mdlforge/internal/types"
)

// Names are written into quoted MDL strings, which are never escaped.
var nameRe = regexp.MustCompile(`^[^"\r\n]*$`)

// Source is the on-disk YAML representation of a model.
type Source struct {
	Name            string           `yaml:"name"`
	FormatVersion   int              `yaml:"format_version"`
	BlendTime       *int             `yaml:"blend_time"`
	AnimationFile   string           `yaml:"animation_file"`
	Extent          ExtentSource     `yaml:"extent"`
	Sequences       []SequenceSource `yaml:"sequences"`
	GlobalSequences []int            `yaml:"global_sequences"`
	Helpers         []NodeSource     `yaml:"helpers"`
}

// ExtentSource is a bounding box.
type ExtentSource struct {
	Min    []float32 `yaml:"min"`
	Max    []float32 `yaml:"max"`
	Radius float32   `yaml:"radius"`
}

// SequenceSource is one animation interval.
type SequenceSource struct {
	Name       string       `yaml:"name"`
	Interval   []int        `yaml:"interval"`
	MoveSpeed  float32      `yaml:"move_speed"`
	Rarity     float32      `yaml:"rarity"`
	SyncPoint  int          `yaml:"sync_point"`
	NonLooping bool         `yaml:"non_looping"`
	Extent     ExtentSource `yaml:"extent"`
}

// NodeSource is one scene-graph node. Parent references another node by name.
type NodeSource struct {
	Name             string      `yaml:"name"`
	Parent           string      `yaml:"parent"`
	Pivot            []float32   `yaml:"pivot"`
	DontInherit      []string    `yaml:"dont_inherit"`
	Billboarded      bool        `yaml:"billboarded"`
	BillboardedLockX bool        `yaml:"billboarded_lock_x"`
	BillboardedLockY bool        `yaml:"billboarded_lock_y"`
	BillboardedLockZ bool        `yaml:"billboarded_lock_z"`
	CameraAnchored   bool        `yaml:"camera_anchored"`
	Translation      TrackSource `yaml:"translation"`
	Rotation         TrackSource `yaml:"rotation"`
	Scaling          TrackSource `yaml:"scaling"`
}

// TrackSource is either a static value or a list of keys.
type TrackSource struct {
	Static        []float32   `yaml:"static"`
	Interpolation string      `yaml:"interpolation"`
	GlobalSeq     *int        `yaml:"global_seq"`
	Keys          []KeySource `yaml:"keys"`
}

// KeySource is one keyframe.
type KeySource struct {
	Time   int       `yaml:"time"`
	Value  []float32 `yaml:"value"`
	InTan  []float32 `yaml:"in_tan"`
	OutTan []float32 `yaml:"out_tan"`
}

// Validate checks the structure of the source.
func (s *Source) Validate() error {
	if err := validation.ValidateStruct(s,
		validation.Field(&s.Name, validation.Required, validation.Match(nameRe)),
		validation.Field(&s.AnimationFile, validation.Match(nameRe)),
		validation.Field(&s.FormatVersion, validation.Min(0)),
		validation.Field(&s.Sequences),
		validation.Field(&s.Helpers),
	); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(s.Helpers))
	for _, h := range s.Helpers {
		if _, dup := seen[h.Name]; dup {
			return fmt.Errorf("helpers: duplicate name %q", h.Name)
		}
		seen[h.Name] = struct{}{}
	}
	for _, h := range s.Helpers {
		if h.Parent == "" {
			continue
		}
		if _, ok := seen[h.Parent]; !ok {
			return fmt.Errorf("helper %q: unknown parent %q", h.Name, h.Parent)
		}
		if h.Parent == h.Name {
			return fmt.Errorf("helper %q: node cannot be its own parent", h.Name)
		}
	}
	for i, d := range s.GlobalSequences {
		if d < 0 {
			return fmt.Errorf("global_sequences[%d]: negative duration", i)
		}
	}
	return nil
}

// Validate checks the structure of a sequence.
func (s SequenceSource) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required, validation.Match(nameRe)),
		validation.Field(&s.Interval, validation.Required, validation.Length(2, 2)),
	)
}

// Validate checks the structure of a node.
func (n NodeSource) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Name, validation.Required, validation.Match(nameRe)),
		validation.Field(&n.DontInherit, validation.Each(validation.In("translation", "rotation", "scaling"))),
	)
}

// Result holds the output of parsing a model source.
type Result struct {
	Model *models.Model
}

// Parse decodes and validates a YAML model source. Object ids are assigned in
// helper declaration order.
func Parse(data []byte) (*Result, error) {
	var src Source
	if err := yaml.Unmarshal(data, &src); err != nil {
		return nil, fmt.Errorf("parser: decode: %w", err)
	}
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("parser: validate: %w", err)
	}
	m, err := src.build()
	if err != nil {
		return nil, fmt.Errorf("parser: %w", err)
	}
	return &Result{Model: m}, nil
}

func (s *Source) build() (*models.Model, error) {
	m := models.NewModel(s.Name)
	if s.FormatVersion != 0 {
		m.FormatVersion = s.FormatVersion
	}
	if s.BlendTime != nil {
		m.BlendTime = *s.BlendTime
	}
	m.AnimationFile = s.AnimationFile

	var err error
	if m.Extent, err = s.Extent.build(); err != nil {
		return nil, fmt.Errorf("extent: %w", err)
	}

	for _, seq := range s.Sequences {
		ext, err := seq.Extent.build()
		if err != nil {
			return nil, fmt.Errorf("sequence %q: extent: %w", seq.Name, err)
		}
		m.Sequences = append(m.Sequences, models.Sequence{
			Name:          seq.Name,
			IntervalStart: seq.Interval[0],
			IntervalEnd:   seq.Interval[1],
			MoveSpeed:     seq.MoveSpeed,
			Rarity:        seq.Rarity,
			SyncPoint:     seq.SyncPoint,
			NonLooping:    seq.NonLooping,
			Extent:        ext,
		})
	}
	for _, d := range s.GlobalSequences {
		m.GlobalSequences = append(m.GlobalSequences, models.GlobalSequence{Duration: d})
	}

	ids := make(map[string]int, len(s.Helpers))
	for i, h := range s.Helpers {
		ids[h.Name] = i
	}
	for _, src := range s.Helpers {
		h := models.NewHelper()
		if err := src.apply(h.Data(), ids, len(s.GlobalSequences)); err != nil {
			return nil, fmt.Errorf("helper %q: %w", src.Name, err)
		}
		m.Helpers = append(m.Helpers, h)
	}
	m.AssignObjectIDs()
	return m, nil
}

func (n NodeSource) apply(d *models.NodeData, ids map[string]int, globalSeqs int) error {
	d.Name = n.Name
	if n.Parent != "" {
		d.ParentID = ids[n.Parent]
	}
	if n.Pivot != nil {
		p, err := vec3(n.Pivot)
		if err != nil {
			return fmt.Errorf("pivot: %w", err)
		}
		d.PivotPoint = p
	}
	for _, di := range n.DontInherit {
		switch di {
		case "translation":
			d.DontInheritTranslation = true
		case "rotation":
			d.DontInheritRotation = true
		case "scaling":
			d.DontInheritScaling = true
		}
	}
	d.Billboarded = n.Billboarded
	d.BillboardedLockX = n.BillboardedLockX
	d.BillboardedLockY = n.BillboardedLockY
	d.BillboardedLockZ = n.BillboardedLockZ
	d.CameraAnchored = n.CameraAnchored

	if err := buildTrack(&d.Translation, n.Translation, vec3, globalSeqs); err != nil {
		return fmt.Errorf("translation: %w", err)
	}
	if err := buildTrack(&d.Rotation, n.Rotation, vec4, globalSeqs); err != nil {
		return fmt.Errorf("rotation: %w", err)
	}
	if err := buildTrack(&d.Scaling, n.Scaling, vec3, globalSeqs); err != nil {
		return fmt.Errorf("scaling: %w", err)
	}
	return nil
}

// buildTrack fills t from src. Fields absent from src keep the defaults
// already present in t.
func buildTrack[V any](t *models.Track[V], src TrackSource, conv func([]float32) (V, error), globalSeqs int) error {
	if src.Static != nil {
		v, err := conv(src.Static)
		if err != nil {
			return fmt.Errorf("static: %w", err)
		}
		t.Static = v
	}
	if src.Interpolation != "" {
		interp, err := models.ParseInterpolation(src.Interpolation)
		if err != nil {
			return err
		}
		t.Interpolation = interp
	}
	if src.GlobalSeq != nil {
		if *src.GlobalSeq < 0 || *src.GlobalSeq >= globalSeqs {
			return fmt.Errorf("global_seq %d out of range", *src.GlobalSeq)
		}
		t.GlobalSeqID = *src.GlobalSeq
	}
	if len(src.Keys) > 0 && src.Interpolation == "" {
		return errors.New("keys require an interpolation")
	}
	for i, k := range src.Keys {
		key := models.Key[V]{Time: k.Time}
		var err error
		if key.Value, err = conv(k.Value); err != nil {
			return fmt.Errorf("keys[%d].value: %w", i, err)
		}
		if t.Interpolation.HasTangents() {
			if key.InTan, err = conv(k.InTan); err != nil {
				return fmt.Errorf("keys[%d].in_tan: %w", i, err)
			}
			if key.OutTan, err = conv(k.OutTan); err != nil {
				return fmt.Errorf("keys[%d].out_tan: %w", i, err)
			}
		}
		t.Keys = append(t.Keys, key)
	}
	return nil
}

func (e ExtentSource) build() (models.Extent, error) {
	var out models.Extent
	var err error
	if e.Min != nil {
		if out.Min, err = vec3(e.Min); err != nil {
			return out, fmt.Errorf("min: %w", err)
		}
	}
	if e.Max != nil {
		if out.Max, err = vec3(e.Max); err != nil {
			return out, fmt.Errorf("max: %w", err)
		}
	}
	out.Radius = e.Radius
	return out, nil
}

func vec3(c []float32) (types.Vec3, error) {
	if len(c) != 3 {
		return types.Vec3{}, fmt.Errorf("want 3 components, got %d", len(c))
	}
	return types.XYZ(c[0], c[1], c[2]), nil
}

func vec4(c []float32) (types.Vec4, error) {
	if len(c) != 4 {
		return types.Vec4{}, fmt.Errorf("want 4 components, got %d", len(c))
	}
	return types.XYZW(c[0], c[1], c[2], c[3]), nil
}
