package layout

import (
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"strings"
	"testing"

	"rift-and-ruin/server/internal/world"
)

type memorySource struct {
	path string
	data []byte
	err  error
}

func (m memorySource) Load() ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]byte(nil), m.data...), nil
}

func (m memorySource) Path() string {
	return m.path
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func validDocument() *Document {
	return &Document{
		Version:  CurrentVersion,
		Name:     "proving-grounds",
		Boundary: 900,
		Walls: []WallDocument{
			{ID: "north-rampart", X: 0, Y: -320, Width: 280, Height: 40},
			{ID: "east-rampart", X: 360, Y: 0, Width: 40, Height: 280},
		},
		Ruins: []RuinDocument{
			{ID: "old-keep", X: -240, Y: 220, Width: 140, Height: 90, Angle: 0.4},
		},
	}
}

func TestLoadDocument(t *testing.T) {
	data := mustMarshal(map[string]any{
		"version":  1,
		"name":     "proving-grounds",
		"boundary": 900,
		"palisade": true,
		"walls": []map[string]any{
			{"id": "north-rampart", "x": 0, "y": -320, "w": 280, "h": 40},
		},
		"ruins": []map[string]any{
			{"id": "old-keep", "x": -240, "y": 220, "w": 140, "h": 90, "angle": 0.4},
		},
	})

	doc, err := loadFrom(memorySource{path: "inline.json", data: data})
	if err != nil {
		t.Fatalf("loadFrom failed: %v", err)
	}
	if doc.Name != "proving-grounds" {
		t.Fatalf("expected name proving-grounds, got %q", doc.Name)
	}
	if doc.Boundary != 900 {
		t.Fatalf("expected boundary 900, got %v", doc.Boundary)
	}
	if !doc.Palisade {
		t.Fatalf("expected palisade to be enabled")
	}
	if len(doc.Walls) != 1 || doc.Walls[0].ID != "north-rampart" {
		t.Fatalf("unexpected walls: %+v", doc.Walls)
	}
	if len(doc.Ruins) != 1 || doc.Ruins[0].Angle != 0.4 {
		t.Fatalf("unexpected ruins: %+v", doc.Ruins)
	}
}

func TestLoadSkipsMissingFiles(t *testing.T) {
	valid := validDocument()
	doc, err := loadFrom(
		memorySource{path: "absent.json", err: fs.ErrNotExist},
		memorySource{path: "present.json", data: mustMarshal(valid)},
	)
	if err != nil {
		t.Fatalf("loadFrom failed: %v", err)
	}
	if doc.Name != valid.Name {
		t.Fatalf("expected document from second source, got %q", doc.Name)
	}
}

func TestLoadReportsNotFound(t *testing.T) {
	_, err := loadFrom(
		memorySource{path: "a.json", err: fs.ErrNotExist},
		memorySource{path: "b.json", err: fs.ErrNotExist},
	)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadPropagatesReadFailures(t *testing.T) {
	readErr := errors.New("disk offline")
	_, err := loadFrom(memorySource{path: "broken.json", err: readErr})
	if !errors.Is(err, readErr) {
		t.Fatalf("expected wrapped read error, got %v", err)
	}
	if !strings.Contains(err.Error(), "broken.json") {
		t.Fatalf("expected error to name the source, got %v", err)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode([]byte(`{"version":1,"nmae":"typo"}`))
	if err == nil {
		t.Fatalf("expected unknown field error")
	}
	if !strings.Contains(err.Error(), "nmae") {
		t.Fatalf("expected error to name the unknown field, got %v", err)
	}
}

func TestValidateRejectsBrokenDocuments(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Document)
		want   string
	}{
		{
			name:   "future-version",
			mutate: func(doc *Document) { doc.Version = CurrentVersion + 1 },
			want:   "unsupported version",
		},
		{
			name:   "blank-name",
			mutate: func(doc *Document) { doc.Name = "   " },
			want:   "missing arena name",
		},
		{
			name:   "infinite-boundary",
			mutate: func(doc *Document) { doc.Boundary = math.Inf(1) },
			want:   "boundary must be finite",
		},
		{
			name:   "wall-without-id",
			mutate: func(doc *Document) { doc.Walls[0].ID = "  " },
			want:   "missing id",
		},
		{
			name:   "duplicate-id-across-kinds",
			mutate: func(doc *Document) { doc.Ruins[0].ID = doc.Walls[0].ID },
			want:   "duplicate id",
		},
		{
			name:   "zero-width-wall",
			mutate: func(doc *Document) { doc.Walls[0].Width = 0 },
			want:   "size must be positive",
		},
		{
			name:   "negative-height-ruin",
			mutate: func(doc *Document) { doc.Ruins[0].Height = -20 },
			want:   "size must be positive",
		},
		{
			name:   "nan-center",
			mutate: func(doc *Document) { doc.Walls[0].X = math.NaN() },
			want:   "center must be finite",
		},
		{
			name:   "nan-angle",
			mutate: func(doc *Document) { doc.Ruins[0].Angle = math.NaN() },
			want:   "angle must be finite",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := validDocument()
			tc.mutate(doc)

			err := doc.Validate()
			if err == nil {
				t.Fatalf("expected validation to fail")
			}
			if !errors.Is(err, ErrInvalidDocument) {
				t.Fatalf("expected ErrInvalidDocument, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateAcceptsGoodDocument(t *testing.T) {
	if err := validDocument().Validate(); err != nil {
		t.Fatalf("expected document to validate, got %v", err)
	}
}

func TestResolvePreservesDocumentOrder(t *testing.T) {
	doc := &Document{
		Version: CurrentVersion,
		Name:    "ordering",
		Walls: []WallDocument{
			{ID: "second", X: 100, Y: 0, Width: 40, Height: 40},
			{ID: "first", X: -100, Y: 0, Width: 40, Height: 40},
		},
		Ruins: []RuinDocument{
			{ID: "keep", X: 0, Y: 200, Width: 80, Height: 60, Angle: 1.2},
		},
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	authored := doc.Resolve()
	if len(authored.Walls) != 2 || authored.Walls[0].ID != "second" || authored.Walls[1].ID != "first" {
		t.Fatalf("expected wall order preserved, got %+v", authored.Walls)
	}
	if len(authored.Ruins) != 1 || authored.Ruins[0].Angle != 1.2 {
		t.Fatalf("expected ruin carried over, got %+v", authored.Ruins)
	}
}

func TestWorldConfigFeedsAuthoredLayout(t *testing.T) {
	doc := validDocument()
	doc.Boundary = 600

	w := world.New(doc.WorldConfig("layout-test"), world.Deps{Authored: doc.Resolve()})
	if w.Boundary() != 600 {
		t.Fatalf("expected boundary 600, got %v", w.Boundary())
	}

	walls := w.Walls()
	if len(walls) != len(doc.Walls) {
		t.Fatalf("expected %d walls, got %d", len(doc.Walls), len(walls))
	}
	for i, wall := range walls {
		if wall.ID != doc.Walls[i].ID {
			t.Fatalf("expected wall %d to be %q, got %q", i, doc.Walls[i].ID, wall.ID)
		}
	}
	if len(w.Ruins()) != 1 {
		t.Fatalf("expected 1 ruin, got %d", len(w.Ruins()))
	}
}
