package domain

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ElementType string

const (
	ElementPath   ElementType = "path"
	ElementLine   ElementType = "line"
	ElementRect   ElementType = "rect"
	ElementCircle ElementType = "circle"
	ElementText   ElementType = "text"
	ElementImage  ElementType = "image"
)

// CanvasElement is one member of the flat ordered drawing sequence.
// The geometry fields in use depend on Type; replication always moves
// whole-list snapshots, never diffs, so unused fields stay zero.
type CanvasElement struct {
	ID          string      `json:"id"`
	Type        ElementType `json:"type"`
	Points      []Point     `json:"points,omitempty"`
	X           float64     `json:"x,omitempty"`
	Y           float64     `json:"y,omitempty"`
	W           float64     `json:"w,omitempty"`
	H           float64     `json:"h,omitempty"`
	X1          float64     `json:"x1,omitempty"`
	Y1          float64     `json:"y1,omitempty"`
	X2          float64     `json:"x2,omitempty"`
	Y2          float64     `json:"y2,omitempty"`
	Text        string      `json:"text,omitempty"`
	FontSize    int         `json:"fontSize,omitempty"`
	ImgData     string      `json:"imgData,omitempty"`
	Color       string      `json:"color,omitempty"`
	StrokeWidth float64     `json:"strokeWidth,omitempty"`
}

const DefaultSlideBackground = "#1a1f2e"

// Slide is one page of the shared deck.
type Slide struct {
	ID         string          `json:"id"`
	Elements   []CanvasElement `json:"elements"`
	Background string          `json:"background"`
}

// Annotation is a positional "dot" linking a canvas location to a
// workspace file.
type Annotation struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	File  string  `json:"file"`
	Label string  `json:"label"`
	Color string  `json:"color"`
}
