package render

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"github.com/reglet-dev/framescript/draw"
	"github.com/samber/lo"
)

// Sink receives frames in order.
type Sink interface {
	WriteFrame(Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Frame) error

func (f SinkFunc) WriteFrame(frame Frame) error {
	return f(frame)
}

// DiscardSink drops every frame.
type DiscardSink struct{}

func (DiscardSink) WriteFrame(Frame) error { return nil }

// JSONSink writes one JSON object per frame, newline separated.
type JSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONSink returns a sink that encodes frames to w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w)}
}

func (s *JSONSink) WriteFrame(frame Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := jsonFrame{
		Index:    frame.Index,
		Time:     jsonNumber(frame.Time),
		Commands: lo.Map(frame.Commands, func(c draw.Command, _ int) jsonCommand { return toJSONCommand(c) }),
	}
	if err := s.enc.Encode(out); err != nil {
		return fmt.Errorf("encode frame %d: %w", frame.Index, err)
	}
	return nil
}

// jsonNumber encodes NaN and the infinities, which JSON cannot represent,
// as null.
type jsonNumber float32

func (n jsonNumber) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(float32(n))
}

type jsonFrame struct {
	Index    int           `json:"index"`
	Time     jsonNumber    `json:"time"`
	Commands []jsonCommand `json:"commands"`
}

type jsonCommand struct {
	Kind  draw.Kind  `json:"kind"`
	X     jsonNumber `json:"x"`
	Y     jsonNumber `json:"y"`
	W     jsonNumber `json:"w"`
	H     jsonNumber `json:"h"`
	Color color.RGBA `json:"color"`
}

func toJSONCommand(c draw.Command) jsonCommand {
	return jsonCommand{
		Kind:  c.Kind,
		X:     jsonNumber(c.X),
		Y:     jsonNumber(c.Y),
		W:     jsonNumber(c.W),
		H:     jsonNumber(c.H),
		Color: c.Color,
	}
}

// DefaultPattern names PNG frames frame-00000.png, frame-00001.png, ...
const DefaultPattern = "frame-%05d.png"

// PNGSink rasterizes each frame and saves it as a PNG file in Dir.
type PNGSink struct {
	Dir        string
	Pattern    string
	Width      int
	Height     int
	Scale      int
	Background color.Color
}

// NewPNGSink returns a PNGSink writing width x height frames into dir.
func NewPNGSink(dir string, width, height int) *PNGSink {
	return &PNGSink{
		Dir:        dir,
		Pattern:    DefaultPattern,
		Width:      width,
		Height:     height,
		Scale:      1,
		Background: Background,
	}
}

// Image renders frame the way WriteFrame would save it.
func (s *PNGSink) Image(frame Frame) image.Image {
	bg := s.Background
	if bg == nil {
		bg = Background
	}
	img := Rasterize(frame.Commands, s.Width, s.Height, bg)
	if s.Scale > 1 {
		return transform.Resize(img, s.Width*s.Scale, s.Height*s.Scale, transform.NearestNeighbor)
	}
	return img
}

// Path returns the file name used for frame index.
func (s *PNGSink) Path(index int) string {
	pattern := s.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	return filepath.Join(s.Dir, fmt.Sprintf(pattern, index))
}

func (s *PNGSink) WriteFrame(frame Frame) error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", s.Width, s.Height)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	name := s.Path(frame.Index)
	if err := imgio.Save(name, s.Image(frame), imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("save frame %d: %w", frame.Index, err)
	}
	return nil
}

// EncodePNG writes frame to w as a single PNG image.
func (s *PNGSink) EncodePNG(w io.Writer, frame Frame) error {
	return imgio.PNGEncoder()(w, s.Image(frame))
}
