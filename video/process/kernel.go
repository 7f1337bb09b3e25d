// Package process holds the per-frame kernels applied by the pipeline.
package process

import (
	"fmt"
	"image"
	"math/rand"
	"sort"

	"gocv.io/x/gocv"
)

// Kernel transforms one frame into another.
type Kernel interface {
	// Name is the catalogue name of the kernel.
	Name() string

	// Apply returns a new Mat holding the transformed frame. It may modify src
	// but must not return it. An empty result means the frame has no usable
	// output and should be dropped. All randomness is drawn from rng.
	Apply(src gocv.Mat, rng *rand.Rand) (gocv.Mat, error)

	// OutputSize is the size an output sink should be created with for a
	// source of the given size.
	OutputSize(src image.Point) image.Point
}

// Geometry describes how a kernel changes frame dimensions.
type Geometry int

const (
	// GeometryPreserved kernels emit frames of the source size.
	GeometryPreserved Geometry = iota
	// GeometryVaries kernels emit frames whose size changes from frame to
	// frame and generally differs from OutputSize.
	GeometryVaries
)

func (g Geometry) String() string {
	switch g {
	case GeometryPreserved:
		return "preserved"
	case GeometryVaries:
		return "varies"
	default:
		return "unknown"
	}
}

// Entry is one row of the kernel catalogue.
type Entry struct {
	Name       string
	Summary    string
	Randomized bool
	Geometry   Geometry
	New        func(p Params) Kernel
}

// Catalogue lists every available kernel.
var Catalogue = []Entry{
	{"add", "add a constant to every sample, saturating", false, GeometryPreserved,
		func(p Params) Kernel { return &Add{Offset: p.Offset} }},
	{"salt", "set random pixels to white", true, GeometryPreserved,
		func(p Params) Kernel { return &Noise{Probability: p.SaltProbability, Value: 255, name: "salt"} }},
	{"pepper", "set random pixels to black", true, GeometryPreserved,
		func(p Params) Kernel { return &Noise{Probability: p.PepperProbability, Value: 0, name: "pepper"} }},
	{"multiply", "scale each channel by a random factor", true, GeometryPreserved,
		func(p Params) Kernel { return &Multiply{Min: p.MultiplyMin, Max: p.MultiplyMax} }},
	{"resize", "resize by random horizontal and vertical factors", true, GeometryVaries,
		func(p Params) Kernel { return NewResize(p.ResizeMin, p.ResizeMax) }},
	{"downsample", "shrink both axes by one random factor", true, GeometryVaries,
		func(p Params) Kernel { return NewDownsample(p.DownsampleMin, p.DownsampleMax) }},
	{"blur", "gaussian blur", false, GeometryPreserved,
		func(p Params) Kernel { return &Blur{Size: p.BlurSize, Sigma: p.BlurSigma} }},
	{"invert", "invert colors", false, GeometryPreserved,
		func(p Params) Kernel { return Invert{} }},
	{"shear", "horizontal shear", false, GeometryPreserved,
		func(p Params) Kernel { return &Shear{Factor: p.Shear} }},
	{"rotate", "rotate about the center by a random angle", true, GeometryPreserved,
		func(p Params) Kernel { return &Rotate{MaxAngle: p.MaxAngle} }},
	{"warp", "piecewise affine warp of the right edge", false, GeometryPreserved,
		func(p Params) Kernel { return &Warp{Offset: p.WarpOffset} }},
	{"superpixel", "keep superpixel contours only", false, GeometryPreserved,
		func(p Params) Kernel {
			return &Superpixel{Divisor: p.SuperpixelDivisor, Iterations: p.SuperpixelIterations}
		}},
	{"flip", "mirror horizontally", false, GeometryPreserved,
		func(p Params) Kernel { return Flip{} }},
}

// Lookup finds a catalogue entry by name.
func Lookup(name string) (Entry, bool) {
	for _, e := range Catalogue {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// New builds the named kernel from validated params.
func New(name string, p Params) (Kernel, error) {
	e, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown kernel %q (have %v)", name, Names())
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return e.New(p), nil
}

// Names returns the sorted catalogue names.
func Names() []string {
	var names []string
	for _, e := range Catalogue {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// sameSize is the OutputSize of every kernel that keeps the canvas.
type sameSize struct{}

func (sameSize) OutputSize(src image.Point) image.Point {
	return src
}

func checkBGR(m gocv.Mat) error {
	if m.Empty() {
		return fmt.Errorf("empty frame")
	}
	if m.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("expected 8-bit 3 channel frame, got type %v", m.Type())
	}
	return nil
}
