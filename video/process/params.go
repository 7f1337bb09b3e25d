package process

import (
	"fmt"
)

// Params carries the tunables of every kernel. Only the fields of the kernel
// in use matter.
type Params struct {
	Offset int `yaml:"offset"`

	SaltProbability   float64 `yaml:"salt_probability"`
	PepperProbability float64 `yaml:"pepper_probability"`

	MultiplyMin float64 `yaml:"multiply_min"`
	MultiplyMax float64 `yaml:"multiply_max"`

	ResizeMin     float64 `yaml:"resize_min"`
	ResizeMax     float64 `yaml:"resize_max"`
	DownsampleMin float64 `yaml:"downsample_min"`
	DownsampleMax float64 `yaml:"downsample_max"`

	BlurSize  int     `yaml:"blur_size"`
	BlurSigma float64 `yaml:"blur_sigma"`

	Shear    float64 `yaml:"shear"`
	MaxAngle float64 `yaml:"max_angle"`

	// WarpOffset is how far, in pixels, the right-hand corners move toward
	// the vertical center.
	WarpOffset int `yaml:"warp_offset"`

	// SuperpixelDivisor sets the superpixel count to sqrt(w*h)/divisor.
	SuperpixelDivisor    float64 `yaml:"superpixel_divisor"`
	SuperpixelIterations int     `yaml:"superpixel_iterations"`
}

func DefaultParams() Params {
	return Params{
		Offset:               50,
		SaltProbability:      0.01,
		PepperProbability:    0.01,
		MultiplyMin:          0.5,
		MultiplyMax:          2.0,
		ResizeMin:            0.5,
		ResizeMax:            2.0,
		DownsampleMin:        0.5,
		DownsampleMax:        1.0,
		BlurSize:             15,
		BlurSigma:            0,
		Shear:                0.2,
		MaxAngle:             30,
		WarpOffset:           100,
		SuperpixelDivisor:    4,
		SuperpixelIterations: 10,
	}
}

func (p Params) Validate() error {
	if p.Offset < -255 || p.Offset > 255 {
		return fmt.Errorf("offset %d outside [-255, 255]", p.Offset)
	}
	if err := checkProbability("salt_probability", p.SaltProbability); err != nil {
		return err
	}
	if err := checkProbability("pepper_probability", p.PepperProbability); err != nil {
		return err
	}
	if err := checkRange("multiply", p.MultiplyMin, p.MultiplyMax); err != nil {
		return err
	}
	if err := checkRange("resize", p.ResizeMin, p.ResizeMax); err != nil {
		return err
	}
	if err := checkRange("downsample", p.DownsampleMin, p.DownsampleMax); err != nil {
		return err
	}
	if p.BlurSize <= 0 || p.BlurSize%2 == 0 {
		return fmt.Errorf("blur_size must be a positive odd number, got %d", p.BlurSize)
	}
	if p.BlurSigma < 0 {
		return fmt.Errorf("blur_sigma must not be negative")
	}
	if p.MaxAngle < 0 || p.MaxAngle > 180 {
		return fmt.Errorf("max_angle %v outside [0, 180]", p.MaxAngle)
	}
	if p.WarpOffset < 0 {
		return fmt.Errorf("warp_offset must not be negative")
	}
	if p.SuperpixelDivisor <= 0 {
		return fmt.Errorf("superpixel_divisor must be positive")
	}
	if p.SuperpixelIterations <= 0 {
		return fmt.Errorf("superpixel_iterations must be positive")
	}
	return nil
}

func checkProbability(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s %v outside [0, 1]", name, v)
	}
	return nil
}

func checkRange(name string, lo, hi float64) error {
	if lo <= 0 || hi < lo {
		return fmt.Errorf("%s range [%v, %v] must satisfy 0 < min <= max", name, lo, hi)
	}
	return nil
}
