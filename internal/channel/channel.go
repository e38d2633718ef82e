// Package channel defines the typed image channel: one microscopy channel
// bound to a pixel substrate and tagged with the processing type that selects
// its algorithms. A channel owns its substrate and any derived mask for the
// duration of a run.
package channel

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/aforsythe/HughesLabTools/internal/substrate"
)

// ImageType selects the algorithm family applied to a channel. It is fixed
// at channel creation; retyping a channel means replacing it.
type ImageType int

const (
	Tumor ImageType = iota
	Vessel
)

func (t ImageType) String() string {
	switch t {
	case Tumor:
		return "tumor"
	case Vessel:
		return "vessel"
	default:
		return fmt.Sprintf("ImageType(%d)", int(t))
	}
}

// ParseImageType maps a configured type name to an ImageType. Matching is a
// case-insensitive prefix match so "Tumor", "tumors" and "Vessels" all
// resolve.
func ParseImageType(name string) (ImageType, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.HasPrefix(lower, "tumor"):
		return Tumor, nil
	case strings.HasPrefix(lower, "vessel"):
		return Vessel, nil
	default:
		return 0, fmt.Errorf("unrecognized image type name: %q", name)
	}
}

// Measurement is one named scalar recorded against a channel.
type Measurement struct {
	Name  string
	Value float64
}

var nextChannelSeq uint64

// Channel is one typed image channel. Threshold and Mask are populated by the
// segment/threshold operations; measurements accumulate append-only.
type Channel struct {
	ID    string
	Name  string
	Color string

	imageType ImageType
	source    *substrate.Mat

	Threshold *float64
	Mask      *substrate.Mat

	measurements []Measurement
	byName       map[string]int
}

// New binds a source substrate to a typed channel. The channel takes
// exclusive ownership of the substrate.
func New(name, color string, imageType ImageType, source *substrate.Mat) *Channel {
	seq := atomic.AddUint64(&nextChannelSeq, 1)
	return &Channel{
		ID:        fmt.Sprintf("%s-%d", imageType, seq),
		Name:      name,
		Color:     color,
		imageType: imageType,
		source:    source,
		byName:    make(map[string]int),
	}
}

func (c *Channel) Type() ImageType { return c.imageType }

func (c *Channel) Source() *substrate.Mat { return c.source }

// SetThreshold records the threshold level chosen for this channel.
func (c *Channel) SetThreshold(value float64) {
	v := value
	c.Threshold = &v
}

// SetMask installs a derived mask, closing any previous one.
func (c *Channel) SetMask(mask *substrate.Mat) {
	if c.Mask != nil {
		c.Mask.Close()
	}
	c.Mask = mask
}

// Record appends a measurement. A metric name may be recorded once per run,
// and its family must match the channel type: vessel channels carry only
// vesselDiameter metrics, tumor channels only circularity and grey-level
// metrics.
func (c *Channel) Record(name string, value float64) error {
	if !metricAllowed(c.imageType, name) {
		return fmt.Errorf("metric %q not permitted on %s channel %s", name, c.imageType, c.ID)
	}
	if _, exists := c.byName[name]; exists {
		return fmt.Errorf("metric %q already recorded on channel %s", name, c.ID)
	}

	c.byName[name] = len(c.measurements)
	c.measurements = append(c.measurements, Measurement{Name: name, Value: value})
	return nil
}

// Measurements returns the recorded metrics in recording order.
func (c *Channel) Measurements() []Measurement {
	out := make([]Measurement, len(c.measurements))
	copy(out, c.measurements)
	return out
}

// Measurement looks up one metric by name.
func (c *Channel) Measurement(name string) (float64, bool) {
	idx, ok := c.byName[name]
	if !ok {
		return 0, false
	}
	return c.measurements[idx].Value, true
}

// ClearMeasurements drops recorded metrics and derived state so the channel
// can participate in a fresh run.
func (c *Channel) ClearMeasurements() {
	c.measurements = nil
	c.byName = make(map[string]int)
	c.Threshold = nil
	if c.Mask != nil {
		c.Mask.Close()
		c.Mask = nil
	}
}

// Replace retires this channel and returns a new one of the requested type
// carrying the same substrate. This is the only supported way to change a
// channel's type: the type tag on a live channel never mutates.
func (c *Channel) Replace(newType ImageType, newName string) (*Channel, error) {
	if c.source == nil || !c.source.IsValid() {
		return nil, fmt.Errorf("cannot replace channel %s: source substrate is gone", c.ID)
	}

	source := c.source
	c.source = nil
	c.ClearMeasurements()

	return New(newName, c.Color, newType, source), nil
}

// Close releases the substrate and mask.
func (c *Channel) Close() {
	if c.Mask != nil {
		c.Mask.Close()
		c.Mask = nil
	}
	if c.source != nil {
		c.source.Close()
		c.source = nil
	}
}

func metricAllowed(t ImageType, name string) bool {
	switch t {
	case Vessel:
		return strings.HasPrefix(name, "vesselDiameter")
	case Tumor:
		return name == "circularity" || strings.HasPrefix(name, "meanGreyLevel")
	default:
		return false
	}
}
