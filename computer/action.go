package computer

import "fmt"

// Action is one UI operation proposed by the assistant. The set of
// implementations is closed; callers switch on the concrete type and treat
// Unknown as the fallback.
type Action interface {
	// Kind returns the wire name of the action, e.g. "left_click".
	Kind() string
	isAction()
}

// Coordinate is a screen position in pixels.
type Coordinate struct {
	X int
	Y int
}

func (c Coordinate) String() string { return fmt.Sprintf("[%d, %d]", c.X, c.Y) }

// Region is a rectangle given by its two corners.
type Region struct {
	X0, Y0, X1, Y1 int
}

func (r Region) String() string { return fmt.Sprintf("[%d, %d, %d, %d]", r.X0, r.Y0, r.X1, r.Y1) }

// DefaultZoomRegion is used when a zoom action carries no usable region.
var DefaultZoomRegion = Region{X0: 0, Y0: 0, X1: 100, Y1: 100}

// Button selects the click variant.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonDouble Button = "double"
)

// Screenshot captures the display.
type Screenshot struct{}

// Click presses a mouse button at a position.
type Click struct {
	Button Button
	At     Coordinate
}

// TypeText types a string.
type TypeText struct {
	Text string
}

// KeyPress presses a key or key combination such as "ctrl+s".
type KeyPress struct {
	Key string
}

// MouseMove moves the pointer.
type MouseMove struct {
	To Coordinate
}

// Scroll scrolls the view.
type Scroll struct {
	Direction string
	Amount    int
}

// Drag presses at From and releases at To.
type Drag struct {
	From Coordinate
	To   Coordinate
}

// Zoom magnifies a region of the display.
type Zoom struct {
	Region Region
}

// Unknown is any kind this package does not recognise. Kind may be empty.
type Unknown struct {
	Name string
}

func (Screenshot) Kind() string { return "screenshot" }

func (c Click) Kind() string {
	switch c.Button {
	case ButtonRight:
		return "right_click"
	case ButtonDouble:
		return "double_click"
	default:
		return "left_click"
	}
}

func (TypeText) Kind() string  { return "type" }
func (KeyPress) Kind() string  { return "key" }
func (MouseMove) Kind() string { return "mouse_move" }
func (Scroll) Kind() string    { return "scroll" }
func (Drag) Kind() string      { return "drag" }
func (Zoom) Kind() string      { return "zoom" }
func (u Unknown) Kind() string { return u.Name }

func (Screenshot) isAction() {}
func (Click) isAction()      {}
func (TypeText) isAction()   {}
func (KeyPress) isAction()   {}
func (MouseMove) isAction()  {}
func (Scroll) isAction()     {}
func (Drag) isAction()       {}
func (Zoom) isAction()       {}
func (Unknown) isAction()    {}
