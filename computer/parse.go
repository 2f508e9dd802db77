package computer

import (
	"encoding/json"
	"math"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Parameter names accepted for each field, in lookup order. The provider
// sends snake_case under "action"; older templates used "type" and
// camelCase drag coordinates.
var (
	kindKeys       = []string{"action", "type"}
	coordinateKeys = []string{"coordinate"}
	dragStartKeys  = []string{"start_coordinate", "startCoordinate"}
	dragEndKeys    = []string{"end_coordinate", "endCoordinate", "coordinate"}
	directionKeys  = []string{"scroll_direction", "direction"}
	amountKeys     = []string{"scroll_amount", "amount"}
	regionKeys     = []string{"region", "coordinate"}
)

type params map[string]json.RawMessage

// ParseAction decodes tool call arguments into an Action. Missing or
// ill-typed parameters fall back to defaults; arguments that are not a JSON
// object yield Unknown{}.
func ParseAction(args json.RawMessage) Action {
	var p params
	if len(args) == 0 {
		return Unknown{}
	}
	if err := codec.Unmarshal(args, &p); err != nil || p == nil {
		return Unknown{}
	}

	kind := p.str(kindKeys, "")
	switch kind {
	case "screenshot":
		return Screenshot{}
	case "left_click":
		return Click{Button: ButtonLeft, At: p.coordinate(coordinateKeys)}
	case "right_click":
		return Click{Button: ButtonRight, At: p.coordinate(coordinateKeys)}
	case "double_click":
		return Click{Button: ButtonDouble, At: p.coordinate(coordinateKeys)}
	case "type":
		return TypeText{Text: p.str([]string{"text"}, "")}
	case "key":
		return KeyPress{Key: p.key()}
	case "mouse_move":
		return MouseMove{To: p.coordinate(coordinateKeys)}
	case "scroll":
		return Scroll{
			Direction: p.str(directionKeys, "down"),
			Amount:    p.integer(amountKeys, 1),
		}
	case "drag", "left_click_drag":
		return Drag{From: p.coordinate(dragStartKeys), To: p.coordinate(dragEndKeys)}
	case "zoom":
		return Zoom{Region: p.region(regionKeys)}
	default:
		return Unknown{Name: kind}
	}
}

// key reads the key name, which the provider sends under "text" and older
// templates under "key".
func (p params) key() string {
	if k := p.str([]string{"key"}, ""); k != "" {
		return k
	}
	return p.str([]string{"text"}, "")
}

func (p params) str(keys []string, def string) string {
	for _, k := range keys {
		raw, ok := p[k]
		if !ok {
			continue
		}
		var s string
		if codec.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	return def
}

func (p params) integer(keys []string, def int) int {
	for _, k := range keys {
		raw, ok := p[k]
		if !ok {
			continue
		}
		var f float64
		if codec.Unmarshal(raw, &f) == nil && !math.IsNaN(f) {
			return int(f)
		}
	}
	return def
}

func (p params) numbers(keys []string, n int) ([]int, bool) {
	for _, k := range keys {
		raw, ok := p[k]
		if !ok {
			continue
		}
		var fs []float64
		if codec.Unmarshal(raw, &fs) != nil || len(fs) != n {
			continue
		}
		out := make([]int, n)
		for i, f := range fs {
			out[i] = int(f)
		}
		return out, true
	}
	return nil, false
}

func (p params) coordinate(keys []string) Coordinate {
	if v, ok := p.numbers(keys, 2); ok {
		return Coordinate{X: v[0], Y: v[1]}
	}
	return Coordinate{}
}

func (p params) region(keys []string) Region {
	if v, ok := p.numbers(keys, 4); ok {
		return Region{X0: v[0], Y0: v[1], X1: v[2], Y1: v[3]}
	}
	return DefaultZoomRegion
}
