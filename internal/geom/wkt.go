package geom

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// WKT encoding for the geometry columns of the spatial store. Only the two
// shapes the schema uses are supported: POINT and LINESTRING (optionally
// with a Z ordinate on input, which is dropped).

// MarshalWKT renders the LineString as a 2D WKT literal.
func MarshalWKT(l LineString) string {
	if len(l) == 0 {
		return "LINESTRING EMPTY"
	}
	var sb strings.Builder
	sb.WriteString("LINESTRING(")
	for i, p := range l {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(formatOrdinate(p.X))
		sb.WriteByte(' ')
		sb.WriteString(formatOrdinate(p.Y))
	}
	sb.WriteByte(')')
	return sb.String()
}

// MarshalPointWKT renders a point as a WKT literal.
func MarshalPointWKT(p Point) string {
	return "POINT(" + formatOrdinate(p.X) + " " + formatOrdinate(p.Y) + ")"
}

func formatOrdinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseWKT parses a LINESTRING literal (with or without Z/M ordinates) into
// a 2D LineString; extra ordinates are dropped. Any other geometry tag,
// POINT included, returns ErrInvalidGeometry.
func ParseWKT(s string) (LineString, error) {
	body, err := wktBody(s, "LINESTRING")
	if err != nil {
		return nil, err
	}
	if body == "" {
		return nil, fmt.Errorf("%w: empty linestring", ErrInvalidGeometry)
	}
	coords := strings.Split(body, ",")
	out := make(LineString, 0, len(coords))
	for _, c := range coords {
		fields := strings.Fields(strings.TrimSpace(c))
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: malformed coordinate %q", ErrInvalidGeometry, c)
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		p := Point{X: x, Y: y}
		if n := len(out); n > 0 && out[n-1].Equal(p) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ParsePointWKT parses a POINT literal.
func ParsePointWKT(s string) (Point, error) {
	body, err := wktBody(s, "POINT")
	if err != nil {
		return Point{}, err
	}
	fields := strings.Fields(body)
	if len(fields) < 2 {
		return Point{}, fmt.Errorf("%w: malformed point %q", ErrInvalidGeometry, s)
	}
	x, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	y, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	return Point{X: x, Y: y}, nil
}

// wktBody strips the tag (with an optional Z/M modifier) and the outer
// parentheses, returning the coordinate list.
func wktBody(s, tag string) (string, error) {
	t := strings.TrimSpace(s)
	upper := strings.ToUpper(t)
	if !strings.HasPrefix(upper, tag) {
		return "", fmt.Errorf("%w: expected %s, got %q", ErrInvalidGeometry, tag, s)
	}
	rest := strings.TrimSpace(t[len(tag):])
	for _, mod := range []string{"ZM", "Z", "M"} {
		if strings.HasPrefix(strings.ToUpper(rest), mod+" ") ||
			strings.HasPrefix(strings.ToUpper(rest), mod+"(") {
			rest = strings.TrimSpace(rest[len(mod):])
			break
		}
	}
	if strings.EqualFold(rest, "EMPTY") {
		return "", nil
	}
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return "", fmt.Errorf("%w: malformed %s body %q", ErrInvalidGeometry, tag, s)
	}
	return strings.TrimSpace(rest[1 : len(rest)-1]), nil
}

// Value implements driver.Valuer so LineString columns persist as WKT text.
func (l LineString) Value() (driver.Value, error) {
	return MarshalWKT(l), nil
}

// Scan implements sql.Scanner for WKT text columns.
func (l *LineString) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		parsed, err := ParseWKT(v)
		if err != nil {
			return err
		}
		*l = parsed
		return nil
	case []byte:
		parsed, err := ParseWKT(string(v))
		if err != nil {
			return err
		}
		*l = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into geom.LineString", src)
	}
}

// Value implements driver.Valuer so Point columns persist as WKT text.
func (p Point) Value() (driver.Value, error) {
	return MarshalPointWKT(p), nil
}

// Scan implements sql.Scanner for WKT point columns.
func (p *Point) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = Point{}
		return nil
	case string:
		parsed, err := ParsePointWKT(v)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	case []byte:
		parsed, err := ParsePointWKT(string(v))
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into geom.Point", src)
	}
}
