package types

import (
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// GeographyPoint is a WGS84 coordinate stored as a PostGIS geography point.
type GeographyPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks the coordinate is inside the WGS84 range.
func (g GeographyPoint) Validate() error {
	if math.IsNaN(g.Lat) || g.Lat < -90 || g.Lat > 90 {
		return fmt.Errorf("latitude %v out of range", g.Lat)
	}
	if math.IsNaN(g.Lng) || g.Lng < -180 || g.Lng > 180 {
		return fmt.Errorf("longitude %v out of range", g.Lng)
	}
	return nil
}

// Value encodes the point as EWKT so Postgres can cast it to geography.
// sqlite stores the same text verbatim.
func (g GeographyPoint) Value() (driver.Value, error) {
	return "SRID=4326;POINT(" + formatCoord(g.Lng) + " " + formatCoord(g.Lat) + ")", nil
}

// Scan accepts WKT, EWKT or WKB.
func (g *GeographyPoint) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*g = GeographyPoint{}
		return nil
	case string:
		return g.parseText(v)
	case []byte:
		if looksLikeText(v) {
			return g.parseText(string(v))
		}
		return g.parseWKB(v)
	default:
		return fmt.Errorf("geography: unsupported scan type %T", value)
	}
}

func looksLikeText(raw []byte) bool {
	upper := strings.ToUpper(strings.TrimSpace(string(raw)))
	return strings.HasPrefix(upper, "SRID=") || strings.HasPrefix(upper, "POINT")
}

func (g *GeographyPoint) parseText(raw string) error {
	raw = strings.TrimSpace(raw)
	if _, rest, ok := strings.Cut(raw, ";"); ok && strings.HasPrefix(strings.ToUpper(raw), "SRID=") {
		raw = strings.TrimSpace(rest)
	}

	upper := strings.ToUpper(raw)
	if !strings.HasPrefix(upper, "POINT(") || !strings.HasSuffix(raw, ")") {
		return fmt.Errorf("geography: unsupported text %q", raw)
	}

	fields := strings.Fields(raw[len("POINT(") : len(raw)-1])
	if len(fields) != 2 {
		return fmt.Errorf("geography: unexpected point %q", raw)
	}

	lng, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("geography: parse longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return fmt.Errorf("geography: parse latitude: %w", err)
	}

	g.Lat, g.Lng = lat, lng
	return nil
}

// parseWKB reads a 2D point, with or without the EWKB SRID flag.
func (g *GeographyPoint) parseWKB(raw []byte) error {
	if len(raw) < 21 {
		return fmt.Errorf("geography: wkb too short")
	}

	var order binary.ByteOrder
	switch raw[0] {
	case 0:
		order = binary.BigEndian
	case 1:
		order = binary.LittleEndian
	default:
		return fmt.Errorf("geography: invalid byte order %d", raw[0])
	}

	const sridFlag = 0x20000000
	geomType := order.Uint32(raw[1:5])
	offset := 5
	if geomType&sridFlag != 0 {
		geomType &^= sridFlag
		offset += 4
	}
	if geomType != 1 {
		return fmt.Errorf("geography: unexpected geometry type %d", geomType)
	}
	if len(raw) < offset+16 {
		return fmt.Errorf("geography: wkb too short")
	}

	g.Lng = math.Float64frombits(order.Uint64(raw[offset : offset+8]))
	g.Lat = math.Float64frombits(order.Uint64(raw[offset+8 : offset+16]))
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
