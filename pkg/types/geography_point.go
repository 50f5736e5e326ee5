package types

import (
	"database/sql/driver"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	wkbPoint   = 1
	ewkbSRID   = 0x20000000
	sridWGS84  = 4326
	pointBytes = 16
)

var errNotPoint = errors.New("geography: not a point")

// GeographyPoint is a WGS84 coordinate stored in a PostGIS geography(Point)
// column. SQLite test databases store the EWKT text form.
type GeographyPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (g GeographyPoint) Validate() error {
	if math.IsNaN(g.Lat) || g.Lat < -90 || g.Lat > 90 {
		return fmt.Errorf("latitude %v out of range", g.Lat)
	}
	if math.IsNaN(g.Lng) || g.Lng < -180 || g.Lng > 180 {
		return fmt.Errorf("longitude %v out of range", g.Lng)
	}
	return nil
}

// Value writes EWKT. WKT orders coordinates as (lng lat).
func (g GeographyPoint) Value() (driver.Value, error) {
	return "SRID=4326;POINT(" + formatCoord(g.Lng) + " " + formatCoord(g.Lat) + ")", nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Scan accepts EWKT/WKT text, raw (E)WKB, and the hex encoded EWKB that
// PostGIS returns for geography columns over the text protocol.
func (g *GeographyPoint) Scan(value any) error {
	var (
		p   GeographyPoint
		err error
	)
	switch v := value.(type) {
	case nil:
		*g = GeographyPoint{}
		return nil
	case string:
		p, err = parseGeographyText(v)
	case []byte:
		if looksLikeText(v) {
			p, err = parseGeographyText(string(v))
		} else {
			p, err = parseWKB(v)
		}
	default:
		return fmt.Errorf("geography: unsupported scan type %T", value)
	}
	if err != nil {
		return err
	}
	*g = p
	return nil
}

func looksLikeText(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return len(b) > 0
}

func parseGeographyText(raw string) (GeographyPoint, error) {
	raw = strings.TrimSpace(raw)
	if isHex(raw) {
		b, err := hex.DecodeString(raw)
		if err != nil {
			return GeographyPoint{}, fmt.Errorf("geography: hex: %w", err)
		}
		return parseWKB(b)
	}

	if strings.HasPrefix(strings.ToUpper(raw), "SRID=") {
		_, rest, ok := strings.Cut(raw, ";")
		if !ok {
			return GeographyPoint{}, fmt.Errorf("geography: malformed EWKT %q", raw)
		}
		raw = strings.TrimSpace(rest)
	}

	upper := strings.ToUpper(raw)
	if !strings.HasPrefix(upper, "POINT") {
		return GeographyPoint{}, errNotPoint
	}
	lp, rp := strings.IndexByte(raw, '('), strings.LastIndexByte(raw, ')')
	if lp < 0 || rp < lp {
		return GeographyPoint{}, fmt.Errorf("geography: malformed WKT %q", raw)
	}
	coords := strings.Fields(raw[lp+1 : rp])
	if len(coords) != 2 {
		return GeographyPoint{}, fmt.Errorf("geography: expected 2 coordinates, got %d", len(coords))
	}

	lng, err := strconv.ParseFloat(coords[0], 64)
	if err != nil {
		return GeographyPoint{}, fmt.Errorf("geography: longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(coords[1], 64)
	if err != nil {
		return GeographyPoint{}, fmt.Errorf("geography: latitude: %w", err)
	}
	return GeographyPoint{Lat: lat, Lng: lng}, nil
}

func isHex(s string) bool {
	if len(s) < 2*(1+4+pointBytes) || len(s)%2 != 0 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

// parseWKB reads a 2D point in WKB or PostGIS EWKB form.
func parseWKB(b []byte) (GeographyPoint, error) {
	if len(b) < 5 {
		return GeographyPoint{}, errors.New("geography: wkb too short")
	}

	var order binary.ByteOrder
	switch b[0] {
	case 0:
		order = binary.BigEndian
	case 1:
		order = binary.LittleEndian
	default:
		return GeographyPoint{}, fmt.Errorf("geography: invalid byte order %d", b[0])
	}

	kind := order.Uint32(b[1:5])
	b = b[5:]
	if kind&ewkbSRID != 0 {
		if len(b) < 4 {
			return GeographyPoint{}, errors.New("geography: ewkb missing srid")
		}
		if srid := order.Uint32(b[:4]); srid != sridWGS84 {
			return GeographyPoint{}, fmt.Errorf("geography: unexpected srid %d", srid)
		}
		b = b[4:]
		kind &^= ewkbSRID
	}
	if kind != wkbPoint {
		return GeographyPoint{}, errNotPoint
	}
	if len(b) < pointBytes {
		return GeographyPoint{}, errors.New("geography: wkb too short")
	}
	return GeographyPoint{
		Lng: math.Float64frombits(order.Uint64(b[0:8])),
		Lat: math.Float64frombits(order.Uint64(b[8:16])),
	}, nil
}
