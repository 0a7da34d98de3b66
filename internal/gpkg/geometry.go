package gpkg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/wkb"
)

// SRS identifiers defined by every GeoPackage.
const (
	SRSUndefinedCartesian  int32 = -1
	SRSUndefinedGeographic int32 = 0
	SRSWGS84               int32 = 4326
)

// Header flag bits.
const (
	flagLittleEndian  = 0x01
	flagEnvelopeXY    = 0x02 // envelope indicator 1: minx, maxx, miny, maxy
	flagEnvelopeMask  = 0x0E
	flagEmptyGeometry = 0x10
)

// ErrBadBlob is returned for bytes that are not a GeoPackage geometry blob.
var ErrBadBlob = errors.New("gpkg: invalid geometry blob")

// envelopeSizes maps the envelope indicator to the envelope length in bytes.
var envelopeSizes = map[byte]int{0: 0, 1: 32, 2: 48, 3: 48, 4: 64}

// EncodeGeometry builds a GeoPackage binary geometry: the "GP" header with an
// XY envelope followed by little-endian WKB.
func EncodeGeometry(g geom.Geom, srsID int32) ([]byte, error) {
	b := g.Bounds()

	var buf bytes.Buffer
	buf.Write([]byte{'G', 'P', 0, flagLittleEndian | flagEnvelopeXY})
	_ = binary.Write(&buf, binary.LittleEndian, srsID)
	_ = binary.Write(&buf, binary.LittleEndian, [4]float64{b.Min.X, b.Max.X, b.Min.Y, b.Max.Y})
	if err := wkb.Write(&buf, binary.LittleEndian, g); err != nil {
		return nil, fmt.Errorf("encode wkb: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeGeometry parses a GeoPackage binary geometry. An empty geometry
// yields a nil Geom and no error.
func DecodeGeometry(blob []byte) (geom.Geom, int32, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, 0, ErrBadBlob
	}
	if blob[2] != 0 {
		return nil, 0, fmt.Errorf("%w: unsupported version %d", ErrBadBlob, blob[2])
	}
	flags := blob[3]

	var order binary.ByteOrder = binary.BigEndian
	if flags&flagLittleEndian != 0 {
		order = binary.LittleEndian
	}
	srsID := int32(order.Uint32(blob[4:8]))

	envSize, ok := envelopeSizes[(flags&flagEnvelopeMask)>>1]
	if !ok {
		return nil, 0, fmt.Errorf("%w: envelope indicator %d", ErrBadBlob, (flags&flagEnvelopeMask)>>1)
	}
	off := 8 + envSize
	if len(blob) < off {
		return nil, 0, fmt.Errorf("%w: truncated envelope", ErrBadBlob)
	}
	if flags&flagEmptyGeometry != 0 {
		return nil, srsID, nil
	}

	g, err := wkb.Read(bytes.NewReader(blob[off:]))
	if err != nil {
		return nil, 0, fmt.Errorf("decode wkb: %w", err)
	}
	return g, srsID, nil
}
