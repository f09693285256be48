package schema

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

// GeoJSON stored by the document store is always WGS84.
const geometrySRID = 4326

// WKBType is the Arrow extension type for Geometry columns.
// Values are stored as WKB in a Binary column ("geoarrow.wkb"), which the
// DuckDB spatial extension reads natively.
type WKBType struct {
	arrow.ExtensionBase
}

// NewWKBType creates a WKB geometry extension type.
func NewWKBType() *WKBType {
	return &WKBType{ExtensionBase: arrow.ExtensionBase{Storage: arrow.BinaryTypes.Binary}}
}

// WKBArray is the array of a WKBType column; Storage() holds the WKB bytes.
type WKBArray struct {
	array.ExtensionArrayBase
}

func (*WKBType) ArrayType() reflect.Type {
	return reflect.TypeOf(WKBArray{})
}

func (*WKBType) ExtensionName() string {
	return "geoarrow.wkb"
}

func (*WKBType) String() string {
	return "extension<geoarrow.wkb>"
}

func (*WKBType) Serialize() string {
	return ""
}

func (*WKBType) Deserialize(storageType arrow.DataType, _ string) (arrow.ExtensionType, error) {
	if !arrow.TypeEqual(storageType, arrow.BinaryTypes.Binary) {
		return nil, fmt.Errorf("invalid storage type for geometry: %s", storageType)
	}
	return NewWKBType(), nil
}

func (w *WKBType) ExtensionEquals(other arrow.ExtensionType) bool {
	o, ok := other.(*WKBType)
	return ok && arrow.TypeEqual(w.StorageType(), o.StorageType())
}

type geometryCRS struct {
	ID struct {
		Authority string `json:"authority"`
		Code      int    `json:"code"`
	} `json:"id"`
}

// geometryField builds the Arrow field of a Geometry column with CRS metadata.
func geometryField(name string, nullable bool) arrow.Field {
	ext := NewWKBType()

	var crs geometryCRS
	crs.ID.Authority = "EPSG"
	crs.ID.Code = geometrySRID
	meta, _ := json.Marshal(map[string]any{
		"crs":      crs,
		"encoding": "WKB",
	})

	return arrow.Field{
		Name:     name,
		Type:     ext,
		Nullable: nullable,
		Metadata: arrow.MetadataFrom(map[string]string{
			"ARROW:extension:name":     ext.ExtensionName(),
			"ARROW:extension:metadata": string(meta),
			"srid":                     fmt.Sprintf("%d", geometrySRID),
		}),
	}
}

// EncodeWKB converts a geometry into WKB bytes.
func EncodeWKB(g orb.Geometry) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("cannot encode nil geometry")
	}
	return wkb.Marshal(g)
}

// DecodeWKB parses WKB bytes.
func DecodeWKB(b []byte) (orb.Geometry, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("cannot decode empty WKB data")
	}
	return wkb.Unmarshal(b)
}

func init() {
	_ = arrow.RegisterExtensionType(NewWKBType())
}
