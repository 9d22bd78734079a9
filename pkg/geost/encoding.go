package geost

import (
	"bytes"
	"encoding/binary"
)

// Key prefixes for the row tables in Badger. Single-byte prefixes keep keys
// compact and make each table one contiguous prefix scan.
const (
	PrefixZ3     byte = 'z' // point rows with time: z|period|z3|id -> feature
	PrefixZ2     byte = 'g' // point rows without time: g|z2|id -> feature
	PrefixXZ2    byte = 'x' // extent rows: x|xz2|id -> feature
	PrefixAttr   byte = 'a' // attribute index: a|name|0x00|value|0x00|id -> feature
	PrefixID     byte = 'f' // id index: f|id -> feature
	PrefixSchema byte = 's' // schema metadata: s|name -> schema JSON
)

// Fixed header sizes.
const (
	PeriodIDSize = 2
	CurveSize    = 8
	Z3HeaderSize = 1 + PeriodIDSize + CurveSize // prefix + period + curve index
	Z2HeaderSize = 1 + CurveSize                // prefix + curve index
)

// EncodeZ3Key writes a Z3 row key: prefix, sign-biased period id and curve
// index big-endian, then the raw feature id. Biasing the period's sign bit
// keeps pre-1970 periods sorting before later ones under unsigned byte
// comparison, the same trick the key layout needs for any signed field.
//
// buf must hold at least Z3HeaderSize+len(id) bytes. Returns bytes written.
func EncodeZ3Key(buf []byte, period int16, z uint64, id string) int {
	buf[0] = PrefixZ3
	binary.BigEndian.PutUint16(buf[1:3], uint16(period)^0x8000)
	binary.BigEndian.PutUint64(buf[3:11], z)
	copy(buf[Z3HeaderSize:], id)
	return Z3HeaderSize + len(id)
}

// DecodeZ3Key extracts the period, curve index and feature id from a Z3 key.
func DecodeZ3Key(key []byte) (period int16, z uint64, id string) {
	period = int16(binary.BigEndian.Uint16(key[1:3]) ^ 0x8000)
	z = binary.BigEndian.Uint64(key[3:11])
	id = string(key[Z3HeaderSize:])
	return period, z, id
}

// EncodeCurveKey writes a Z2 or XZ2 row key: prefix, curve index big-endian,
// raw feature id. buf must hold at least Z2HeaderSize+len(id) bytes.
func EncodeCurveKey(buf []byte, prefix byte, z uint64, id string) int {
	buf[0] = prefix
	binary.BigEndian.PutUint64(buf[1:9], z)
	copy(buf[Z2HeaderSize:], id)
	return Z2HeaderSize + len(id)
}

// DecodeCurveKey extracts the curve index and feature id from a Z2/XZ2 key.
func DecodeCurveKey(key []byte) (z uint64, id string) {
	z = binary.BigEndian.Uint64(key[1:9])
	id = string(key[Z2HeaderSize:])
	return z, id
}

// EncodeAttrKey builds an attribute index key. The 0x00 separators never
// occur in attribute names or values, which keeps (name, value, id) ordering
// aligned with byte ordering.
func EncodeAttrKey(name, value, id string) []byte {
	key := make([]byte, 0, 1+len(name)+1+len(value)+1+len(id))
	key = append(key, PrefixAttr)
	key = append(key, name...)
	key = append(key, 0)
	key = append(key, value...)
	key = append(key, 0)
	key = append(key, id...)
	return key
}

// AttrKeyPrefix builds the prefix shared by every row of one attribute, or,
// with a value bound, every row of one attribute value.
func AttrKeyPrefix(name string) []byte {
	key := make([]byte, 0, 1+len(name)+1)
	key = append(key, PrefixAttr)
	key = append(key, name...)
	key = append(key, 0)
	return key
}

// DecodeAttrKey splits an attribute index key back into its fields.
func DecodeAttrKey(key []byte) (name, value, id string, ok bool) {
	rest := key[1:]
	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		return "", "", "", false
	}
	name = string(rest[:i])
	rest = rest[i+1:]
	j := bytes.IndexByte(rest, 0)
	if j < 0 {
		return "", "", "", false
	}
	return name, string(rest[:j]), string(rest[j+1:]), true
}

// EncodeIDKey builds an id index key.
func EncodeIDKey(id string) []byte {
	key := make([]byte, 0, 1+len(id))
	key = append(key, PrefixID)
	key = append(key, id...)
	return key
}

// EncodeSchemaKey builds the schema metadata key.
func EncodeSchemaKey(name string) []byte {
	key := make([]byte, 0, 1+len(name))
	key = append(key, PrefixSchema)
	key = append(key, name...)
	return key
}

// KeySuccessor returns the smallest key greater than every key having k as a
// prefix, for use as an exclusive scan upper bound. Nil means unbounded (k
// was empty or all 0xff).
func KeySuccessor(k []byte) []byte {
	out := append([]byte(nil), k...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xff {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}
