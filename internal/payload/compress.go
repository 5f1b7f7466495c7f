// Package payload provides optional snappy compression for entity bytes
// written into the WAL (the main file is never compressed), grounded on
// Felmond13-novusdb/storage/pager.go's use of klauspost/compress/snappy for
// on-disk record compression. TQDB applies the same idea at the level of a
// single serialized entity rather than a whole page.
package payload

import "github.com/klauspost/compress/snappy"

// MinCompressSize is the smallest payload snappy is bothered with; below
// it the framing overhead of compression (a length-delimited block plus a
// flag byte) is not worth paying.
const MinCompressSize = 256

// Encode returns (possibly compressed) bytes and whether compression was
// applied. When enable is false or raw is smaller than MinCompressSize,
// raw is returned unchanged.
func Encode(raw []byte, enable bool) (out []byte, compressed bool) {
	if !enable || len(raw) < MinCompressSize {
		return raw, false
	}
	return snappy.Encode(nil, raw), true
}

// Decode reverses Encode given the flag recorded alongside the bytes.
func Decode(data []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return data, nil
	}
	return snappy.Decode(nil, data)
}
