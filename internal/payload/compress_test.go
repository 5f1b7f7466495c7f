package payload

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTripWhenDisabled(t *testing.T) {
	raw := bytes.Repeat([]byte("x"), 1024)
	out, compressed := Encode(raw, false)
	if compressed {
		t.Fatal("Encode with enable=false reported compressed=true")
	}
	if !bytes.Equal(out, raw) {
		t.Fatal("Encode with enable=false must return the input unchanged")
	}
	decoded, err := Decode(out, compressed)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded, raw) {
		t.Fatal("Decode did not reproduce the original bytes")
	}
}

func TestEncodeSkipsSmallPayloads(t *testing.T) {
	raw := []byte("short")
	out, compressed := Encode(raw, true)
	if compressed {
		t.Fatal("Encode should not compress a payload under MinCompressSize")
	}
	if !bytes.Equal(out, raw) {
		t.Fatal("Encode must return small payloads unchanged")
	}
}

func TestEncodeCompressesLargePayloads(t *testing.T) {
	raw := []byte(strings.Repeat("a", MinCompressSize+100))
	out, compressed := Encode(raw, true)
	if !compressed {
		t.Fatal("Encode should compress a payload at or above MinCompressSize")
	}

	decoded, err := Decode(out, compressed)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded, raw) {
		t.Fatal("Decode did not reproduce the original bytes after compression")
	}
}
