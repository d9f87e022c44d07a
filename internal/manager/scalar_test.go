package manager

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestEncodeScalar(t *testing.T) {
	cases := []struct {
		typ, val string
		want     []byte
	}{
		{"i8", "-1", []byte{0xff}},
		{"u16", "513", []byte{0x01, 0x02}},
		{"i32", "640", []byte{0x80, 0x02, 0, 0}},
		{"I32", "-2", []byte{0xfe, 0xff, 0xff, 0xff}},
		{"u64", "1", []byte{1, 0, 0, 0, 0, 0, 0, 0}},
		{"f32", "1", []byte{0, 0, 0x80, 0x3f}},
		{"f64", "2", []byte{0, 0, 0, 0, 0, 0, 0, 0x40}},
		{"bool", "1", []byte{1}},
	}
	for _, c := range cases {
		got, err := EncodeScalar(c.typ, json.Number(c.val))
		if err != nil {
			t.Fatalf("%s(%s): %v", c.typ, c.val, err)
		}
		if !bytes.Equal(got, c.want) {
			t.Fatalf("%s(%s) = %x, want %x", c.typ, c.val, got, c.want)
		}
	}
}

func TestEncodeScalarRejects(t *testing.T) {
	for _, c := range [][2]string{{"i8", "300"}, {"u8", "-1"}, {"i32", "1.5"}, {"bool", "2"}, {"c64", "1"}} {
		if _, err := EncodeScalar(c[0], json.Number(c[1])); !IsInvalidRequest(err) {
			t.Fatalf("%s(%s): expected invalid request, got %v", c[0], c[1], err)
		}
	}
}
