package manager

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EncodeScalar encodes a typed scalar in little-endian byte order, the
// layout kernels read through their scalar references.
func EncodeScalar(typ string, value json.Number) ([]byte, error) {
	s := value.String()
	switch strings.ToLower(typ) {
	case "i8", "i16", "i32", "i64":
		bits := scalarBits(typ)
		v, err := strconv.ParseInt(s, 10, bits)
		if err != nil {
			return nil, invalidRequestError{msg: fmt.Sprintf("scalar %s: %v", typ, err)}
		}
		return putUint(uint64(v), bits/8), nil
	case "u8", "u16", "u32", "u64":
		bits := scalarBits(typ)
		v, err := strconv.ParseUint(s, 10, bits)
		if err != nil {
			return nil, invalidRequestError{msg: fmt.Sprintf("scalar %s: %v", typ, err)}
		}
		return putUint(v, bits/8), nil
	case "bool":
		switch s {
		case "0", "false":
			return []byte{0}, nil
		case "1", "true":
			return []byte{1}, nil
		}
		return nil, invalidRequestError{msg: fmt.Sprintf("scalar bool: invalid value %q", s)}
	case "f32":
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, invalidRequestError{msg: fmt.Sprintf("scalar f32: %v", err)}
		}
		return binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(f))), nil
	case "f64":
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, invalidRequestError{msg: fmt.Sprintf("scalar f64: %v", err)}
		}
		return binary.LittleEndian.AppendUint64(nil, math.Float64bits(f)), nil
	default:
		return nil, invalidRequestError{msg: fmt.Sprintf("unknown scalar type %q", typ)}
	}
}

func scalarBits(typ string) int {
	n, _ := strconv.Atoi(typ[1:])
	return n
}

func putUint(v uint64, size int) []byte {
	b := binary.LittleEndian.AppendUint64(nil, v)
	return b[:size]
}
