// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	classMagic = 0xCAFEBABE
	// classHeaderLen covers magic, minor and major version, and the
	// constant pool count.
	classHeaderLen = 10
)

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

var errTruncatedClass = errors.New("truncated class file")

// isClassFile reports whether data starts with the class file magic.
func isClassFile(data []byte) bool {
	return len(data) >= 4 && binary.BigEndian.Uint32(data) == classMagic
}

// rewriteClass relocates the Utf8 constants of a class file and rewrites
// their length prefixes. Everything after the constant pool only refers to
// constants by index and is copied unchanged.
func (rw *rewriter) rewriteClass(data []byte) ([]byte, bool, error) {
	if len(data) < classHeaderLen {
		return nil, false, errTruncatedClass
	}
	count := int(binary.BigEndian.Uint16(data[8:classHeaderLen]))

	out := make([]byte, 0, len(data)+64)
	out = append(out, data[:classHeaderLen]...)
	pos := classHeaderLen
	changed := false

	for idx := 1; idx < count; idx++ {
		if pos >= len(data) {
			return nil, false, errTruncatedClass
		}
		tag := data[pos]
		if tag == tagUtf8 {
			if pos+3 > len(data) {
				return nil, false, errTruncatedClass
			}
			end := pos + 3 + int(binary.BigEndian.Uint16(data[pos+1:pos+3]))
			if end > len(data) {
				return nil, false, errTruncatedClass
			}
			value, ok := rw.relocate(data[pos+3 : end])
			if len(value) > math.MaxUint16 {
				return nil, false, fmt.Errorf("constant %d exceeds %d bytes after relocation", idx, math.MaxUint16)
			}
			changed = changed || ok
			out = append(out, tagUtf8)
			out = binary.BigEndian.AppendUint16(out, uint16(len(value)))
			out = append(out, value...)
			pos = end
			continue
		}

		var size int
		switch tag {
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			size = 3
		case tagMethodHandle:
			size = 4
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref,
			tagNameAndType, tagDynamic, tagInvokeDynamic:
			size = 5
		case tagLong, tagDouble:
			// Eight-byte constants take two pool slots.
			size = 9
			idx++
		default:
			return nil, false, fmt.Errorf("unknown constant pool tag %d at index %d", tag, idx)
		}
		if pos+size > len(data) {
			return nil, false, errTruncatedClass
		}
		out = append(out, data[pos:pos+size]...)
		pos += size
	}

	out = append(out, data[pos:]...)
	return out, changed, nil
}
