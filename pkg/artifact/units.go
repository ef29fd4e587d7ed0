// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"errors"
	"io/fs"
	"strings"
)

// UnitExt marks archive entries that are loadable units.
const UnitExt = ".class"

// IsUnitEntry reports whether an archive entry is a loadable unit.
func IsUnitEntry(entry string) bool {
	return strings.HasSuffix(entry, UnitExt) && !strings.HasPrefix(entry, "META-INF/")
}

// UnitName converts an archive entry ("org/example/Foo.class") into a unit
// name ("org.example.Foo").
func UnitName(entry string) string {
	return strings.ReplaceAll(strings.TrimSuffix(entry, UnitExt), "/", ".")
}

// EntryName converts a unit name into its archive entry.
func EntryName(unit string) string {
	return strings.ReplaceAll(unit, ".", "/") + UnitExt
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
