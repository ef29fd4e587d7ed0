// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"modboot/pkg/artifact"
)

const serviceDir = "META-INF/services/"

// rewriter applies a rule set to entry names and entry contents.
type rewriter struct {
	rules artifact.RuleSet
	pairs []symbolPair
}

// symbolPair is one spelling of a rule: dotted or slashed.
type symbolPair struct {
	from, to []byte
}

func newRewriter(rules artifact.RuleSet) *rewriter {
	pairs := make([]symbolPair, 0, len(rules)*2)
	for _, r := range rules {
		pairs = append(pairs, symbolPair{from: []byte(r.From), to: []byte(r.To)})
		if r.SlashFrom() != r.From {
			pairs = append(pairs, symbolPair{from: []byte(r.SlashFrom()), to: []byte(r.SlashTo())})
		}
	}
	return &rewriter{rules: rules, pairs: pairs}
}

// relocate rewrites every symbol in data that starts with a rule's From,
// the same prefix match Apply performs on entry names. Matches are only
// tried where a symbol begins. The scan is a single left-to-right pass in
// which the first rule wins and replaced text is never matched again. data
// is returned as is when nothing matched.
func (rw *rewriter) relocate(data []byte) ([]byte, bool) {
	var out []byte
	last := 0
	for i := 0; i < len(data); i++ {
		if !symbolStart(data, i) {
			continue
		}
		for _, p := range rw.pairs {
			if !bytes.HasPrefix(data[i:], p.from) {
				continue
			}
			if out == nil {
				out = make([]byte, 0, len(data)+len(p.to))
			}
			out = append(out, data[last:i]...)
			out = append(out, p.to...)
			last = i + len(p.from)
			i = last - 1
			break
		}
	}
	if out == nil {
		return data, false
	}
	out = append(out, data[last:]...)
	return out, !bytes.Equal(out, data)
}

// symbolStart reports whether a qualified name can begin at data[i]: at the
// start of data, after a byte that cannot be part of a name, or after the
// 'L' of a type descriptor ("Lorg/example/Foo;", "(ILorg/example/Foo;)V").
func symbolStart(data []byte, i int) bool {
	if i == 0 || !isSymbolByte(data[i-1]) {
		return true
	}
	if data[i-1] != 'L' {
		return false
	}
	j := i - 2
	for j >= 0 && isDescriptorPrefix(data[j]) {
		j--
	}
	return j < 0 || !isSymbolByte(data[j])
}

// isSymbolByte reports whether c can appear inside a qualified name.
func isSymbolByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '$', c == '.', c == '/', c >= 0x80:
		return true
	default:
		return false
	}
}

// isDescriptorPrefix reports whether c is a primitive type or array marker
// that may precede an object type inside a descriptor.
func isDescriptorPrefix(c byte) bool {
	return strings.IndexByte("BCDFIJSZ[", c) >= 0
}

// entryName relocates an entry path. Service registrations are named after
// the dotted service type, so their base name is relocated as well.
func (rw *rewriter) entryName(name string) string {
	if rest, ok := strings.CutPrefix(name, serviceDir); ok && rest != "" && !strings.Contains(rest, "/") {
		return serviceDir + rw.rules.Apply(rest)
	}
	return rw.rules.Apply(name)
}

// rewriteArchive streams every entry of zr into w with relocated names and
// contents. It returns the number of entries whose name or content changed.
func (rw *rewriter) rewriteArchive(ctx context.Context, zr *zip.Reader, w io.Writer) (changed int, err error) {
	zw := zip.NewWriter(w)
	seen := make(map[string]string, len(zr.File))

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		name := rw.entryName(f.Name)
		if prev, dup := seen[name]; dup {
			return 0, fmt.Errorf("entries %q and %q both relocate to %q", prev, f.Name, name)
		}
		seen[name] = f.Name

		hdr := &zip.FileHeader{
			Name:     name,
			Comment:  f.Comment,
			Method:   f.Method,
			Modified: f.Modified,
		}
		hdr.SetMode(f.Mode())

		out, err := zw.CreateHeader(hdr)
		if err != nil {
			return 0, fmt.Errorf("creating entry %s: %w", name, err)
		}
		if name != f.Name {
			changed++
		}
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}

		modified, err := rw.copyEntry(f, out)
		if err != nil {
			return 0, err
		}
		if modified && name == f.Name {
			changed++
		}
	}

	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finalizing archive: %w", err)
	}
	return changed, nil
}

func (rw *rewriter) copyEntry(f *zip.File, out io.Writer) (bool, error) {
	rc, err := f.Open()
	if err != nil {
		return false, fmt.Errorf("opening entry %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }() // read-only entry reader

	data, err := io.ReadAll(rc)
	if err != nil {
		return false, fmt.Errorf("reading entry %s: %w", f.Name, err)
	}

	var (
		relocated []byte
		changed   bool
	)
	if artifact.IsUnitEntry(f.Name) && isClassFile(data) {
		relocated, changed, err = rw.rewriteClass(data)
		if err != nil {
			return false, fmt.Errorf("entry %s: %w", f.Name, err)
		}
	} else {
		relocated, changed = rw.relocate(data)
	}
	if _, err := out.Write(relocated); err != nil {
		return false, fmt.Errorf("writing entry %s: %w", path.Clean(f.Name), err)
	}
	return changed, nil
}
