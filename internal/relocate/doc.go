// SPDX-License-Identifier: MPL-2.0

// Package relocate rewrites symbol namespaces inside module archives so that
// several copies of one library can coexist in a process under different
// namespaces.
//
// A rewritten archive is cached at <cache>/<base>-<digest[:8]>.jar, where the
// digest covers the source file name, the ordered rule set, and the pinned
// runtime versions (see package artifact for the encoding). Identical inputs
// therefore map to the same path and the rewrite runs once. Output is built
// from a private snapshot of the source and published with an atomic rename,
// so an interrupted rewrite never leaves a file at the final path.
package relocate
