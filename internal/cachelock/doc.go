// SPDX-License-Identifier: MPL-2.0

// Package cachelock serializes writers of the shared artifact and relocation
// caches. On Linux each cache path is guarded by an exclusive flock on a
// sibling ".lock" file, so concurrent boots of different processes never
// interleave writes to the same artifact. Elsewhere the lock degrades to an
// in-process mutex keyed by path.
package cachelock
