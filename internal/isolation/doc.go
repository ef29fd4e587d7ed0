// SPDX-License-Identifier: MPL-2.0

// Package isolation provides the loading space modules are registered into.
//
// A Space has two boundaries. The host boundary is shared with the embedding
// process; everything merged into it is visible to every lookup. The private
// boundary is created on first use and holds isolated modules; lookups made
// from it consult private units first and fall back to the host, while host
// lookups never see private units. Inside one boundary the first registered
// definition of a unit wins, which is exactly the collision isolation exists
// to avoid.
//
// A Space lives for the whole process. It is constructed once and injected
// into the components that need it; Close releases the archives it holds.
package isolation
