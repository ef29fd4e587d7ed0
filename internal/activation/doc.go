// SPDX-License-Identifier: MPL-2.0

// Package activation connects units named inside module archives to Go code.
//
// A module's manifest names units and a zero-argument entry method; the
// loader invokes the Activatable registered under that (unit, method) pair.
// Awakeners are registered by unit name and run when an internal module
// defining that unit is scanned, typically to register lifecycle callbacks.
// Services registered here that implement Releasable are released when the
// Disable stage fires.
//
// Compiled-in modules register themselves on Default from an init function,
// the same way database/sql drivers do.
package activation
