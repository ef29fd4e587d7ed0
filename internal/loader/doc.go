// SPDX-License-Identifier: MPL-2.0

// Package loader materializes one declared module at a time: ensure the
// artifact is cached and valid, relocate it, register it with the isolation
// space, wake the hooks of internal modules, and invoke the entry hooks its
// manifest declares.
//
// Every failure is reported as a *ModuleError naming the module and the step
// that failed. Whether an optional module's failure aborts the caller is
// decided by the FailurePolicy; base modules always fail hard.
package loader
