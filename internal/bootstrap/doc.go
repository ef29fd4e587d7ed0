// SPDX-License-Identifier: MPL-2.0

// Package bootstrap drives a whole boot: the base libraries are loaded twice
// (once plain so the relocator's own dependencies are usable, once relocated
// under the final isolation policy), followed by the analysis modules. When
// the project version is not "skip" a second phase loads the runtime
// environment module, checks that the companion runtime resolves, and loads
// the utility, common and optional modules. Both phases are timed and
// summarized in a Report.
package bootstrap
