// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by package tests: must-style file
// helpers, in-memory archive builders, a fake repository server and a
// deterministic clock.
package testutil
