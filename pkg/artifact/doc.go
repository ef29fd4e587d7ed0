// SPDX-License-Identifier: MPL-2.0

// Package artifact defines the data model shared by the bootstrap pipeline.
//
// It covers:
//   - [Coordinate]: identity of one fetchable module (repository, group, name, version)
//   - [Layout]: deterministic path and URL templating for artifacts and their sidecars
//   - [Rule] and [RuleSet]: ordered relocation rules and their canonical digest
//   - [Manifest]: entry-hook declarations embedded inside an artifact
//   - unit naming for archive entries ([UnitName], [EntryName])
//
// # Cache path contract
//
// The digest of a rule set is computed over a canonical, delimiter-safe
// encoding so that independent implementations agree on relocated cache
// paths. For each rule, in order, the encoder writes
//
//	len(From) ":" From len(To) ":" To ";"
//
// after the header line "modboot-rules/v1\n". Extra pins (the artifact file
// name, pinned runtime versions) follow as len ":" pin ";". The SHA-256 of
// the resulting bytes, lowercase hex, is the digest.
package artifact
