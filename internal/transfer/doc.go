// SPDX-License-Identifier: MPL-2.0

// Package transfer materializes module artifacts in the local library
// directory. An Ensurer checks the cached artifact against its SHA-1 sidecar
// and only touches the network when the cached copy is missing, invalid, or a
// forced refresh is requested. Downloads stream into a temp file beside the
// target and are renamed into place, then re-validated once.
//
// Repository locations select a Source by URL scheme: http and https use
// HTTPSource, s3 uses S3Source (AWS S3 or any S3-compatible store such as
// MinIO), and file uses FileSource for local mirrors.
package transfer
