// SPDX-License-Identifier: MPL-2.0

// Package config loads the boot configuration using Viper with CUE as the
// file format.
//
// Configuration is read from config.cue in the modboot configuration
// directory ($XDG_CONFIG_HOME/modboot on Linux, ~/Library/Application
// Support/modboot on macOS, %APPDATA%\modboot on Windows), or from an explicit
// path. Files are validated against the embedded #Config schema
// (config_schema.cue) before being merged over the defaults. Environment
// variables prefixed with MODBOOT_ override file values
// (MODBOOT_DEV_FORCE_DOWNLOAD=true).
package config
