// Package config provides configuration structures and utilities for linkscan.
//
// Settings come from three layers, later ones winning: the defaults of
// NewConfig, LINKSCAN_* environment variables (optionally from a .env
// file) applied by LoadEnv, and CLI flags. Per-site cookies, headers and
// path patterns live in a YAML file (.linkscan) loaded by LoadConfigFile.
package config
