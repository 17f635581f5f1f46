package main

import _ "embed"

// embeddedConfig holds the YAML configuration embedded at build time.
// Packaging scripts may overwrite embed_config.yaml with site defaults
// before compiling.
//
//go:embed embed_config.yaml
var embeddedConfig []byte
