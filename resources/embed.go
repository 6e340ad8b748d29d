// Package resources ships the prototypes, audio manifest and maps the server
// loads by default.
package resources

import "embed"

//go:embed prototypes audio maps
var FS embed.FS
