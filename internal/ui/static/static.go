// Package static embeds the dashboard's assets.
package static

import "embed"

//go:embed dashboard.css
var FS embed.FS
