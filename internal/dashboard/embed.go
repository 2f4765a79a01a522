// ABOUTME: Embeds the dashboard HTML templates into the binary.
// ABOUTME: Pages are parsed once against base.html when the dashboard is built.

package dashboard

import "embed"

//go:embed templates/*.html
var templateFS embed.FS
