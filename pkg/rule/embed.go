package rule

import "embed"

// builtinRulesFS embeds the built-in issuer table.
//
//go:embed rules/*.yml
var builtinRulesFS embed.FS
