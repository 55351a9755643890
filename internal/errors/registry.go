package errors

import "sort"

// Template defines a registered error type.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Configuration Errors (E120-E149)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The project configuration could not be read or parsed.",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Unsupported configuration format",
		Detail:   "Configuration files must be JSON (.json) or YAML (.yaml, .yml).",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or names an unknown option.",
	},
	"E141": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No appcore.json or appcore.yaml was found in the project directory or its parents.",
	},

	// ============================================
	// Template Errors (E150-E169)
	// ============================================

	"E150": {
		Category: CategoryTemplate,
		Message:  "Template parse error",
		Detail:   "A page template is not a valid html/template document.",
	},
	"E151": {
		Category: CategoryTemplate,
		Message:  "Unknown page directive",
		Detail:   "Directives on the first line of a page template must start with + or -.",
	},
	"E152": {
		Category: CategoryTemplate,
		Message:  "Template directory not found",
		Detail:   "The configured template directory does not exist.",
	},

	"E153": {
		Category: CategoryTemplate,
		Message:  "Invalid asset manifest",
		Detail:   "The asset manifest could not be read or is not a JSON object of strings.",
	},

	// ============================================
	// Server Errors (E170-E189)
	// ============================================

	"E170": {
		Category: CategoryServer,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error.",
	},
	"E171": {
		Category: CategoryServer,
		Message:  "State backend unavailable",
		Detail:   "The configured state store could not be reached.",
	},
	"E172": {
		Category: CategoryServer,
		Message:  "Template store unavailable",
		Detail:   "Templates could not be loaded from the configured S3 bucket.",
	},
}

// Codes returns all registered error codes in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for an error code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
