package place

import (
	"fmt"
	"regexp"
	"strings"
)

// formatPattern matches {name} style placeholders.
var formatPattern = regexp.MustCompile(`\{(\w+)\}`)

// applyTemplate substitutes variables into a naming template.
// Unknown placeholders are left untouched.
func applyTemplate(template string, vars map[string]any) string {
	return formatPattern.ReplaceAllStringFunc(template, func(match string) string {
		parts := formatPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		val, ok := vars[parts[1]]
		if !ok {
			return match
		}
		return fmt.Sprintf("%v", val)
	})
}

// TrailerName generates the destination filename from a naming template.
func TrailerName(template, title string, year, resolution int, ext string) string {
	return applyTemplate(template, map[string]any{
		"title":      SanitizeFilename(title),
		"year":       year,
		"resolution": resolution,
		"ext":        strings.TrimPrefix(ext, "."),
	})
}

// illegalChars are characters not allowed in filenames on common filesystems.
var illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00]`)

// multiSpace matches multiple consecutive spaces.
var multiSpace = regexp.MustCompile(`\s+`)

// multiDot matches multiple consecutive dots.
var multiDot = regexp.MustCompile(`\.{2,}`)

// SanitizeFilename removes or replaces characters that are unsafe for filenames.
// This prevents path traversal attacks and filesystem errors.
func SanitizeFilename(name string) string {
	// Remove null bytes
	name = strings.ReplaceAll(name, "\x00", "")

	// Replace path separators with space
	name = strings.ReplaceAll(name, "/", " ")
	name = strings.ReplaceAll(name, "\\", " ")

	// Replace illegal characters with space
	name = illegalChars.ReplaceAllString(name, " ")

	// Collapse multiple dots to single dot
	name = multiDot.ReplaceAllString(name, ".")

	// Collapse multiple spaces to single space
	name = multiSpace.ReplaceAllString(name, " ")

	// Trim leading/trailing whitespace and dots
	name = strings.Trim(name, " .")

	return name
}
