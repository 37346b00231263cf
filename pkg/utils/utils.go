package utils

import (
	"strings"
)

var filenameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"\x00", "",
)

// SanitizeFilename turns a page title into something safe to use as a single
// path element.
func SanitizeFilename(name string) string {
	name = filenameReplacer.Replace(strings.TrimSpace(name))
	name = strings.Trim(name, ". ")
	return name
}

// EnsureExtension appends ext unless name already ends with it.
func EnsureExtension(name, ext string) string {
	if strings.HasSuffix(name, ext) {
		return name
	}
	return name + ext
}
