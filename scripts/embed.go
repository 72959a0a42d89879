// Package scripts embeds the built-in Risor rules scripts. A built-in is
// selected with --rules-script builtin:<name>.
package scripts

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed rules/*.risor
var FS embed.FS

// BuiltinPrefix marks a rules script name that refers to FS.
const BuiltinPrefix = "builtin:"

// Path returns the FS path of a built-in rules script and whether the
// reference used the builtin: prefix.
func Path(ref string) (string, bool) {
	name, ok := strings.CutPrefix(ref, BuiltinPrefix)
	if !ok {
		return "", false
	}
	return path.Join("rules", name+".risor"), true
}

// Names lists the built-in rules scripts.
func Names() []string {
	entries, err := fs.ReadDir(FS, "rules")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".risor"))
	}
	sort.Strings(names)
	return names
}
