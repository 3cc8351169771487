package skill

import "strings"

const (
	idSeparator  = ":"
	dirSeparator = "--"
)

// ID builds the composite identity "<sourceID>:<name>".
func ID(sourceID, name string) string {
	return sourceID + idSeparator + name
}

// SplitID returns the source id and local name of an id.
func SplitID(id string) (sourceID, name string, ok bool) {
	sourceID, name, ok = strings.Cut(id, idSeparator)
	if !ok || sourceID == "" || name == "" {
		return "", "", false
	}
	return sourceID, name, true
}

// SafeDirName maps an id to a filesystem-safe directory name.
func SafeDirName(id string) string {
	return strings.ReplaceAll(id, idSeparator, dirSeparator)
}

// IDFromDirName inverts SafeDirName. Source ids never contain "--", so the
// first separator always marks the namespace boundary.
func IDFromDirName(dir string) (string, bool) {
	sourceID, name, ok := strings.Cut(dir, dirSeparator)
	if !ok || sourceID == "" || name == "" {
		return "", false
	}
	return ID(sourceID, name), true
}

// ValidSourceID reports whether id can be used as a namespace.
func ValidSourceID(id string) bool {
	return id != "" && !strings.Contains(id, idSeparator) && !strings.Contains(id, dirSeparator) &&
		!strings.ContainsAny(id, `/\ `)
}
