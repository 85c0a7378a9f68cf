package paths

import (
	"path/filepath"
	"strings"
)

// RelPathCheck returns the relative path if the path is within the base path.
func RelPathCheck(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return ""
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}

	return rel
}

// ObjectKey appends a host relative path to an object key prefix using "/"
// separators regardless of the host OS. The prefix is kept literally, object
// keys are not cleaned.
func ObjectKey(prefix, rel string) string {
	rel = filepath.ToSlash(rel)

	switch {
	case prefix == "":
		return rel
	case strings.HasSuffix(prefix, "/"):
		return prefix + rel
	default:
		return prefix + "/" + rel
	}
}

// LocalTarget returns the local path for key under root. The second result is
// false when the key would resolve outside of root.
func LocalTarget(root, key string) (string, bool) {
	target := filepath.Join(root, filepath.FromSlash(key))

	rel := RelPathCheck(root, target)
	if rel == "" || rel == "." {
		return "", false
	}

	return target, true
}
