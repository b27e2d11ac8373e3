package resource

import "os"

// readLooseFile reads a loose-file entry's full contents. Extracted as its
// own function so Coordinator's lookup logic stays free of os-level
// concerns.
func readLooseFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
