package permissions

import (
	"path/filepath"

	"github.com/karrick/godirwalk"

	"github.com/projecteru2/cocoond/utils"
)

var _ FileOps = OSFileOps{}

// OSFileOps is the FileOps of the local filesystem. Symbolic links are
// reported as entries but never followed.
type OSFileOps struct{}

func (OSFileOps) Exists(path string) bool { return utils.FileExists(path) }
func (OSFileOps) IsDir(path string) bool  { return utils.IsDir(path) }

// Descendants walks the whole tree before returning, so callers may change
// modes of the listed entries without disturbing the traversal.
func (OSFileOps) Descendants(path string) ([]string, error) {
	root := filepath.Clean(path)
	var entries []string
	err := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(p string, _ *godirwalk.Dirent) error {
			if p != root {
				entries = append(entries, p)
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
