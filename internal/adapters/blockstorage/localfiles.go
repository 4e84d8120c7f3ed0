package blockstorage

import (
	"os"
	"path/filepath"
)

type localFile struct {
	fullPath string
	relPath  string
}

// listLocalFiles walks dir and returns every regular file beneath it, with
// paths relative to dir so they map directly onto S3 key suffixes.
func listLocalFiles(dir string) ([]localFile, error) {
	var files []localFile
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, localFile{fullPath: p, relPath: rel})
		return nil
	})
	return files, err
}

func readLocalFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
