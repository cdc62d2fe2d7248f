package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// datasetExts are the file extensions Resolve recognizes as datasets
// inside an archive, in preference order.
var datasetExts = []string{".csv", ".xlsx", ".shp"}

// extractDataset extracts a zip archive into destDir and returns the path
// of the dataset file it contains. Companion files (a shapefile's .dbf
// and .shx) are extracted alongside it.
func extractDataset(zipPath, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: open archive")
	}
	defer func() { _ = r.Close() }()

	var extracted []string
	for _, f := range r.File {
		p, err := extractEntry(f, destDir)
		if err != nil {
			return "", err
		}
		if p != "" {
			extracted = append(extracted, p)
		}
	}

	for _, ext := range datasetExts {
		for _, p := range extracted {
			if strings.EqualFold(filepath.Ext(p), ext) {
				return p, nil
			}
		}
	}
	return "", eris.Errorf("fetcher: no dataset file in %s (looked for %v)", zipPath, datasetExts)
}

// extractEntry writes a single archive entry under destDir, refusing
// paths that escape it. Returns the file path, empty for directories.
func extractEntry(f *zip.File, destDir string) (string, error) {
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("fetcher: illegal archive path %q", f.Name)
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0o755); err != nil {
			return "", eris.Wrap(err, "fetcher: create directory")
		}
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "fetcher: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "fetcher: open archive entry")
	}
	defer func() { _ = rc.Close() }()

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: create file")
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "fetcher: write file")
	}
	return destPath, nil
}
