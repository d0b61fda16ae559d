package forwarder

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// TranslationsEntry is the name of the translation map in the default bundle.
const TranslationsEntry = "translations.json"

// Bundle zips the configuration sent to the remote after a 412. With a directory, its
// files are sent as they are; otherwise a minimal bundle carries the translation map.
func Bundle(dir string, translations map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if dir != "" {
		if err := addDir(zw, dir); err != nil {
			return nil, err
		}
	} else {
		w, err := zw.Create(TranslationsEntry)
		if err != nil {
			return nil, err
		}
		if translations == nil {
			translations = map[string]string{}
		}
		if err := json.NewEncoder(w).Encode(translations); err != nil {
			return nil, fmt.Errorf("encode translations: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close bundle: %w", err)
	}
	return buf.Bytes(), nil
}

func addDir(zw *zip.Writer, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(w, f); err != nil {
			return fmt.Errorf("add %s: %w", rel, err)
		}
		return nil
	})
}
