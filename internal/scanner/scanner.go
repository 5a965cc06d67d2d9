// Package scanner walks a course directory and reads text documents.
package scanner

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/verte-zerg/revise/internal/model"
)

// ErrBinaryContent marks a file that does not hold readable text.
var ErrBinaryContent = errors.New("scanner: binary content")

// Extensions lists the file types read as plain text.
var Extensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// Scan returns every text document under root, sorted by path. Files that
// cannot be read are still returned with ExtractErr set.
func Scan(root string) ([]model.Document, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat courses dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("courses path is not a directory: %s", root)
	}
	var docs []model.Document
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		name := d.Name()
		if path != root && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !Extensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		doc := model.Document{
			Path:     filepath.ToSlash(rel),
			Filename: name,
			Module:   DetectModule(rel),
		}
		doc.Content, doc.ExtractErr = readText(path)
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	head := data
	if len(head) > 8000 {
		head = head[:8000]
	}
	if bytes.IndexByte(head, 0) >= 0 || !utf8.Valid(data) {
		return "", ErrBinaryContent
	}
	return string(data), nil
}

// DetectModule finds a module code in the path: an AA01 or AE03 style prefix,
// a module* folder, or an M<digit> folder. It returns "" when none matches.
func DetectModule(path string) string {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) >= 4 {
			prefix := strings.ToUpper(part[:2])
			if prefix == "AA" || prefix == "AE" {
				if fields := strings.Fields(part); len(fields) > 1 {
					return fields[0]
				}
				return part[:4]
			}
		}
		if strings.HasPrefix(strings.ToLower(part), "module") {
			return part
		}
		if len(part) >= 2 && (part[0] == 'M' || part[0] == 'm') && part[1] >= '0' && part[1] <= '9' {
			return part
		}
	}
	return ""
}
