package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type FileInfo struct {
	Path  string
	Mtime int64
	Size  int64
}

// skipDirs are never descended into when expanding a directory.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
}

// Files expands paths into regular files. Files are returned as given;
// directories are walked recursively, skipping hidden entries, and their
// files are returned in lexical order. A path that does not exist is an
// error.
func Files(paths []string) ([]FileInfo, error) {
	var files []FileInfo
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, FileInfo{Path: p, Mtime: info.ModTime().Unix(), Size: info.Size()})
			continue
		}
		df, err := walkDir(p)
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
		files = append(files, df...)
	}
	return files, nil
}

func walkDir(root string) ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		base := filepath.Base(path)
		if info.IsDir() {
			if path != root && (strings.HasPrefix(base, ".") || skipDirs[base]) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(base, ".") || !info.Mode().IsRegular() {
			return nil
		}
		files = append(files, FileInfo{
			Path:  path,
			Mtime: info.ModTime().Unix(),
			Size:  info.Size(),
		})
		return nil
	})
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, err
}
