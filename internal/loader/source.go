package loader

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is one document inside a source
type Entry struct {
	Path string // Slash-separated path, relative for directories and archives
	open func() (io.ReadCloser, error)
}

// Read returns the entry's full content
func (e Entry) Read() ([]byte, error) {
	rc, err := e.open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// Source is a uniform view over the supported input shapes: a zip archive,
// a directory, or a single file.
type Source interface {
	// Entries lists document entries in stable lexicographic path order.
	Entries() ([]Entry, error)
}

// ResolveSource maps an input path to the matching source variant.
// Returns *NotFoundError when the path does not exist.
func ResolveSource(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("stat input: %w", err)
	}

	if info.IsDir() {
		return &DirectorySource{Root: path}, nil
	}
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return &ArchiveSource{Path: path}, nil
	}
	return &FileSource{Path: path}, nil
}

// ArchiveSource reads entries from a zip archive in memory, without
// extracting to disk.
type ArchiveSource struct {
	Path string
}

// Entries lists the archive's file entries in lexicographic order
func (s *ArchiveSource) Entries() ([]Entry, error) {
	r, err := zip.OpenReader(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", s.Path, err)
	}

	var entries []Entry
	for _, f := range r.File {
		if f.FileInfo().IsDir() || isHidden(f.Name) {
			continue
		}
		file := f
		entries = append(entries, Entry{
			Path: file.Name,
			open: func() (io.ReadCloser, error) { return file.Open() },
		})
	}

	// Readers stay open for the lifetime of the entries; zip.OpenReader
	// holds the file handle until the process exits, which is acceptable
	// for a single batch run.
	sortEntries(entries)
	return entries, nil
}

// DirectorySource walks a directory recursively
type DirectorySource struct {
	Root string
}

// Entries lists regular files under the root in lexicographic order
func (s *DirectorySource) Entries() ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.Root && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(s.Root, path)
		if err != nil {
			return err
		}
		abs := path
		entries = append(entries, Entry{
			Path: filepath.ToSlash(rel),
			open: func() (io.ReadCloser, error) { return os.Open(abs) },
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.Root, err)
	}

	sortEntries(entries)
	return entries, nil
}

// FileSource wraps a single document
type FileSource struct {
	Path string
}

// Entries returns the single file as one entry
func (s *FileSource) Entries() ([]Entry, error) {
	path := s.Path
	return []Entry{{
		Path: filepath.ToSlash(filepath.Base(path)),
		open: func() (io.ReadCloser, error) { return os.Open(path) },
	}}, nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
}

func isHidden(name string) bool {
	base := filepath.Base(filepath.ToSlash(name))
	return strings.HasPrefix(base, ".")
}
