// Package fsops implements the filesystem request kinds:
// read/write/append, directory listing and creation, remove, copy, rename,
// exists, and metadata.
package fsops

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/outpost-dev/outpost/internal/proto"
)

func ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func AppendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

func DirCreate(path string, all bool) error {
	if all {
		return os.MkdirAll(path, 0o755)
	}
	return os.Mkdir(path, 0o755)
}

func Remove(path string, force bool) error {
	if force {
		return os.RemoveAll(path)
	}
	fi, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return os.Remove(path) // non-force: refuse non-empty dirs via plain Remove
	}
	return os.Remove(path)
}

func Copy(src, dst string) error {
	fi, err := os.Stat(src)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return copyDir(src, dst, fi.Mode())
	}
	return copyFile(src, dst, fi.Mode())
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func copyDir(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(dst, mode); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		s := filepath.Join(src, e.Name())
		d := filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := copyDir(s, d, mode); err != nil {
				return err
			}
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return err
		}
		if err := copyFile(s, d, fi.Mode()); err != nil {
			return err
		}
	}
	return nil
}

func Rename(src, dst string) error {
	return os.Rename(src, dst)
}

func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Metadata stats path and, if requested, canonicalizes it and resolves
// symlink targets' underlying file type.
func Metadata(params proto.MetadataParams) (proto.MetadataPayload, error) {
	fi, err := os.Lstat(params.Path)
	if err != nil {
		return proto.MetadataPayload{}, err
	}

	fileType := classify(fi)
	if fileType == "symlink" && params.ResolveFileType {
		if target, err := os.Stat(params.Path); err == nil {
			fileType = classify(target)
		}
	}

	out := proto.MetadataPayload{
		FileType:     fileType,
		Len:          uint64(fi.Size()),
		Readonly:     fi.Mode().Perm()&0o200 == 0,
		ModifiedUnix: fi.ModTime().Unix(),
	}
	if params.Canonicalize {
		if abs, err := filepath.Abs(params.Path); err == nil {
			if real, err := filepath.EvalSymlinks(abs); err == nil {
				out.CanonicalizedPath = real
			}
		}
	}
	return out, nil
}

func classify(fi os.FileInfo) string {
	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		return "symlink"
	case fi.IsDir():
		return "dir"
	default:
		return "file"
	}
}

// DirRead lists the contents of path up to depth levels deep (default 1).
func DirRead(params proto.DirReadParams) proto.DirEntriesPayload {
	depth := params.NormalizedDepth()
	var entries []proto.DirEntry
	var errs []string

	root := params.Path
	var walk func(dir string, rel string, level int)
	walk = func(dir, rel string, level int) {
		list, err := os.ReadDir(dir)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", dir, err))
			return
		}
		for _, e := range list {
			childRel := e.Name()
			if rel != "" {
				childRel = rel + "/" + e.Name()
			}
			fullPath := childRel
			if params.Absolute {
				if abs, err := filepath.Abs(filepath.Join(dir, e.Name())); err == nil {
					fullPath = abs
				}
			}
			if params.Canonicalize {
				if real, err := filepath.EvalSymlinks(filepath.Join(dir, e.Name())); err == nil {
					fullPath = real
				}
			}

			info, err := e.Info()
			ftype := "file"
			if err == nil {
				ftype = classify(info)
			}
			entries = append(entries, proto.DirEntry{
				Path:     fullPath,
				FileType: ftype,
				Depth:    level,
			})
			if e.IsDir() && level < depth {
				walk(filepath.Join(dir, e.Name()), childRel, level+1)
			}
		}
	}

	if params.IncludeRoot {
		if fi, err := os.Stat(root); err == nil {
			entries = append(entries, proto.DirEntry{Path: ".", FileType: classify(fi), Depth: 0})
		}
	}
	walk(root, "", 1)

	return proto.DirEntriesPayload{Entries: entries, Errors: errs}
}

// MainSeparator reports the OS path separator for system-info.
func MainSeparator() string {
	return string(filepath.Separator)
}
