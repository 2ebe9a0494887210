package kvcache

import (
	"crypto/sha1"
	"fmt"
	"os"
	"path/filepath"
)

// DiskStorage keeps one file per key under a base directory. It is the
// persistent backend of the cache between command invocations.
//
// Keys are hashed into file names so any key string is safe on any filesystem.
// The quota is enforced on the sum of file sizes at write time.
type DiskStorage struct {
	dir string
	max int64
}

// NewDiskStorage opens (creating if needed) a disk storage rooted at dir.
// maxBytes of 0 means unlimited.
func NewDiskStorage(dir string, maxBytes int64) (*DiskStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache directory %q: %w", dir, err)
	}
	return &DiskStorage{dir: dir, max: maxBytes}, nil
}

// file returns the path of the file holding a key. The original key is kept as
// a header line inside the file so Keys() can report it back.
func (d *DiskStorage) file(key string) string {
	return filepath.Join(d.dir, fmt.Sprintf("%x", sha1.Sum([]byte(key))))
}

func (d *DiskStorage) Get(key string) (string, bool) {
	content, err := os.ReadFile(d.file(key))
	if err != nil {
		return "", false
	}
	_, value, ok := splitRecord(string(content))
	if !ok {
		return "", false
	}
	return value, true
}

func (d *DiskStorage) Set(key, value string) error {
	record := key + "\n" + value

	if d.max > 0 {
		used := d.UsedBytes()
		if info, err := os.Stat(d.file(key)); err == nil {
			used -= info.Size()
		}
		if used+int64(len(record)) > d.max {
			return ErrQuotaExceeded
		}
	}

	if err := os.WriteFile(d.file(key), []byte(record), 0o644); err != nil {
		return fmt.Errorf("cannot write cache entry %q: %w", key, err)
	}
	return nil
}

func (d *DiskStorage) Delete(key string) {
	_ = os.Remove(d.file(key))
}

func (d *DiskStorage) Keys() []string {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(d.dir, e.Name()))
		if err != nil {
			continue
		}
		if key, _, ok := splitRecord(string(content)); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

func (d *DiskStorage) UsedBytes() int64 {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return 0
	}
	var used int64
	for _, e := range entries {
		if info, err := e.Info(); err == nil && !e.IsDir() {
			used += info.Size()
		}
	}
	return used
}

func (d *DiskStorage) MaxBytes() int64 { return d.max }

// splitRecord splits a stored file into its key header and value.
func splitRecord(content string) (key, value string, ok bool) {
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			return content[:i], content[i+1:], true
		}
	}
	return "", "", false
}
