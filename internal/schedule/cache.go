package schedule

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Cache manages fetched schedule payloads on disk so the service can come
// back up with the last known schedule when the source is unreachable.
type Cache struct {
	dir      string
	maxFiles int
}

// NewCache creates a Cache that stores files in dir and keeps at most maxFiles.
func NewCache(dir string, maxFiles int) *Cache {
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &Cache{
		dir:      dir,
		maxFiles: maxFiles,
	}
}

// Write saves a raw schedule payload to a timestamped file and prunes old
// files beyond maxFiles. ext is the payload extension ("json" or "yaml").
func (c *Cache) Write(data []byte, ext string, ts time.Time) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	filename := fmt.Sprintf("schedule_%d.%s", ts.Unix(), ext)
	path := filepath.Join(c.dir, filename)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	return c.prune()
}

// LoadLatest reads the newest cached payload by the timestamp in its
// filename. Returns the data, its format, the fetch timestamp, and any error.
func (c *Cache) LoadLatest() ([]byte, Format, time.Time, error) {
	files, err := c.listFiles()
	if err != nil {
		return nil, FormatJSON, time.Time{}, err
	}

	if len(files) == 0 {
		return nil, FormatJSON, time.Time{}, fmt.Errorf("no cached schedules found")
	}

	// Files are sorted oldest first; take the last one.
	latest := files[len(files)-1]
	data, err := os.ReadFile(filepath.Join(c.dir, latest.name))
	if err != nil {
		return nil, FormatJSON, time.Time{}, fmt.Errorf("reading cache file: %w", err)
	}

	return data, DetectFormat(latest.name), latest.ts, nil
}

type cacheFile struct {
	name string
	ts   time.Time
}

func (c *Cache) listFiles() ([]cacheFile, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing cache dir: %w", err)
	}

	var files []cacheFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "schedule_") {
			continue
		}
		base := strings.TrimPrefix(name, "schedule_")
		if i := strings.IndexByte(base, '.'); i > 0 {
			base = base[:i]
		}
		unix, err := strconv.ParseInt(base, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, cacheFile{name: name, ts: time.Unix(unix, 0)})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ts.Before(files[j].ts)
	})

	return files, nil
}

func (c *Cache) prune() error {
	files, err := c.listFiles()
	if err != nil {
		return err
	}

	if len(files) <= c.maxFiles {
		return nil
	}

	toRemove := files[:len(files)-c.maxFiles]
	for _, f := range toRemove {
		path := filepath.Join(c.dir, f.name)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("pruning cache file %s: %w", f.name, err)
		}
	}

	return nil
}
