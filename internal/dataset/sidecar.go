package dataset

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/datascry/scry/internal/model"
)

// sidecarEntry caches one parsed sidecar document.
type sidecarEntry struct {
	exists  bool
	sidecar *model.Sidecar
	err     error
}

// SidecarResolution is the outcome of resolving a data file's sidecar
// through inheritance. Sources lists the sidecar paths that contributed,
// dataset-root first. Err records a read or parse failure at ErrPath; a
// failed level contributes nothing but does not abort resolution of the
// other level.
type SidecarResolution struct {
	Sidecar *model.Sidecar
	Sources []string
	Err     error
	ErrPath string
}

// ResolveSidecar resolves the effective sidecar for a data file. The
// dataset-root sidecar (task-<task>_<suffix>.json at the root) supplies
// defaults; a file-specific sidecar next to the data file overrides
// field-by-field. Returns a nil Sidecar when neither level exists.
func (ds *Dataset) ResolveSidecar(f *DataFile) SidecarResolution {
	var res SidecarResolution

	var rootSC, fileSC *model.Sidecar

	if f.Entities.Task != "" && f.Entities.Suffix != "" {
		rootPath := fmt.Sprintf("task-%s_%s.json", f.Entities.Task, f.Entities.Suffix)
		entry := ds.loadSidecar(rootPath)
		if entry.exists {
			if entry.err != nil {
				res.Err = entry.err
				res.ErrPath = rootPath
			} else {
				rootSC = entry.sidecar
				res.Sources = append(res.Sources, rootPath)
			}
		}
	}

	filePath := strings.TrimSuffix(f.Path, path.Ext(f.Path)) + ".json"
	entry := ds.loadSidecar(filePath)
	if entry.exists {
		if entry.err != nil {
			res.Err = entry.err
			res.ErrPath = filePath
		} else {
			fileSC = entry.sidecar
			res.Sources = append(res.Sources, filePath)
		}
	}

	res.Sidecar = model.MergeSidecars(rootSC, fileSC)
	return res
}

// loadSidecar reads and parses a sidecar at a root-relative path, caching
// the result for the run.
func (ds *Dataset) loadSidecar(relPath string) *sidecarEntry {
	if entry, ok := ds.cars[relPath]; ok {
		return entry
	}

	entry := &sidecarEntry{}
	ds.cars[relPath] = entry

	abs := filepath.Join(ds.Root, filepath.FromSlash(relPath))
	data, err := os.ReadFile(abs)
	if os.IsNotExist(err) {
		return entry
	}
	entry.exists = true
	if err != nil {
		entry.err = err
		return entry
	}

	sc, err := model.ParseSidecar(data, ds.reg.Sections)
	if err != nil {
		entry.err = err
		return entry
	}
	entry.sidecar = sc
	return entry
}
