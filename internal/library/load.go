package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/datascry/scry/internal/model"
)

// LoadDir compiles every CUE template document under dir into an ordered
// library. Files load in sorted name order; templates within a file keep
// declaration order.
func LoadDir(dir string) (*model.Library, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("template library: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template library: %s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("template library: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".cue") {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("template library: no CUE files in %s", dir)
	}
	sort.Strings(files)

	lib := &model.Library{}
	ctx := cuecontext.New()
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("template library: %w", err)
		}
		templates, err := compileTemplates(ctx, data, name)
		if err != nil {
			return nil, err
		}
		lib.Templates = append(lib.Templates, templates...)
	}

	seen := make(map[string]bool, len(lib.Templates))
	for _, tpl := range lib.Templates {
		if seen[tpl.Key] {
			return nil, fmt.Errorf("template library: duplicate template key %q", tpl.Key)
		}
		seen[tpl.Key] = true
	}

	return lib, nil
}

// compileTemplates parses one CUE document's template struct.
func compileTemplates(ctx *cue.Context, data []byte, filename string) ([]model.Template, error) {
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	root := v.LookupPath(cue.ParsePath("template"))
	if !root.Exists() {
		return nil, fmt.Errorf("%s: document has no top-level template struct", filename)
	}

	iter, err := root.Fields()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	var templates []model.Template
	for iter.Next() {
		tpl, err := compileTemplate(iter.Label(), iter.Value())
		if err != nil {
			return nil, fmt.Errorf("%s: template %q: %w", filename, iter.Label(), err)
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}

// compileTemplate parses one template definition. Items share the sidecar
// item shape, so they decode through the model's JSON unmarshaler.
func compileTemplate(key string, v cue.Value) (model.Template, error) {
	tpl := model.Template{Key: key}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return tpl, fmt.Errorf("name is required")
	}
	name, err := nameVal.String()
	if err != nil {
		return tpl, err
	}
	tpl.Name = name

	if cit := v.LookupPath(cue.ParsePath("citation")); cit.Exists() {
		if tpl.Citation, err = cit.String(); err != nil {
			return tpl, err
		}
	}
	if lic := v.LookupPath(cue.ParsePath("license")); lic.Exists() {
		if tpl.License, err = lic.String(); err != nil {
			return tpl, err
		}
	}

	itemsVal := v.LookupPath(cue.ParsePath("items"))
	if !itemsVal.Exists() {
		return tpl, fmt.Errorf("items are required")
	}
	itemsJSON, err := itemsVal.MarshalJSON()
	if err != nil {
		return tpl, err
	}
	if err := json.Unmarshal(itemsJSON, &tpl.Items); err != nil {
		return tpl, err
	}
	if len(tpl.Items) == 0 {
		return tpl, fmt.Errorf("items are required")
	}

	return tpl, nil
}
