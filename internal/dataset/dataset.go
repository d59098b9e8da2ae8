package dataset

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/datascry/scry/internal/schema"
)

// Description is the parsed dataset_description.json.
type Description struct {
	Name    string
	Version string
	Fields  map[string]any
}

// Participant is one row of the participants table.
type Participant struct {
	ID    string
	Attrs map[string]string
}

// DataFile is one tabular data file found under the root. NameErr records a
// filename grammar violation; a file with a NameErr still carries whatever
// entities parsed before the violation.
type DataFile struct {
	// Path is slash-separated and relative to the dataset root.
	Path     string
	Name     string
	Entities Entities
	NameErr  *NameError
}

// Dataset is the loaded, read-only view of one collection. Missing or
// unreadable pieces are recorded (RootMissing, DescriptionErr,
// ParticipantsErr) rather than failing the load, so the validation engine
// can turn them into typed issues.
type Dataset struct {
	Root string

	// RootMissing lists required root files that are absent, in registry
	// declaration order.
	RootMissing []string

	Description     *Description
	DescriptionErr  error
	Participants    []Participant
	ParticipantsErr error

	// Files holds every data file sorted by path.
	Files []*DataFile

	reg    *schema.Registry
	tables map[string]*Table
	cars   map[string]*sidecarEntry
}

// Load walks the dataset tree and builds the in-memory view. It returns an
// error only when the root directory itself does not exist or cannot be
// walked; every defect inside the tree is recorded on the Dataset.
func Load(root string, reg *schema.Registry) (*Dataset, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("dataset root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dataset root %s is not a directory", root)
	}

	ds := &Dataset{
		Root:   root,
		reg:    reg,
		tables: make(map[string]*Table),
		cars:   make(map[string]*sidecarEntry),
	}

	for _, name := range reg.RootFiles {
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			ds.RootMissing = append(ds.RootMissing, name)
		}
	}

	ds.loadDescription()
	ds.loadParticipants()

	rootFiles := make(map[string]bool, len(reg.RootFiles))
	for _, name := range reg.RootFiles {
		rootFiles[name] = true
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		name := d.Name()
		if rootFiles[rel] || strings.HasSuffix(name, ".json") {
			return nil
		}

		ents, nameErr := ParseFilename(name)
		ds.Files = append(ds.Files, &DataFile{
			Path:     rel,
			Name:     name,
			Entities: ents,
			NameErr:  nameErr,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk dataset tree: %w", err)
	}

	sort.Slice(ds.Files, func(i, j int) bool { return ds.Files[i].Path < ds.Files[j].Path })
	return ds, nil
}

// HasParticipant reports whether id appears in the participants table.
func (ds *Dataset) HasParticipant(id string) bool {
	for _, p := range ds.Participants {
		if p.ID == id {
			return true
		}
	}
	return false
}

// loadDescription reads and parses dataset_description.json if present.
func (ds *Dataset) loadDescription() {
	path := filepath.Join(ds.Root, "dataset_description.json")
	data, err := os.ReadFile(path)
	if err != nil {
		ds.DescriptionErr = err
		return
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		ds.DescriptionErr = fmt.Errorf("parse dataset_description.json: %w", err)
		return
	}

	desc := &Description{Fields: fields}
	if name, ok := fields["Name"].(string); ok {
		desc.Name = name
	}
	if version, ok := fields["DatasetVersion"].(string); ok {
		desc.Version = version
	}
	ds.Description = desc
}

// loadParticipants reads and parses participants.tsv if present.
func (ds *Dataset) loadParticipants() {
	path := filepath.Join(ds.Root, "participants.tsv")
	table, err := readTable(path)
	if err != nil {
		ds.ParticipantsErr = err
		return
	}

	idCol := -1
	for i, col := range table.Columns {
		if col == "participant_id" {
			idCol = i
			break
		}
	}
	if idCol == -1 {
		ds.ParticipantsErr = fmt.Errorf("participants.tsv has no participant_id column")
		return
	}

	for _, row := range table.Rows {
		p := Participant{Attrs: make(map[string]string)}
		for i, col := range table.Columns {
			if i >= len(row) {
				continue
			}
			if i == idCol {
				p.ID = row[i]
			} else {
				p.Attrs[col] = row[i]
			}
		}
		ds.Participants = append(ds.Participants, p)
	}
}

// ParticipantIDs returns the distinct participant identifiers referenced by
// data files, sorted. Files whose sub entity failed to parse are skipped.
func (ds *Dataset) ParticipantIDs() []string {
	seen := make(map[string]bool)
	for _, f := range ds.Files {
		if f.Entities.Sub != "" {
			seen[f.Entities.ParticipantID()] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FilesFor returns the data files belonging to one participant, in path
// order.
func (ds *Dataset) FilesFor(participantID string) []*DataFile {
	var out []*DataFile
	for _, f := range ds.Files {
		if f.Entities.Sub != "" && f.Entities.ParticipantID() == participantID {
			out = append(out, f)
		}
	}
	return out
}
