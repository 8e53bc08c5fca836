// Package storage persists named systems, continuation objects and raw
// branches as JSON documents under a base directory. Renames cascade
// into the provenance fields of dependent objects so no stored reference
// is left dangling.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/krines/arcstep/internal/branch"
	"github.com/krines/arcstep/internal/config"
	"github.com/krines/arcstep/internal/system"
)

var (
	ErrNotFound = errors.New("storage: not found")
	ErrExists   = errors.New("storage: name already in use")
)

// Object is a named, persisted continuation branch with its provenance.
type Object struct {
	Name          string          `json:"name"`
	SystemName    string          `json:"systemName"`
	ParameterName string          `json:"parameterName"`
	ParentObject  string          `json:"parentObject,omitempty"`
	StartObject   string          `json:"startObject,omitempty"`
	BranchKind    branch.Kind     `json:"branchType"`
	Data          *branch.Data    `json:"data"`
	Settings      config.Settings `json:"settings"`
	Params        []float64       `json:"params,omitempty"`
	MapIterations *int            `json:"mapIterations,omitempty"`
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	for _, dir := range []string{"systems", "objects", "branches"} {
		if err := os.MkdirAll(filepath.Join(s.baseDir, dir), 0755); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) path(kind, name string) string {
	return filepath.Join(s.baseDir, kind, name+".json")
}

func (s *Store) write(kind, name string, v any) error {
	if !system.ValidName(name) {
		return fmt.Errorf("%w: %q", system.ErrInvalidName, name)
	}
	if err := s.Init(); err != nil {
		return err
	}
	file, err := os.Create(s.path(kind, name))
	if err != nil {
		return err
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (s *Store) read(kind, name string, v any) error {
	if !system.ValidName(name) {
		return fmt.Errorf("%w: %q", system.ErrInvalidName, name)
	}
	data, err := os.ReadFile(s.path(kind, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, kind, name)
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *Store) list(kind string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, kind))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	return names, nil
}

func (s *Store) delete(kind, name string) error {
	if err := os.Remove(s.path(kind, name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, kind, name)
		}
		return err
	}
	return nil
}

func (s *Store) SaveSystem(def *system.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	return s.write("systems", def.Name, def)
}

func (s *Store) LoadSystem(name string) (*system.Definition, error) {
	var def system.Definition
	if err := s.read("systems", name, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

func (s *Store) ListSystems() ([]string, error) { return s.list("systems") }

func (s *Store) SaveObject(obj *Object) error {
	if obj.Data != nil {
		obj.Data.EnsureIndices()
	}
	return s.write("objects", obj.Name, obj)
}

func (s *Store) LoadObject(name string) (*Object, error) {
	var obj Object
	if err := s.read("objects", name, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

func (s *Store) ListObjects() ([]string, error) { return s.list("objects") }

func (s *Store) DeleteObject(name string) error { return s.delete("objects", name) }

func (s *Store) SaveBranch(name string, d *branch.Data) error {
	d.EnsureIndices()
	return s.write("branches", name, d)
}

func (s *Store) LoadBranch(name string) (*branch.Data, error) {
	var d branch.Data
	if err := s.read("branches", name, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) ListBranches() ([]string, error) { return s.list("branches") }

func (s *Store) DeleteBranch(name string) error { return s.delete("branches", name) }

// RenameObject renames a stored object and rewrites every object whose
// parentObject or startObject referenced the old name.
func (s *Store) RenameObject(oldName, newName string) error {
	if !system.ValidName(newName) {
		return fmt.Errorf("%w: %q", system.ErrInvalidName, newName)
	}
	if oldName == newName {
		return nil
	}
	if _, err := os.Stat(s.path("objects", newName)); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, newName)
	}
	obj, err := s.LoadObject(oldName)
	if err != nil {
		return err
	}
	obj.Name = newName
	if err := s.SaveObject(obj); err != nil {
		return err
	}
	if err := s.delete("objects", oldName); err != nil {
		return err
	}
	return s.cascadeRename(oldName, newName)
}

// RenameBranch renames a stored raw branch and cascades into objects
// that referenced it as provenance.
func (s *Store) RenameBranch(oldName, newName string) error {
	if !system.ValidName(newName) {
		return fmt.Errorf("%w: %q", system.ErrInvalidName, newName)
	}
	if oldName == newName {
		return nil
	}
	if _, err := os.Stat(s.path("branches", newName)); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, newName)
	}
	d, err := s.LoadBranch(oldName)
	if err != nil {
		return err
	}
	if err := s.SaveBranch(newName, d); err != nil {
		return err
	}
	if err := s.delete("branches", oldName); err != nil {
		return err
	}
	return s.cascadeRename(oldName, newName)
}

func (s *Store) cascadeRename(oldName, newName string) error {
	names, err := s.ListObjects()
	if err != nil {
		return err
	}
	for _, name := range names {
		obj, err := s.LoadObject(name)
		if err != nil {
			continue
		}
		changed := false
		if obj.ParentObject == oldName {
			obj.ParentObject = newName
			changed = true
		}
		if obj.StartObject == oldName {
			obj.StartObject = newName
			changed = true
		}
		if changed {
			if err := s.SaveObject(obj); err != nil {
				return err
			}
		}
	}
	return nil
}
