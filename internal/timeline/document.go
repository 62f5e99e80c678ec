package timeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk form of a timeline
type Document struct {
	Version       string       `yaml:"version"`
	TotalDuration float64      `yaml:"total_duration,omitempty"` // caller-declared, reconciled on load
	Assets        []Asset      `yaml:"assets" validate:"required,min=1,dive"`
	Transitions   []Transition `yaml:"transitions" validate:"dive"`
}

var validate = validator.New()

// Validate checks field-level constraints. Structural rules (window overlap,
// transition count) are enforced by New.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("timeline document: %w", err)
	}
	return nil
}

// Timeline assigns ids to anonymous assets and builds the validated timeline
func (d *Document) Timeline() (*Timeline, error) {
	for i := range d.Assets {
		d.Assets[i].Kind = AssetKind(strings.ToLower(string(d.Assets[i].Kind)))
	}
	for i := range d.Transitions {
		tr := &d.Transitions[i]
		tr.Type = TransitionType(strings.ToLower(string(tr.Type)))
		tr.Easing = Easing(strings.ToLower(string(tr.Easing)))
		tr.Direction = tr.Heading()
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	assets := make([]Asset, len(d.Assets))
	for i, a := range d.Assets {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		assets[i] = a
	}
	return New(assets, d.Transitions)
}

// NewDocument captures a timeline in its serializable form
func NewDocument(t *Timeline) *Document {
	return &Document{
		Version:       "1.0",
		TotalDuration: t.TotalDuration(),
		Assets:        t.Assets(),
		Transitions:   t.Transitions(),
	}
}

// WriteDocument writes a timeline document as YAML
func WriteDocument(doc *Document, path string) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadDocument reads a timeline document from a YAML file
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &doc, nil
}

// FindLatestDocument returns the most recently modified .yaml/.yml file in dir
func FindLatestDocument(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read timelines directory: %w", err)
	}

	type candidate struct {
		path    string
		modTime int64
	}
	var found []candidate
	for _, entry := range entries {
		name := strings.ToLower(entry.Name())
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{filepath.Join(dir, entry.Name()), info.ModTime().UnixNano()})
	}

	if len(found) == 0 {
		return "", fmt.Errorf("no timeline files found in %s", dir)
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].modTime > found[j].modTime
	})
	return found[0].path, nil
}
