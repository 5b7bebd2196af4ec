package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Stage names accepted in a layout file.
const (
	StageRegistered = "registered"
	StageMetadata   = "metadata"
	StageData       = "data"
)

// Layout describes the chunks and entities to bring up at startup.
type Layout struct {
	Roots []ChunkSpec `yaml:"roots"`
}

// ChunkSpec is one chunk of a layout. Stage defaults to "data".
type ChunkSpec struct {
	Local      int64             `yaml:"local"`
	Name       string            `yaml:"name"`
	Stage      string            `yaml:"stage"`
	Leaf       bool              `yaml:"leaf"`
	Spawn      bool              `yaml:"spawn"`
	Metadata   map[string]string `yaml:"metadata,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty"`
	Chunks     []ChunkSpec       `yaml:"chunks,omitempty"`
	Entities   []EntitySpec      `yaml:"entities,omitempty"`
}

// EntitySpec is one entity of a layout. Stage defaults to "data".
type EntitySpec struct {
	Local      int64             `yaml:"local"`
	Name       string            `yaml:"name"`
	Stage      string            `yaml:"stage"`
	Spawn      bool              `yaml:"spawn"`
	Metadata   map[string]string `yaml:"metadata,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

// StageOf returns the effective stage name.
func StageOf(s string) string {
	if s == "" {
		return StageData
	}
	return s
}

func stageRank(s string) (int, bool) {
	switch StageOf(s) {
	case StageRegistered:
		return 0, true
	case StageMetadata:
		return 1, true
	case StageData:
		return 2, true
	}
	return 0, false
}

// LoadLayout reads and validates a yaml layout file.
func LoadLayout(path string) (*Layout, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	return ParseLayout(raw)
}

func ParseLayout(raw []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Marshal encodes l as yaml.
func (l *Layout) Marshal() ([]byte, error) {
	return yaml.Marshal(l)
}

// Validate checks that every request the layout implies can succeed when
// applied in document order.
func (l *Layout) Validate() error {
	seen := make(map[int64]bool, len(l.Roots))
	for i := range l.Roots {
		c := &l.Roots[i]
		if seen[c.Local] {
			return fmt.Errorf("layout: duplicate root chunk %d", c.Local)
		}
		seen[c.Local] = true
		if err := c.validate(fmt.Sprintf("%d", c.Local), true); err != nil {
			return err
		}
	}
	return nil
}

func (c *ChunkSpec) validate(path string, parentSpawned bool) error {
	if c.Local < 0 || c.Local > 0xFFFFFFFF {
		return fmt.Errorf("layout: chunk %s: local id out of range", path)
	}
	rank, ok := stageRank(c.Stage)
	if !ok {
		return fmt.Errorf("layout: chunk %s: unknown stage %q", path, c.Stage)
	}
	if c.Spawn && rank < 2 {
		return fmt.Errorf("layout: chunk %s: spawn requires stage data", path)
	}
	if c.Spawn && !parentSpawned {
		return fmt.Errorf("layout: chunk %s: spawn requires a spawned parent", path)
	}
	if len(c.Chunks) > 0 && (rank < 2 || c.Leaf) {
		return fmt.Errorf("layout: chunk %s: child chunks require a non-leaf chunk with data", path)
	}
	if len(c.Entities) > 0 && rank < 2 {
		return fmt.Errorf("layout: chunk %s: entities require stage data", path)
	}

	kids := make(map[int64]bool, len(c.Chunks))
	for i := range c.Chunks {
		k := &c.Chunks[i]
		if kids[k.Local] {
			return fmt.Errorf("layout: chunk %s: duplicate child chunk %d", path, k.Local)
		}
		kids[k.Local] = true
		if err := k.validate(fmt.Sprintf("%s/%d", path, k.Local), c.Spawn); err != nil {
			return err
		}
	}

	ents := make(map[int64]bool, len(c.Entities))
	for _, e := range c.Entities {
		if e.Local < 0 || e.Local > 0xFFFFFFFF {
			return fmt.Errorf("layout: entity %s#%d: local id out of range", path, e.Local)
		}
		if ents[e.Local] {
			return fmt.Errorf("layout: chunk %s: duplicate entity %d", path, e.Local)
		}
		ents[e.Local] = true
		erank, ok := stageRank(e.Stage)
		if !ok {
			return fmt.Errorf("layout: entity %s#%d: unknown stage %q", path, e.Local, e.Stage)
		}
		if e.Spawn && (erank < 2 || !c.Spawn) {
			return fmt.Errorf("layout: entity %s#%d: spawn requires stage data and a spawned chunk", path, e.Local)
		}
	}
	return nil
}

// Counts returns the number of chunks and entities in l.
func (l *Layout) Counts() (chunks, entities int) {
	var walk func(c *ChunkSpec)
	walk = func(c *ChunkSpec) {
		chunks++
		entities += len(c.Entities)
		for i := range c.Chunks {
			walk(&c.Chunks[i])
		}
	}
	for i := range l.Roots {
		walk(&l.Roots[i])
	}
	return chunks, entities
}

// GridLayout builds a synthetic layout: roots spawned root chunks, each with
// children spawned leaf chunks holding entities spawned entities.
func GridLayout(roots, children, entities int) *Layout {
	l := &Layout{Roots: make([]ChunkSpec, 0, roots)}
	for r := 0; r < roots; r++ {
		root := ChunkSpec{
			Local: int64(r),
			Name:  fmt.Sprintf("region-%d", r),
			Spawn: true,
		}
		for c := 0; c < children; c++ {
			cell := ChunkSpec{
				Local: int64(c),
				Name:  fmt.Sprintf("cell-%d-%d", r, c),
				Leaf:  true,
				Spawn: true,
				Properties: map[string]string{
					"x": fmt.Sprintf("%d", c),
				},
			}
			for e := 0; e < entities; e++ {
				cell.Entities = append(cell.Entities, EntitySpec{
					Local: int64(e),
					Name:  fmt.Sprintf("entity-%d-%d-%d", r, c, e),
					Spawn: true,
				})
			}
			root.Chunks = append(root.Chunks, cell)
		}
		l.Roots = append(l.Roots, root)
	}
	return l
}
