package roster

import (
	"context"
	"fmt"
	"sort"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/rollcall/internal/domain/model"
)

// Roster is a complete in-memory roster snapshot.
type Roster struct {
	Levels   []model.Level   `koanf:"levels"`
	Sections []model.Section `koanf:"sections"`
	Students []model.Student `koanf:"students"`
}

// SeedProvider serves a fixed roster held in memory.
type SeedProvider struct {
	roster Roster
}

var _ Provider = (*SeedProvider)(nil)

// NewSeedProvider returns a provider serving r. The slices are copied.
func NewSeedProvider(r Roster) *SeedProvider {
	cp := Roster{
		Levels:   append([]model.Level(nil), r.Levels...),
		Sections: append([]model.Section(nil), r.Sections...),
		Students: append([]model.Student(nil), r.Students...),
	}
	sort.Slice(cp.Levels, func(i, j int) bool {
		if cp.Levels[i].Number != cp.Levels[j].Number {
			return cp.Levels[i].Number < cp.Levels[j].Number
		}
		return cp.Levels[i].ID < cp.Levels[j].ID
	})
	sort.Slice(cp.Sections, func(i, j int) bool {
		a, b := cp.Sections[i], cp.Sections[j]
		if a.LevelID != b.LevelID {
			return a.LevelID < b.LevelID
		}
		if a.Number != b.Number {
			return a.Number < b.Number
		}
		return a.ID < b.ID
	})
	sort.Slice(cp.Students, func(i, j int) bool {
		a, b := cp.Students[i], cp.Students[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return &SeedProvider{roster: cp}
}

// LoadSeedFile reads a YAML roster file with top-level levels, sections
// and students lists.
func LoadSeedFile(path string) (*SeedProvider, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadRoster, err)
	}
	var r Roster
	if err := k.UnmarshalWithConf("", &r, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadRoster, err)
	}
	return NewSeedProvider(r), nil
}

// ListStudents filters the roster by level, section and search term.
func (p *SeedProvider) ListStudents(ctx context.Context, q Query) ([]model.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]model.Student, 0, len(p.roster.Students))
	for _, s := range p.roster.Students {
		if q.LevelID != "" && s.LevelID != q.LevelID {
			continue
		}
		if q.SectionID != "" && s.SectionID != q.SectionID {
			continue
		}
		if !s.Matches(q.Search) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// ListLevels returns all levels.
func (p *SeedProvider) ListLevels(ctx context.Context) ([]model.Level, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]model.Level(nil), p.roster.Levels...), nil
}

// ListSections returns all sections.
func (p *SeedProvider) ListSections(ctx context.Context) ([]model.Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]model.Section(nil), p.roster.Sections...), nil
}
