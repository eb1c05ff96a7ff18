package roster

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/rollcall/internal/domain/model"
	"gorm.io/gorm"
)

type levelRow struct {
	ID      string `gorm:"primaryKey;type:varchar(64)"`
	LevelNo int    `gorm:"not null"`
	Name    string `gorm:"column:level_name;type:varchar(100);not null"`
}

func (levelRow) TableName() string { return "levels" }

type sectionRow struct {
	ID      string `gorm:"primaryKey;type:varchar(64)"`
	SecNo   string `gorm:"type:varchar(10);not null"`
	Name    string `gorm:"column:section_name;type:varchar(100)"`
	LevelID string `gorm:"type:varchar(64);not null;index"`
}

func (sectionRow) TableName() string { return "sections" }

type studentRow struct {
	ID            string `gorm:"primaryKey;type:varchar(64)"`
	StudentNumber string `gorm:"type:varchar(32);uniqueIndex"`
	Name          string `gorm:"type:varchar(200);not null"`
	LevelID       string `gorm:"type:varchar(64);index"`
	SectionID     string `gorm:"type:varchar(64);index"`
}

func (studentRow) TableName() string { return "students" }

// SQLProvider reads the roster from the levels, sections and students tables.
type SQLProvider struct {
	db *gorm.DB
}

var _ Provider = (*SQLProvider)(nil)

// NewSQLProvider returns a provider reading through db.
func NewSQLProvider(db *gorm.DB) *SQLProvider {
	return &SQLProvider{db: db}
}

// Migrate creates the roster tables when missing. Intended for local
// databases; a shared roster schema is managed by its owner.
func (p *SQLProvider) Migrate(ctx context.Context) error {
	if err := p.db.WithContext(ctx).AutoMigrate(&levelRow{}, &sectionRow{}, &studentRow{}); err != nil {
		return fmt.Errorf("%w: %w", ErrLoadRoster, err)
	}
	return nil
}

// Seed inserts r into the roster tables. Used to bootstrap local databases.
func (p *SQLProvider) Seed(ctx context.Context, r Roster) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, l := range r.Levels {
			if err := tx.Save(&levelRow{ID: l.ID, LevelNo: l.Number, Name: l.Name}).Error; err != nil {
				return err
			}
		}
		for _, s := range r.Sections {
			if err := tx.Save(&sectionRow{ID: s.ID, SecNo: s.Number, Name: s.Name, LevelID: s.LevelID}).Error; err != nil {
				return err
			}
		}
		for _, s := range r.Students {
			row := studentRow{ID: s.ID, StudentNumber: s.StudentNumber, Name: s.Name, LevelID: s.LevelID, SectionID: s.SectionID}
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ListStudents filters students with SQL predicates.
func (p *SQLProvider) ListStudents(ctx context.Context, q Query) ([]model.Student, error) {
	tx := p.db.WithContext(ctx).Model(&studentRow{})
	if q.LevelID != "" {
		tx = tx.Where("level_id = ?", q.LevelID)
	}
	if q.SectionID != "" {
		tx = tx.Where("section_id = ?", q.SectionID)
	}
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		like := "%" + likeEscaper.Replace(term) + "%"
		tx = tx.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(student_number) LIKE ? ESCAPE '\'`, like, like)
	}

	var rows []studentRow
	if err := tx.Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	out := make([]model.Student, len(rows))
	for i, r := range rows {
		out[i] = model.Student{
			ID:            r.ID,
			Name:          r.Name,
			StudentNumber: r.StudentNumber,
			LevelID:       r.LevelID,
			SectionID:     r.SectionID,
		}
	}
	return out, nil
}

// ListLevels returns all levels ordered by number.
func (p *SQLProvider) ListLevels(ctx context.Context) ([]model.Level, error) {
	var rows []levelRow
	if err := p.db.WithContext(ctx).Order("level_no ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	out := make([]model.Level, len(rows))
	for i, r := range rows {
		out[i] = model.Level{ID: r.ID, Number: r.LevelNo, Name: r.Name}
	}
	return out, nil
}

// ListSections returns all sections ordered by level, then number.
func (p *SQLProvider) ListSections(ctx context.Context) ([]model.Section, error) {
	var rows []sectionRow
	if err := p.db.WithContext(ctx).Order("level_id ASC").Order("sec_no ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	out := make([]model.Section, len(rows))
	for i, r := range rows {
		out[i] = model.Section{ID: r.ID, Number: r.SecNo, Name: r.Name, LevelID: r.LevelID}
	}
	return out, nil
}

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
