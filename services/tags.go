package services

import (
	"fmt"
	"hash/fnv"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/phishguard/models"
	"github.com/cppla/phishguard/utils"
)

const maxTagName = 64

// TagColor derives a stable hex colour from a tag name.
func TagColor(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(name)))
	return fmt.Sprintf("#%06x", h.Sum32()&0xffffff)
}

// findOrCreateTags resolves names to tags, creating missing ones. Lookup is
// case-insensitive; names are trimmed and deduplicated first.
func findOrCreateTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	names = utils.UniqueFold(names)
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		name = utils.SanitizeText(name)
		if name == "" {
			continue
		}
		if len([]rune(name)) > maxTagName {
			name = string([]rune(name)[:maxTagName])
		}
		var tag models.Tag
		err := tx.Where("LOWER(name) = ?", strings.ToLower(name)).Take(&tag).Error
		if err == gorm.ErrRecordNotFound {
			tag = models.Tag{Name: name, Color: TagColor(name)}
			err = tx.Create(&tag).Error
		}
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// TagService exposes the tag catalogue.
type TagService struct {
	db *gorm.DB
}

func NewTagService(db *gorm.DB) *TagService {
	return &TagService{db: db}
}

// List returns every tag ordered by name.
func (s *TagService) List() ([]models.Tag, error) {
	out := []models.Tag{}
	if err := s.db.Order("name").Find(&out).Error; err != nil {
		return nil, wrapInternal(err, 50040, "failed to load tags")
	}
	return out, nil
}
