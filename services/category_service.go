package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/phishguard/models"
	"github.com/cppla/phishguard/utils"
)

// CategoryService manages report categories.
type CategoryService struct {
	db *gorm.DB
}

func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

func (s *CategoryService) List() ([]models.Category, error) {
	out := []models.Category{}
	if err := s.db.Order("name").Find(&out).Error; err != nil {
		return nil, wrapInternal(err, 50050, "failed to load categories")
	}
	return out, nil
}

func (s *CategoryService) Get(id uint) (*models.Category, error) {
	if id == 0 {
		return nil, BadRequest(40050, "invalid category id")
	}
	var c models.Category
	if err := s.db.First(&c, id).Error; err != nil {
		return nil, notFoundOr(err, 40450, "category not found", 50051, "failed to load category")
	}
	return &c, nil
}

func (s *CategoryService) GetByName(name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, BadRequest(40051, "name is required")
	}
	var c models.Category
	if err := s.db.Where("name = ?", name).First(&c).Error; err != nil {
		return nil, notFoundOr(err, 40450, "category not found", 50051, "failed to load category")
	}
	return &c, nil
}

func (s *CategoryService) nameTaken(name string, exceptID uint) (bool, error) {
	var n int64
	err := s.db.Model(&models.Category{}).Where("name = ? AND id <> ?", name, exceptID).Count(&n).Error
	return n > 0, err
}

func (s *CategoryService) Create(name, description string) (*models.Category, error) {
	name = utils.SanitizeText(name)
	if name == "" {
		return nil, BadRequest(40051, "name is required")
	}
	taken, err := s.nameTaken(name, 0)
	if err != nil {
		return nil, wrapInternal(err, 50051, "failed to load category")
	}
	if taken {
		return nil, Conflict(40950, "category name already exists")
	}
	c := models.Category{Name: name, Description: utils.SanitizeText(description)}
	if err := s.db.Create(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, Conflict(40950, "category name already exists")
		}
		return nil, wrapInternal(err, 50052, "failed to create category")
	}
	return &c, nil
}

// Update applies a partial update; nil fields keep the stored value.
func (s *CategoryService) Update(id uint, name, description *string) (*models.Category, error) {
	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	changes := map[string]interface{}{}
	if name != nil {
		if n := utils.SanitizeText(*name); n != "" && n != c.Name {
			taken, err := s.nameTaken(n, id)
			if err != nil {
				return nil, wrapInternal(err, 50051, "failed to load category")
			}
			if taken {
				return nil, Conflict(40950, "category name already exists")
			}
			changes["name"] = n
		}
	}
	if description != nil {
		changes["description"] = utils.SanitizeText(*description)
	}
	if len(changes) > 0 {
		changes["updated_at"] = time.Now()
		if err := s.db.Model(c).Updates(changes).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, Conflict(40950, "category name already exists")
			}
			return nil, wrapInternal(err, 50053, "failed to update category")
		}
	}
	return s.Get(id)
}

// Delete removes a category that no report uses.
func (s *CategoryService) Delete(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	var n int64
	if err := s.db.Model(&models.Report{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
		return wrapInternal(err, 50054, "failed to delete category")
	}
	if n > 0 {
		return Conflict(40951, "category is used by reports")
	}
	if err := s.db.Delete(&models.Category{}, id).Error; err != nil {
		return wrapInternal(err, 50054, "failed to delete category")
	}
	return nil
}
