package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "cashplan/internal/errors"
	"cashplan/internal/hierarchy"
	"cashplan/internal/models"
	"cashplan/internal/pagination"
)

// categoryService is the category registry.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a category. A child always takes its parent's type,
// whatever categoryType says.
func (s *categoryService) CreateCategory(
	name string,
	code string,
	categoryType models.FlowType,
	parentID *string,
	sequence int,
	description string,
) (*models.Category, error) {
	name = strings.TrimSpace(name)
	code = strings.TrimSpace(code)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if code == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category code is required")
	}

	category := &models.Category{
		Name:        name,
		Code:        code,
		Type:        categoryType,
		ParentID:    parentID,
		Sequence:    sequence,
		Active:      true,
		Description: description,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := checkCodeFree(tx, code); err != nil {
			return err
		}

		if parentID != nil {
			parent, err := findCategory(tx, *parentID)
			if err != nil {
				if errors.Is(err, apperrors.ErrCategoryNotFound) {
					return apperrors.WithMessage(apperrors.ErrCategoryNotFound, "parent category not found")
				}
				return err
			}
			category.Type = parent.Type
		}
		if !category.Type.Valid() {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "category type must be income or payment")
		}

		if err := tx.Create(category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// ListCategories returns a page of categories ordered by sequence and name,
// optionally restricted to one type.
func (s *categoryService) ListCategories(categoryType *models.FlowType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	base := s.db.Model(&models.Category{})
	if categoryType != nil {
		base = base.Where("type = ?", *categoryType)
	}

	result, err := pagination.Find[models.Category](base, page, "sequence, name")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetCategoryByID retrieves a category by ID.
func (s *categoryService) GetCategoryByID(id string) (*models.Category, error) {
	return findCategory(s.db, id)
}

// UpdateCategory renames a category or changes its descriptive fields.
func (s *categoryService) UpdateCategory(id string, name, description *string, sequence *int, active *bool) (*models.Category, error) {
	category, err := s.GetCategoryByID(id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name cannot be empty")
		}
		updates["name"] = trimmed
	}
	if description != nil {
		updates["description"] = *description
	}
	if sequence != nil {
		updates["sequence"] = *sequence
	}
	if active != nil {
		updates["active"] = *active
	}

	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return s.GetCategoryByID(id)
}

// MoveCategory re-parents a category; a nil parentID detaches it to the root.
// The edge is rejected with CATEGORY_CYCLE when the new parent is the node
// itself or one of its descendants, and nothing is written in that case.
func (s *categoryService) MoveCategory(id string, parentID *string) (*models.Category, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		category, err := findCategory(tx, id)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"parent_id": nil}
		if parentID != nil {
			parent, err := findCategory(tx, *parentID)
			if err != nil {
				if errors.Is(err, apperrors.ErrCategoryNotFound) {
					return apperrors.WithMessage(apperrors.ErrCategoryNotFound, "parent category not found")
				}
				return err
			}

			tree, err := loadCategoryTree(tx)
			if err != nil {
				return err
			}
			if err := tree.CheckMove(id, *parentID); err != nil {
				return hierarchyError(err)
			}

			if parent.Type != category.Type {
				if err := checkTypeChangeable(tx, category, true); err != nil {
					return err
				}
				updates["type"] = parent.Type
			}
			updates["parent_id"] = parent.ID
		}

		if err := tx.Model(category).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCategoryByID(id)
}

// ChangeCategoryType flips a root category between income and payment.
func (s *categoryService) ChangeCategoryType(id string, categoryType models.FlowType) (*models.Category, error) {
	if !categoryType.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category type must be income or payment")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		category, err := findCategory(tx, id)
		if err != nil {
			return err
		}
		if category.Type == categoryType {
			return nil
		}
		if category.ParentID != nil {
			return apperrors.WithMessage(apperrors.ErrCategoryTypeConflict, "a child category inherits its parent's type")
		}
		if err := checkTypeChangeable(tx, category, false); err != nil {
			return err
		}
		if err := tx.Model(category).Update("type", categoryType).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCategoryByID(id)
}

// GetCategoryPath returns the names from the root down to the category.
func (s *categoryService) GetCategoryPath(id string) (*CategoryPath, error) {
	tree, err := loadCategoryTree(s.db)
	if err != nil {
		return nil, err
	}
	names, err := tree.Path(id)
	if err != nil {
		return nil, hierarchyError(err)
	}
	return &CategoryPath{
		CategoryID: id,
		Names:      names,
		FullPath:   strings.Join(names, hierarchy.PathSeparator),
	}, nil
}

// GetDescendants returns every category below id, breadth first.
func (s *categoryService) GetDescendants(id string) ([]models.Category, error) {
	tree, err := loadCategoryTree(s.db)
	if err != nil {
		return nil, err
	}
	nodes, err := tree.Descendants(id)
	if err != nil {
		return nil, hierarchyError(err)
	}
	return s.categoriesInOrder(nodes)
}

// GetAncestors returns the parent chain of id, nearest first.
func (s *categoryService) GetAncestors(id string) ([]models.Category, error) {
	tree, err := loadCategoryTree(s.db)
	if err != nil {
		return nil, err
	}
	nodes, err := tree.Ancestors(id)
	if err != nil {
		return nil, hierarchyError(err)
	}
	return s.categoriesInOrder(nodes)
}

// DeleteCategory removes a category that has no children and no references.
// Categories are removed permanently so their code can be reused.
func (s *categoryService) DeleteCategory(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		category, err := findCategory(tx, id)
		if err != nil {
			return err
		}

		var childCount int64
		if err := tx.Model(&models.Category{}).Where("parent_id = ?", id).Count(&childCount).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if childCount > 0 {
			return apperrors.ErrCategoryHasChildren
		}

		referenced, err := categoryReferenced(tx, id)
		if err != nil {
			return err
		}
		if referenced {
			return apperrors.ErrCategoryInUse
		}

		if err := tx.Unscoped().Delete(category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

func (s *categoryService) categoriesInOrder(nodes []hierarchy.Node) ([]models.Category, error) {
	if len(nodes) == 0 {
		return []models.Category{}, nil
	}
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}

	var found []models.Category
	if err := s.db.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	byID := make(map[string]models.Category, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	out := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func findCategory(db *gorm.DB, id string) (*models.Category, error) {
	var category models.Category
	if err := db.Where("id = ?", id).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

func checkCodeFree(tx *gorm.DB, code string) error {
	var count int64
	if err := tx.Model(&models.Category{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateCategoryCode
	}
	return nil
}

// checkTypeChangeable rejects a type change that would leave children or
// referencing records with the opposite type. When moving, children block the
// change because they would keep the old type under the new parent.
func checkTypeChangeable(tx *gorm.DB, category *models.Category, moving bool) error {
	var childCount int64
	if err := tx.Model(&models.Category{}).Where("parent_id = ?", category.ID).Count(&childCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if childCount > 0 {
		msg := "category has child categories of its current type"
		if moving {
			msg = "cannot move a category with children under a parent of another type"
		}
		return apperrors.WithMessage(apperrors.ErrCategoryTypeConflict, msg)
	}

	referenced, err := categoryReferenced(tx, category.ID)
	if err != nil {
		return err
	}
	if referenced {
		return apperrors.WithMessage(apperrors.ErrCategoryTypeConflict, "category is referenced by items or budgets of its current type")
	}
	return nil
}

// categoryReferenced reports whether any planned item, recurring item or
// budget points at the category.
func categoryReferenced(tx *gorm.DB, id string) (bool, error) {
	for _, model := range []interface{}{&models.PlannedItem{}, &models.RecurringItem{}, &models.Budget{}} {
		var count int64
		if err := tx.Model(model).Where("category_id = ?", id).Count(&count).Error; err != nil {
			return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

// loadCategoryTree reads the whole category table into a hierarchy arena.
func loadCategoryTree(db *gorm.DB) (*hierarchy.Tree, error) {
	var categories []models.Category
	if err := db.Select("id", "parent_id", "name").Order("sequence, name").Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	nodes := make([]hierarchy.Node, len(categories))
	for i, c := range categories {
		nodes[i] = hierarchy.Node{ID: c.ID, Name: c.Name}
		if c.ParentID != nil {
			nodes[i].ParentID = *c.ParentID
		}
	}
	return hierarchy.New(nodes), nil
}

// categorySubtree returns id followed by the ids of all its descendants.
func categorySubtree(db *gorm.DB, id string) ([]string, error) {
	tree, err := loadCategoryTree(db)
	if err != nil {
		return nil, err
	}
	ids, err := tree.Subtree(id)
	if err != nil {
		return nil, hierarchyError(err)
	}
	return ids, nil
}

func hierarchyError(err error) error {
	switch {
	case errors.Is(err, hierarchy.ErrUnknownNode):
		return apperrors.ErrCategoryNotFound
	case errors.Is(err, hierarchy.ErrCycle):
		return apperrors.ErrCategoryCycle
	default:
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
}
