package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "cashplan/internal/errors"
	"cashplan/internal/models"
	"cashplan/internal/pagination"
	"cashplan/internal/services"
)

// --- mock category service ---

type mockCategoryService struct {
	createCategoryFn     func(name, code string, categoryType models.FlowType, parentID *string, sequence int, description string) (*models.Category, error)
	listCategoriesFn     func(categoryType *models.FlowType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	getCategoryByIDFn    func(id string) (*models.Category, error)
	updateCategoryFn     func(id string, name, description *string, sequence *int, active *bool) (*models.Category, error)
	moveCategoryFn       func(id string, parentID *string) (*models.Category, error)
	changeCategoryTypeFn func(id string, categoryType models.FlowType) (*models.Category, error)
	getCategoryPathFn    func(id string) (*services.CategoryPath, error)
	getDescendantsFn     func(id string) ([]models.Category, error)
	getAncestorsFn       func(id string) ([]models.Category, error)
	deleteCategoryFn     func(id string) error
}

func (m *mockCategoryService) CreateCategory(name, code string, categoryType models.FlowType, parentID *string, sequence int, description string) (*models.Category, error) {
	if m.createCategoryFn != nil {
		return m.createCategoryFn(name, code, categoryType, parentID, sequence, description)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) ListCategories(categoryType *models.FlowType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(categoryType, page)
	}
	resp := pagination.NewPageResponse([]models.Category{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockCategoryService) GetCategoryByID(id string) (*models.Category, error) {
	if m.getCategoryByIDFn != nil {
		return m.getCategoryByIDFn(id)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) UpdateCategory(id string, name, description *string, sequence *int, active *bool) (*models.Category, error) {
	if m.updateCategoryFn != nil {
		return m.updateCategoryFn(id, name, description, sequence, active)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) MoveCategory(id string, parentID *string) (*models.Category, error) {
	if m.moveCategoryFn != nil {
		return m.moveCategoryFn(id, parentID)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) ChangeCategoryType(id string, categoryType models.FlowType) (*models.Category, error) {
	if m.changeCategoryTypeFn != nil {
		return m.changeCategoryTypeFn(id, categoryType)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) GetCategoryPath(id string) (*services.CategoryPath, error) {
	if m.getCategoryPathFn != nil {
		return m.getCategoryPathFn(id)
	}
	return &services.CategoryPath{CategoryID: id}, nil
}

func (m *mockCategoryService) GetDescendants(id string) ([]models.Category, error) {
	if m.getDescendantsFn != nil {
		return m.getDescendantsFn(id)
	}
	return []models.Category{}, nil
}

func (m *mockCategoryService) GetAncestors(id string) ([]models.Category, error) {
	if m.getAncestorsFn != nil {
		return m.getAncestorsFn(id)
	}
	return []models.Category{}, nil
}

func (m *mockCategoryService) DeleteCategory(id string) error {
	if m.deleteCategoryFn != nil {
		return m.deleteCategoryFn(id)
	}
	return nil
}

var _ services.CategoryServicer = (*mockCategoryService)(nil)

func setupCategoryRouter(handler *CategoryHandler) *gin.Engine {
	r := gin.New()
	r.POST("/categories", handler.CreateCategory)
	r.GET("/categories", handler.GetCategories)
	r.GET("/categories/:id", handler.GetCategoryByID)
	r.PUT("/categories/:id", handler.UpdateCategory)
	r.PUT("/categories/:id/parent", handler.MoveCategory)
	r.PUT("/categories/:id/type", handler.ChangeCategoryType)
	r.GET("/categories/:id/path", handler.GetCategoryPath)
	r.GET("/categories/:id/descendants", handler.GetDescendants)
	r.GET("/categories/:id/ancestors", handler.GetAncestors)
	r.DELETE("/categories/:id", handler.DeleteCategory)
	return r
}

func TestCategoryHandler_CreateCategory(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var gotParent *string
		catSvc := &mockCategoryService{
			createCategoryFn: func(name, code string, catType models.FlowType, parentID *string, _ int, _ string) (*models.Category, error) {
				gotParent = parentID
				return &models.Category{Base: models.Base{ID: testID}, Name: name, Code: code, Type: catType}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupCategoryRouter(NewCategoryHandler(catSvc, audit))

		rec := doRequestWithHeader(r, "POST", "/categories",
			`{"name":"Office","code":"OFF","type":"payment","parent_id":"`+testOtherID+`"}`, ActorHeader, "alice")

		assertStatus(t, rec, http.StatusCreated)
		cat := parseJSON(t, rec)["category"].(map[string]interface{})
		if cat["code"] != "OFF" {
			t.Errorf("expected OFF, got %v", cat["code"])
		}
		if gotParent == nil || *gotParent != testOtherID {
			t.Errorf("expected parent %s, got %v", testOtherID, gotParent)
		}
		entry := audit.last(t)
		if entry.actor != "alice" || entry.action != "CREATE_CATEGORY" || entry.resourceID != testID {
			t.Errorf("unexpected audit entry %+v", entry)
		}
	})

	t.Run("child may omit type", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/categories", `{"name":"Paper","code":"PAP","parent_id":"`+testOtherID+`"}`)

		assertStatus(t, rec, http.StatusCreated)
	})

	t.Run("returns 400 on missing code", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/categories", `{"name":"Office","type":"payment"}`)

		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on invalid type", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/categories", `{"name":"Office","code":"OFF","type":"expense"}`)

		assertStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("returns 409 on duplicate code", func(t *testing.T) {
		catSvc := &mockCategoryService{
			createCategoryFn: func(_, _ string, _ models.FlowType, _ *string, _ int, _ string) (*models.Category, error) {
				return nil, apperrors.ErrDuplicateCategoryCode
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/categories", `{"name":"Office","code":"OFF","type":"payment"}`)

		assertStatus(t, rec, http.StatusConflict)
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_CATEGORY_CODE")
	})
}

func TestCategoryHandler_GetCategories(t *testing.T) {
	t.Run("returns 200 with page", func(t *testing.T) {
		catSvc := &mockCategoryService{
			listCategoriesFn: func(_ *models.FlowType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
				resp := pagination.NewPageResponse([]models.Category{
					{Base: models.Base{ID: testID}, Name: "Sales", Type: models.FlowIncome},
					{Base: models.Base{ID: testOtherID}, Name: "Rent", Type: models.FlowPayment},
				}, 1, 20, 2)
				return &resp, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/categories", "")

		assertStatus(t, rec, http.StatusOK)
		data := parseJSON(t, rec)["data"].([]interface{})
		if len(data) != 2 {
			t.Errorf("expected 2 categories, got %d", len(data))
		}
	})

	t.Run("filters by type", func(t *testing.T) {
		var captured *models.FlowType
		catSvc := &mockCategoryService{
			listCategoriesFn: func(categoryType *models.FlowType, _ pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
				captured = categoryType
				resp := pagination.NewPageResponse([]models.Category{}, 1, 20, 0)
				return &resp, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc, &mockAuditService{}))

		doRequest(r, "GET", "/categories?type=income", "")

		if captured == nil || *captured != models.FlowIncome {
			t.Errorf("expected income filter, got %v", captured)
		}
	})

	t.Run("returns 400 on invalid type filter", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/categories?type=expense", "")

		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on oversized page", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/categories?page_size=500", "")

		assertStatus(t, rec, http.StatusBadRequest)
	})
}

func TestCategoryHandler_GetCategoryByID(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		catSvc := &mockCategoryService{
			getCategoryByIDFn: func(id string) (*models.Category, error) {
				return &models.Category{Base: models.Base{ID: id}, Name: "Office"}, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/categories/"+testID, "")

		assertStatus(t, rec, http.StatusOK)
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		catSvc := &mockCategoryService{
			getCategoryByIDFn: func(_ string) (*models.Category, error) {
				return nil, apperrors.ErrCategoryNotFound
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/categories/"+testID, "")

		assertStatus(t, rec, http.StatusNotFound)
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_NOT_FOUND")
	})

	t.Run("returns 400 on invalid ID", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/categories/abc", "")

		assertStatus(t, rec, http.StatusBadRequest)
	})
}

func TestCategoryHandler_UpdateCategory(t *testing.T) {
	t.Run("passes only provided fields", func(t *testing.T) {
		var gotName, gotDescription *string
		catSvc := &mockCategoryService{
			updateCategoryFn: func(id string, name, description *string, _ *int, _ *bool) (*models.Category, error) {
				gotName, gotDescription = name, description
				return &models.Category{Base: models.Base{ID: id}, Name: *name}, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/categories/"+testID, `{"name":"Premises"}`)

		assertStatus(t, rec, http.StatusOK)
		if gotName == nil || *gotName != "Premises" {
			t.Errorf("expected name Premises, got %v", gotName)
		}
		if gotDescription != nil {
			t.Errorf("expected description untouched, got %v", *gotDescription)
		}
	})

	t.Run("returns 400 on empty name", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/categories/"+testID, `{"name":""}`)

		assertStatus(t, rec, http.StatusBadRequest)
	})
}

func TestCategoryHandler_MoveCategory(t *testing.T) {
	t.Run("detaches to root on null parent", func(t *testing.T) {
		called := false
		catSvc := &mockCategoryService{
			moveCategoryFn: func(id string, parentID *string) (*models.Category, error) {
				called = true
				if parentID != nil {
					t.Errorf("expected nil parent, got %v", *parentID)
				}
				return &models.Category{Base: models.Base{ID: id}}, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/categories/"+testID+"/parent", `{"parent_id":null}`)

		assertStatus(t, rec, http.StatusOK)
		if !called {
			t.Error("expected MoveCategory to be called")
		}
	})

	t.Run("returns 400 on cycle", func(t *testing.T) {
		catSvc := &mockCategoryService{
			moveCategoryFn: func(_ string, _ *string) (*models.Category, error) {
				return nil, apperrors.ErrCategoryCycle
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/categories/"+testID+"/parent", `{"parent_id":"`+testOtherID+`"}`)

		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_CYCLE")
	})
}

func TestCategoryHandler_ChangeCategoryType(t *testing.T) {
	t.Run("returns 409 on conflict", func(t *testing.T) {
		catSvc := &mockCategoryService{
			changeCategoryTypeFn: func(_ string, _ models.FlowType) (*models.Category, error) {
				return nil, apperrors.ErrCategoryTypeConflict
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/categories/"+testID+"/type", `{"type":"income"}`)

		assertStatus(t, rec, http.StatusConflict)
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_TYPE_CONFLICT")
	})

	t.Run("returns 400 on missing type", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/categories/"+testID+"/type", `{}`)

		assertStatus(t, rec, http.StatusBadRequest)
	})
}

func TestCategoryHandler_TreeQueries(t *testing.T) {
	catSvc := &mockCategoryService{
		getCategoryPathFn: func(id string) (*services.CategoryPath, error) {
			return &services.CategoryPath{CategoryID: id, Names: []string{"Operating", "Office"}, FullPath: "Operating / Office"}, nil
		},
		getDescendantsFn: func(_ string) ([]models.Category, error) {
			return []models.Category{{Name: "Supplies"}, {Name: "Paper"}}, nil
		},
		getAncestorsFn: func(_ string) ([]models.Category, error) {
			return []models.Category{{Name: "Operating"}}, nil
		},
	}
	r := setupCategoryRouter(NewCategoryHandler(catSvc, &mockAuditService{}))

	t.Run("path", func(t *testing.T) {
		rec := doRequest(r, "GET", "/categories/"+testID+"/path", "")
		assertStatus(t, rec, http.StatusOK)
		if got := parseJSON(t, rec)["full_path"]; got != "Operating / Office" {
			t.Errorf("unexpected path %v", got)
		}
	})

	t.Run("descendants", func(t *testing.T) {
		rec := doRequest(r, "GET", "/categories/"+testID+"/descendants", "")
		assertStatus(t, rec, http.StatusOK)
		if got := parseJSON(t, rec)["categories"].([]interface{}); len(got) != 2 {
			t.Errorf("expected 2 descendants, got %d", len(got))
		}
	})

	t.Run("ancestors", func(t *testing.T) {
		rec := doRequest(r, "GET", "/categories/"+testID+"/ancestors", "")
		assertStatus(t, rec, http.StatusOK)
		if got := parseJSON(t, rec)["categories"].([]interface{}); len(got) != 1 {
			t.Errorf("expected 1 ancestor, got %d", len(got))
		}
	})
}

func TestCategoryHandler_DeleteCategory(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, audit))

		rec := doRequest(r, "DELETE", "/categories/"+testID, "")

		assertStatus(t, rec, http.StatusOK)
		if entry := audit.last(t); entry.action != "DELETE_CATEGORY" || entry.actor != services.DefaultActor {
			t.Errorf("unexpected audit entry %+v", entry)
		}
	})

	t.Run("returns 409 when in use", func(t *testing.T) {
		catSvc := &mockCategoryService{
			deleteCategoryFn: func(_ string) error { return apperrors.ErrCategoryInUse },
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/categories/"+testID, "")

		assertStatus(t, rec, http.StatusConflict)
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_IN_USE")
	})
}
