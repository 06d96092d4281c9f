package catalog

import (
	"context"
	"strings"

	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"
)

type CatalogService struct {
	repository Repository
}

func NewService(r Repository) *CatalogService {
	return &CatalogService{repository: r}
}

func (s *CatalogService) List(ctx context.Context, filter models.NomenclatureFilter) ([]models.Nomenclature, error) {
	return s.repository.ListNomenclatures(ctx, filter)
}

func (s *CatalogService) Get(ctx context.Context, id int) (*models.Nomenclature, error) {
	return s.repository.GetNomenclature(ctx, id)
}

func (s *CatalogService) Create(ctx context.Context, actor roles.Actor, req models.NomenclatureRequest) (*models.Nomenclature, error) {
	if err := roles.Require(actor, roles.CapManageCatalog); err != nil {
		return nil, err
	}
	n := &models.Nomenclature{}
	if err := apply(n, req); err != nil {
		return nil, err
	}
	if err := s.repository.InsertNomenclature(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Update edits a nomenclature. The item type is frozen once stock of it exists, since
// serialized and counted items are stored differently.
func (s *CatalogService) Update(ctx context.Context, actor roles.Actor, id int, req models.NomenclatureRequest) (*models.Nomenclature, error) {
	if err := roles.Require(actor, roles.CapManageCatalog); err != nil {
		return nil, err
	}
	n, err := s.repository.GetNomenclature(ctx, id)
	if err != nil {
		return nil, err
	}
	previousType := n.ItemType
	if err := apply(n, req); err != nil {
		return nil, err
	}

	if n.ItemType.IsSerialized() != previousType.IsSerialized() {
		inUse, err := s.repository.HasStock(ctx, id)
		if err != nil {
			return nil, err
		}
		if inUse {
			return nil, custom_error.Conflict("cannot change type of %s: stock of it exists", n.Label())
		}
	}

	if err := s.repository.UpdateNomenclature(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *CatalogService) Delete(ctx context.Context, actor roles.Actor, id int) error {
	if err := roles.Require(actor, roles.CapManageCatalog); err != nil {
		return err
	}
	n, err := s.repository.GetNomenclature(ctx, id)
	if err != nil {
		return err
	}
	inUse, err := s.repository.HasStock(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return custom_error.Conflict("cannot delete %s: stock of it exists", n.Label())
	}
	return s.repository.DeleteNomenclature(ctx, id)
}

func apply(n *models.Nomenclature, req models.NomenclatureRequest) error {
	itemType, err := metadata.NewItemType(req.ItemType)
	if err != nil {
		return custom_error.Invariant("%s", err.Error())
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return custom_error.Invariant("nomenclature name is required")
	}
	if req.MinimumStock < 0 {
		return custom_error.Invariant("minimum stock cannot be negative")
	}

	n.Name = name
	n.Article = strings.TrimSpace(req.Article)
	n.ItemType = itemType
	n.MinimumStock = req.MinimumStock
	n.Description = req.Description
	return nil
}
