package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
)

// Item is the canonical name and current price of a catalog entry.
type Item struct {
	ID        uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
}

// Lookup resolves catalog references at checkout time.
type Lookup interface {
	ResolveItem(ctx context.Context, ref uuid.UUID) (Item, error)
}

type repository struct {
	db *gorm.DB
}

// NewLookup reads the catalog read model.
func NewLookup(db *gorm.DB) Lookup {
	return &repository{db: db}
}

// ResolveItem returns ITEM_NOT_FOUND for unknown or inactive references.
func (r *repository) ResolveItem(ctx context.Context, ref uuid.UUID) (Item, error) {
	if ref == uuid.Nil {
		return Item{}, pkgerrors.New(pkgerrors.CodeItemNotFound, "catalog reference required")
	}
	var row models.CatalogItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND active = ?", ref, true).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Item{}, pkgerrors.New(pkgerrors.CodeItemNotFound, fmt.Sprintf("catalog item %s not found", ref)).
				WithDetails(map[string]any{"catalogRef": ref.String()})
		}
		return Item{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve catalog item")
	}
	return Item{ID: row.ID, Name: row.Name, UnitPrice: row.UnitPrice}, nil
}
