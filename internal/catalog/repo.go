package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VariantSnapshot is the authoritative catalog view of a purchasable variant.
type VariantSnapshot struct {
	VariantID   uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Weight      string
	Price       decimal.Decimal
	Quantity    int
}

// Repository reads catalog data needed at checkout. Catalog maintenance
// happens elsewhere.
type Repository interface {
	LookupVariants(ctx context.Context, variantIDs []uuid.UUID) (map[uuid.UUID]VariantSnapshot, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// LookupVariants loads the requested variants joined with their products.
// Missing ids are simply absent from the returned map.
func (r *repository) LookupVariants(ctx context.Context, variantIDs []uuid.UUID) (map[uuid.UUID]VariantSnapshot, error) {
	out := make(map[uuid.UUID]VariantSnapshot, len(variantIDs))
	ids := uniqueIDs(variantIDs)
	if len(ids) == 0 {
		return out, nil
	}

	var rows []VariantSnapshot
	err := r.db.WithContext(ctx).
		Table("variants AS v").
		Select("v.id AS variant_id, v.product_id AS product_id, p.name AS product_name, v.weight AS weight, v.price AS price, v.quantity AS quantity").
		Joins("JOIN products p ON p.id = v.product_id").
		Where("v.id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.VariantID] = row
	}
	return out, nil
}

func uniqueIDs(in []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(in))
	out := make([]uuid.UUID, 0, len(in))
	for _, id := range in {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
