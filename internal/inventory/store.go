package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Result describes a variant after a successful stock mutation.
type Result struct {
	VariantID uuid.UUID
	ProductID uuid.UUID
	Remaining int
}

// ShortfallDetails is attached to INSUFFICIENT_STOCK errors.
type ShortfallDetails struct {
	VariantID uuid.UUID `json:"variantId"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
	Shortfall int       `json:"shortfall"`
}

// Store mutates variant stock. Every mutation is a single conditional
// statement, so concurrent callers can never drive quantity below zero.
type Store interface {
	WithTx(tx *gorm.DB) Store
	TryDecrement(ctx context.Context, variantID uuid.UUID, amount int) (*Result, error)
	Increment(ctx context.Context, variantID uuid.UUID, amount int) (*Result, error)
	Available(ctx context.Context, variantID uuid.UUID) (int, error)
}

type store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore builds a stock store bound to the provided DB.
func NewStore(db *gorm.DB) Store {
	return &store{db: db, now: time.Now}
}

func (s *store) WithTx(tx *gorm.DB) Store {
	if tx == nil {
		return s
	}
	return &store{db: tx, now: s.now}
}

// TryDecrement removes amount units from the variant, or fails without
// touching stock when the variant is missing or holds fewer than amount.
func (s *store) TryDecrement(ctx context.Context, variantID uuid.UUID, amount int) (*Result, error) {
	if err := validateMutation(variantID, amount); err != nil {
		return nil, err
	}

	var result *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockProduct(tx, variantID); err != nil {
			return err
		}
		res := tx.Model(&models.Variant{}).
			Where("id = ? AND quantity >= ?", variantID, amount).
			UpdateColumns(map[string]any{
				"quantity":   gorm.Expr("quantity - ?", amount),
				"updated_at": s.now().UTC(),
			})
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
		}
		if res.RowsAffected == 0 {
			return s.rejection(tx, variantID, amount)
		}

		current, err := s.refresh(tx, variantID)
		if err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Increment returns amount units to the variant. It is the compensating
// action for TryDecrement.
func (s *store) Increment(ctx context.Context, variantID uuid.UUID, amount int) (*Result, error) {
	if err := validateMutation(variantID, amount); err != nil {
		return nil, err
	}

	var result *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockProduct(tx, variantID); err != nil {
			return err
		}
		res := tx.Model(&models.Variant{}).
			Where("id = ?", variantID).
			UpdateColumns(map[string]any{
				"quantity":   gorm.Expr("quantity + ?", amount),
				"updated_at": s.now().UTC(),
			})
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment stock")
		}
		if res.RowsAffected == 0 {
			return variantNotFound(variantID)
		}

		current, err := s.refresh(tx, variantID)
		if err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Available reads the current quantity without mutating it.
func (s *store) Available(ctx context.Context, variantID uuid.UUID) (int, error) {
	var variant models.Variant
	err := s.db.WithContext(ctx).
		Select("id", "quantity").
		Where("id = ?", variantID).
		First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, variantNotFound(variantID)
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	return variant.Quantity, nil
}

func (s *store) rejection(tx *gorm.DB, variantID uuid.UUID, requested int) error {
	var variant models.Variant
	err := tx.Select("id", "quantity").Where("id = ?", variantID).First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return variantNotFound(variantID)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for variant").
		WithDetails(shortfall(variantID, requested, variant.Quantity))
}

// shortfall is never below one: the quantity is read after the failed update
// and a concurrent increment may already have refilled the variant.
func shortfall(variantID uuid.UUID, requested, available int) ShortfallDetails {
	missing := requested - available
	if missing < 1 {
		missing = 1
	}
	return ShortfallDetails{
		VariantID: variantID,
		Requested: requested,
		Available: available,
		Shortfall: missing,
	}
}

// lockProduct takes a row lock on the variant's product so that mutations of
// sibling variants run one after another and each in_stock recompute sees the
// committed quantities of the others.
func (s *store) lockProduct(tx *gorm.DB, variantID uuid.UUID) error {
	var variant models.Variant
	err := tx.Select("id", "product_id").Where("id = ?", variantID).First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return variantNotFound(variantID)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}

	var product models.Product
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", variant.ProductID).
		First(&product).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
	}
	return nil
}

// refresh reads the new quantity and recomputes the owning product's
// in_stock flag inside the same transaction as the mutation.
func (s *store) refresh(tx *gorm.DB, variantID uuid.UUID) (*Result, error) {
	var variant models.Variant
	if err := tx.Select("id", "product_id", "quantity").Where("id = ?", variantID).First(&variant).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload variant")
	}

	err := tx.Exec(
		"UPDATE products SET in_stock = EXISTS (SELECT 1 FROM variants WHERE product_id = ? AND quantity > 0), updated_at = ? WHERE id = ?",
		variant.ProductID, s.now().UTC(), variant.ProductID,
	).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh product stock flag")
	}

	return &Result{
		VariantID: variant.ID,
		ProductID: variant.ProductID,
		Remaining: variant.Quantity,
	}, nil
}

func validateMutation(variantID uuid.UUID, amount int) error {
	if variantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id required")
	}
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive").
			WithDetails(map[string]any{"amount": amount})
	}
	return nil
}

func variantNotFound(variantID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found").
		WithDetails(map[string]any{"variantId": variantID})
}
