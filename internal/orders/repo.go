package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order and its line items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("User").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser returns the user's orders newest first along with the cursor for
// the following page, if any.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	q := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID)
	if cursor != nil {
		at := cursor.At.UTC()
		q = q.Where("(ordered_at < ?) OR (ordered_at = ? AND id < ?)", at, at, cursor.ID)
	}

	var rows []models.Order
	if err := q.Order("ordered_at DESC").
		Order("id DESC").
		Limit(pageSize + 1).
		Find(&rows).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > pageSize {
		last := rows[pageSize-1]
		next = pagination.EncodeCursor(pagination.Cursor{At: last.OrderedAt, ID: last.ID})
		rows = rows[:pageSize]
	}
	return rows, next, nil
}

// ListAll returns one offset page across all users plus the filtered total.
func (r *repository) ListAll(ctx context.Context, query AdminQuery) ([]models.Order, int64, error) {
	query, err := query.normalized()
	if err != nil {
		return nil, 0, err
	}

	base := r.db.WithContext(ctx).Model(&models.Order{})
	f := query.Filter
	if f.Status != nil {
		base = base.Where("orders.status = ?", *f.Status)
	}
	if f.UserID != nil {
		base = base.Where("orders.user_id = ?", *f.UserID)
	}
	if f.From != nil {
		base = base.Where("orders.ordered_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		base = base.Where("orders.ordered_at <= ?", f.To.UTC())
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Order
	err = base.Session(&gorm.Session{}).
		Preload("Items").
		Preload("User").
		Order(query.Sort.clause()).
		Limit(query.Limit).
		Offset(query.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateStatus returns gorm.ErrRecordNotFound when no order matched.
func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
