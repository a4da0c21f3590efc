package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"lmscert/models"
	"lmscert/services"
)

// Platform reads the storefront tables: users, products and paid orders. It
// implements services.PurchaseOracle and services.Directory.
type Platform struct {
	db *gorm.DB
}

func NewPlatform(db *gorm.DB) *Platform {
	return &Platform{db: db}
}

type purchaseRow struct {
	ProductID   uint
	Name        string
	PurchasedAt time.Time
}

// paidItems selects one row per paid order line of the user, newest order first.
func (p *Platform) paidItems(ctx context.Context, userID uint) *gorm.DB {
	return p.db.WithContext(ctx).
		Table("orders").
		Joins("JOIN order_items ON order_items.order_id = orders.id AND order_items.deleted_at IS NULL").
		Where("orders.user_id = ? AND orders.status IN ? AND orders.is_deleted = ? AND orders.deleted_at IS NULL",
			userID, models.PaidOrderStatuses, false).
		Order("orders.created_at DESC, orders.id DESC")
}

// HasPurchased reports the date of the most recent paid order holding the product.
func (p *Platform) HasPurchased(ctx context.Context, userID, productID uint) (services.Purchase, error) {
	var rows []purchaseRow
	err := p.paidItems(ctx, userID).
		Select("order_items.product_id AS product_id, orders.created_at AS purchased_at").
		Where("order_items.product_id = ?", productID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return services.Purchase{}, translate(err, "check purchase of product %d", productID)
	}
	if len(rows) == 0 {
		return services.Purchase{}, nil
	}
	return services.Purchase{Purchased: true, PurchaseDate: rows[0].PurchasedAt}, nil
}

// PurchasedProducts lists each product once with its latest purchase date.
func (p *Platform) PurchasedProducts(ctx context.Context, userID uint) ([]services.PurchasedProduct, error) {
	var rows []purchaseRow
	err := p.paidItems(ctx, userID).
		Joins("JOIN products ON products.id = order_items.product_id AND products.deleted_at IS NULL").
		Select("order_items.product_id AS product_id, products.name AS name, orders.created_at AS purchased_at").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "list purchased products")
	}

	seen := make(map[uint]bool, len(rows))
	out := make([]services.PurchasedProduct, 0, len(rows))
	for _, r := range rows {
		if seen[r.ProductID] {
			continue
		}
		seen[r.ProductID] = true
		out = append(out, services.PurchasedProduct{ProductID: r.ProductID, Name: r.Name, PurchasedAt: r.PurchasedAt})
	}
	return out, nil
}

func (p *Platform) FindUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := p.db.WithContext(ctx).Where("is_deleted = ?", false).First(&u, id).Error; err != nil {
		return nil, translate(err, "find user %d", id)
	}
	return &u, nil
}

func (p *Platform) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := p.db.WithContext(ctx).Where("email = ? AND is_deleted = ?", email, false).First(&u).Error; err != nil {
		return nil, translate(err, "find user by email")
	}
	return &u, nil
}

func (p *Platform) FindProduct(ctx context.Context, id uint) (*models.Product, error) {
	var prod models.Product
	if err := p.db.WithContext(ctx).Where("is_deleted = ?", false).First(&prod, id).Error; err != nil {
		return nil, translate(err, "find product %d", id)
	}
	return &prod, nil
}
