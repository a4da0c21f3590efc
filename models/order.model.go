package models

import (
	"gorm.io/gorm"
)

const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderCompleted  = "completed"
	OrderCancelled  = "cancelled"
	OrderRefunded   = "refunded"
)

// PaidOrderStatuses are the order states that count as a purchase.
var PaidOrderStatuses = []string{OrderCompleted, OrderProcessing}

// Order is a storefront order placed by a user.
type Order struct {
	gorm.Model
	UserID    uint        `json:"user_id" gorm:"index;not null"`
	Status    string      `json:"status" gorm:"index;default:'pending'"`
	Items     []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
	IsDeleted bool        `gorm:"default:false"`
}

// OrderItem is one product line of an order.
type OrderItem struct {
	gorm.Model
	OrderID   uint `json:"order_id" gorm:"index;not null"`
	ProductID uint `json:"product_id" gorm:"index;not null"`
	Quantity  int  `json:"quantity" gorm:"default:1"`
}
