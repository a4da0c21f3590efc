package models

import "gorm.io/gorm"

// Product is a purchasable course. AuthorID is the vendor that published it.
type Product struct {
	gorm.Model
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`
	AuthorID    uint   `json:"author_id" gorm:"index"`
	Status      string `json:"status" gorm:"default:'publish'"`
	IsDeleted   bool   `gorm:"default:false"`
}
