package models

// FlowType is the direction of a money movement.
type FlowType string

const (
	FlowIncome  FlowType = "income"
	FlowPayment FlowType = "payment"
)

// Valid reports whether t is a known flow type.
func (t FlowType) Valid() bool {
	return t == FlowIncome || t == FlowPayment
}

// Category is a node in the income/payment category hierarchy. A child always
// shares its parent's type and the parent chain is acyclic.
type Category struct {
	Base
	Name        string   `gorm:"not null" json:"name"`
	Code        string   `gorm:"not null;uniqueIndex" json:"code"`
	Type        FlowType `gorm:"not null;index" json:"type"`
	ParentID    *string  `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Sequence    int      `gorm:"not null" json:"sequence"`
	Active      bool     `gorm:"not null" json:"active"`
	Description string   `json:"description"`

	// Relationships
	Parent   *Category  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}
