// Package domain contains persistence models for the mirrored store data.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Entity names label rows in checkpoints, quarantine records and metrics.
const (
	EntityCollection = "collection"
	EntityProduct    = "product"
	EntityVariant    = "variant"
	EntityCustomer   = "customer"
	EntityOrder      = "order"
	EntityLineItem   = "line_item"
)

type CollectionKind string

const (
	CollectionKindCustom CollectionKind = "custom"
	CollectionKindSmart  CollectionKind = "smart"
)

// Collection is a custom or smart collection. Handle should be unique per
// kind but is not enforced as a key.
type Collection struct {
	ID        int64          `gorm:"primaryKey;autoIncrement:false"`
	Handle    string         `gorm:"type:text;not null"`
	Title     string         `gorm:"type:text;not null"`
	Kind      CollectionKind `gorm:"type:text;not null"`
	UpdatedAt *time.Time     `gorm:"autoUpdateTime:false"`
	RawData   datatypes.JSON `gorm:"type:jsonb;not null"`
}

func (Collection) TableName() string { return "collections" }

// Product mirrors one product. RoyaltyPercent is operator-maintained and is
// never written by the sync pipeline.
type Product struct {
	ID             int64            `gorm:"primaryKey;autoIncrement:false"`
	Title          string           `gorm:"type:text;not null"`
	Handle         string           `gorm:"type:text;not null"`
	ProductType    string           `gorm:"type:text;not null"`
	Vendor         string           `gorm:"type:text;not null"`
	Status         string           `gorm:"type:text;not null"`
	CreatedAt      *time.Time       `gorm:"autoCreateTime:false"`
	UpdatedAt      *time.Time       `gorm:"autoUpdateTime:false"`
	PublishedAt    *time.Time       ``
	Tags           string           `gorm:"type:text;not null"`
	RoyaltyPercent *decimal.Decimal `gorm:"type:numeric(5,2)"`
	RawData        datatypes.JSON   `gorm:"type:jsonb;not null"`

	Variants []Variant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

func (Product) TableName() string { return "products" }

// Variant is owned by its product; deleting the product cascades.
type Variant struct {
	ID                int64           `gorm:"primaryKey;autoIncrement:false"`
	ProductID         int64           `gorm:"not null;index"`
	SKU               string          `gorm:"column:sku;type:text;not null"`
	Price             decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	InventoryQuantity int64           `gorm:"not null"`
	RawData           datatypes.JSON  `gorm:"type:jsonb;not null"`
}

func (Variant) TableName() string { return "variants" }

type Customer struct {
	ID        int64          `gorm:"primaryKey;autoIncrement:false"`
	Email     *string        `gorm:"type:text"`
	FirstName string         `gorm:"type:text;not null"`
	LastName  string         `gorm:"type:text;not null"`
	Phone     *string        `gorm:"type:text"`
	RawData   datatypes.JSON `gorm:"type:jsonb;not null"`

	Orders []Order `gorm:"foreignKey:CustomerID;constraint:OnDelete:SET NULL"`
}

func (Customer) TableName() string { return "customers" }

type Order struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement:false"`
	OrderNumber        int64           `gorm:"not null"`
	CustomerID         *int64          `gorm:"index"`
	CreatedAt          *time.Time      `gorm:"autoCreateTime:false;index"`
	UpdatedAt          *time.Time      `gorm:"autoUpdateTime:false"`
	ProcessedAt        *time.Time      ``
	ClosedAt           *time.Time      ``
	FinancialStatus    string          `gorm:"type:text;not null"`
	FulfillmentStatus  *string         `gorm:"type:text"`
	SubtotalPrice      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	TotalShippingPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	TotalTax           decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	TotalPrice         decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency           string          `gorm:"type:text;not null"`
	CustomerEmail      string          `gorm:"type:text;not null"`
	Note               string          `gorm:"type:text;not null"`
	RawData            datatypes.JSON  `gorm:"type:jsonb;not null"`

	LineItems []LineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

type LineItem struct {
	ID        int64           `gorm:"primaryKey;autoIncrement:false"`
	OrderID   int64           `gorm:"not null;index"`
	ProductID *int64          `gorm:"index"`
	VariantID *int64          ``
	Vendor    string          `gorm:"type:text;not null"`
	Title     string          `gorm:"type:text;not null"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Quantity  int64           `gorm:"not null"`
	RawData   datatypes.JSON  `gorm:"type:jsonb;not null"`
}

func (LineItem) TableName() string { return "line_items" }

// SyncCheckpoint records the next page cursor per pass so an interrupted run
// resumes where it left off. Cursor is "" once the pass is done.
type SyncCheckpoint struct {
	Pass       string    `gorm:"primaryKey;type:text"`
	LastCursor string    `gorm:"type:text;not null"`
	LastRowID  int64     `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (SyncCheckpoint) TableName() string { return "sync_checkpoints" }

// QuarantinedRow preserves a row that could not be mapped or stored, with the
// reason, for operator review.
type QuarantinedRow struct {
	ID        snowflake.ID   `gorm:"primaryKey"`
	Entity    string         `gorm:"type:text;not null"`
	RowID     int64          `gorm:"not null"`
	Reason    string         `gorm:"type:text;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null"`
}

func (QuarantinedRow) TableName() string { return "quarantined_rows" }
