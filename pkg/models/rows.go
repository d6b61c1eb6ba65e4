package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Row is a strictly-typed destination record.
type Row interface {
	// RowID is the destination primary key.
	RowID() string
	// SourceKey is the identifier of the source document the row came from.
	SourceKey() string
}

// destNamespace scopes the name-based UUIDs generated for migrated rows.
var destNamespace = uuid.MustParse("6f1c2a7e-3b0d-5c84-9e21-4a7d8b0c5f13")

// DestinationID derives the destination primary key from the source identity.
// The same tenant, entity and source id always give the same key.
func DestinationID(tenantID, entity, sourceID string) string {
	return uuid.NewSHA1(destNamespace, []byte(tenantID+"/"+entity+"/"+sourceID)).String()
}

// Person is a row of the people table.
type Person struct {
	ID        string `gorm:"primaryKey"`
	CompanyID string `gorm:"index"`
	SourceID  string
	Source    string

	FirstName *string
	LastName  *string
	Name      string
	Title     *string
	Email     *string
	Phone     *string

	CompanyName *string
	AccountID   *string

	Street     *string
	City       *string
	State      *string
	PostalCode *string
	Country    *string

	PhoneNumbers datatypes.JSON
	Emails       datatypes.JSON
	Websites     datatypes.JSON
	Socials      datatypes.JSON

	CopperID         *int64
	ContactTypeID    *int64
	AssigneeID       *int64
	OwnerID          *int64
	InteractionCount int

	Region            *string
	Segment           *string
	AccountType       *string
	CustomerPriority  *string
	OrganizationLevel *string
	AccountNumber     *string
	AccountOrderID    *string

	DateCreated           *time.Time
	DateModified          *time.Time
	ImportedAt            time.Time
	SyncedFromCopperAPIAt *time.Time `gorm:"column:synced_from_copper_api_at"`
}

func (Person) TableName() string    { return "people" }
func (p *Person) RowID() string     { return p.ID }
func (p *Person) SourceKey() string { return p.SourceID }

// Task is a row of the tasks table.
type Task struct {
	ID        string `gorm:"primaryKey"`
	CompanyID string `gorm:"index"`
	SourceID  string
	Source    string

	Name     string
	Details  *string
	Status   *string
	Priority *string

	RelatedToType *string
	RelatedToID   *string
	AccountID     *string
	PersonID      *string
	OpportunityID *string

	Owner      *string
	OwnerID    *int64
	AssigneeID *int64

	DueDate      *time.Time
	CompletedAt  *time.Time
	ReminderDate *time.Time

	CopperID *int64
	Tags     datatypes.JSON

	AccountNumber  *string
	AccountOrderID *string

	ImportedAt time.Time
}

func (Task) TableName() string    { return "tasks" }
func (t *Task) RowID() string     { return t.ID }
func (t *Task) SourceKey() string { return t.SourceID }

// Opportunity is a row of the opportunities table.
type Opportunity struct {
	ID        string `gorm:"primaryKey"`
	CompanyID string `gorm:"index"`
	SourceID  string
	Source    string

	Name    string
	Details *string
	Value   decimal.NullDecimal `gorm:"type:numeric"`

	Pipeline       *string
	Stage          *string
	Status         *string
	WinProbability *int
	Priority       *string
	LossReason     *string

	AccountID      *string
	CompanyName    *string
	PrimaryContact *string

	Owner   *string
	OwnerID *int64

	CloseDate     *time.Time
	CompletedDate *time.Time
	LeadCreatedAt *time.Time
	LastStageAt   *time.Time
	DaysInStage   *int
	InactiveDays  *int

	ConvertedValue decimal.NullDecimal `gorm:"type:numeric"`
	Currency       *string
	ExchangeRate   decimal.NullDecimal `gorm:"type:numeric"`

	SONumber       *string `gorm:"column:so_number"`
	AccountOrderID *string
	CustomerPO     *string `gorm:"column:customer_po"`

	ShippingAmount decimal.NullDecimal `gorm:"type:numeric"`
	ShippingStatus *string
	ShippingMethod *string
	ShipDate       *time.Time
	DeliveryDate   *time.Time
	TrackingNumber *string
	Carrier        *string

	Subtotal       decimal.NullDecimal `gorm:"type:numeric"`
	TaxAmount      decimal.NullDecimal `gorm:"type:numeric"`
	DiscountAmount decimal.NullDecimal `gorm:"type:numeric"`
	OrderTotal     decimal.NullDecimal `gorm:"type:numeric"`

	PaymentTerms  *string
	PaymentStatus *string

	ProductsInvolved datatypes.JSON

	CopperID         *int64
	CopperURL        *string `gorm:"column:copper_url"`
	Tags             datatypes.JSON
	InteractionCount int
	LastContacted    *time.Time

	Region           *string
	Segment          *string
	AccountType      *string
	CustomerPriority *string
	BusinessModel    *string
	AccountNumber    *string
	SaleType         *string

	SyncStatus     *string
	FishbowlStatus *string

	ImportedAt time.Time
}

func (Opportunity) TableName() string    { return "opportunities" }
func (o *Opportunity) RowID() string     { return o.ID }
func (o *Opportunity) SourceKey() string { return o.SourceID }

// Lead is a row of the leads table.
type Lead struct {
	ID        string `gorm:"primaryKey"`
	CompanyID string `gorm:"index"`
	SourceID  string
	Source    string

	FirstName *string
	LastName  *string
	Name      string
	Email     *string
	Phone     *string
	Title     *string

	Account       *string
	Company       *string
	AccountNumber *string

	Street     *string
	City       *string
	State      *string
	PostalCode *string
	Country    *string

	Status          *string
	LeadTemperature *string
	Value           decimal.NullDecimal `gorm:"type:numeric"`

	ConvertedAt            *time.Time
	ConvertedContactID     *int64
	ConvertedOpportunityID *int64
	ConvertedValue         decimal.NullDecimal `gorm:"type:numeric"`

	OwnedBy *string
	OwnerID *int64

	LastStatusAt     *time.Time
	LastContacted    *time.Time
	FollowUpDate     *time.Time
	InactiveDays     int
	InteractionCount int

	Region           *string
	Segment          *string
	CustomerPriority *string
	BusinessModel    *string
	AccountType      *string

	Details       *string
	ProspectNotes *string

	CopperID  *int64
	CopperURL *string `gorm:"column:copper_url"`
	Tags      datatypes.JSON

	WorkEmail *string
	Website   *string

	ImportedAt time.Time
}

func (Lead) TableName() string    { return "leads" }
func (l *Lead) RowID() string     { return l.ID }
func (l *Lead) SourceKey() string { return l.SourceID }
