package etl

import (
	"strings"
	"time"

	"github.com/BartekS5/crmmigrate/pkg/models"
	"gorm.io/datatypes"
)

// defaultSource is stored when a document does not say where it came from.
const defaultSource = "copper"

var emptyList = datatypes.JSON("[]")

// Scope carries the run-wide values every transformed row receives.
type Scope struct {
	TenantID   string
	ImportedAt time.Time
}

// TransformPerson maps a copper_people document to a people row.
func TransformPerson(doc models.Document, s Scope) (*models.Person, error) {
	r := newDocReader(doc)
	sourceID := r.requireID()

	p := &models.Person{
		ID:        models.DestinationID(s.TenantID, models.EntityPeople, sourceID),
		CompanyID: s.TenantID,
		SourceID:  sourceID,
		Source:    r.strOr(defaultSource, "source"),

		FirstName: r.str("firstName", "First Name"),
		LastName:  r.str("lastName", "Last Name"),
		Name:      r.requiredString("name", "name", "Name"),
		Title:     r.str("title", "Title"),
		Email:     r.str("email", "Email"),
		Phone:     r.str("phone", "Phone Number"),

		CompanyName: r.str("companyName", "Company"),
		AccountID:   r.str("companyId", "Company Id"),

		Street:     r.str("street", "Street"),
		City:       r.str("city", "City"),
		State:      r.str("state", "State"),
		PostalCode: r.str("postalCode", "Postal Code"),
		Country:    r.str("country", "Country"),

		PhoneNumbers: r.list(emptyList, "phoneNumbers"),
		Emails:       r.list(emptyList, "emails"),
		Websites:     r.list(emptyList, "websites"),
		Socials:      r.list(emptyList, "socials"),

		CopperID:         r.int64("id", "copper_id", "Copper ID"),
		ContactTypeID:    r.int64("contactTypeId"),
		AssigneeID:       r.int64("assigneeId"),
		OwnerID:          r.int64("ownerId", "Owner Id"),
		InteractionCount: r.count("interactionCount", "Interaction Count"),

		Region:            r.option(models.RegionOptions, "cf_680701", "Region cf_680701"),
		Segment:           r.option(models.SegmentOptions, "cf_698149", "Segment cf_698149"),
		AccountType:       r.option(models.AccountTypeOptions, "cf_675914", "Account Type cf_675914"),
		CustomerPriority:  r.option(models.CustomerPriorityOptions, "cf_698121", "Customer Priority cf_698121"),
		OrganizationLevel: r.option(models.OrganizationLevelOptions, "cf_698362", "Organization Level cf_698362"),
		AccountNumber:     r.str("cf_713477", "Account Number cf_713477"),
		AccountOrderID:    r.str("cf_698467", "Account Order ID cf_698467"),

		DateCreated:           r.time("dateCreated"),
		DateModified:          r.time("dateModified"),
		ImportedAt:            s.ImportedAt,
		SyncedFromCopperAPIAt: r.time("syncedFromCopperApiAt"),
	}
	// People keep their original import time when the document has one.
	if t := r.time("importedAt"); t != nil {
		p.ImportedAt = *t
	}

	if err := r.err(); err != nil {
		return nil, err
	}
	return p, nil
}

// TransformTask maps a copper_tasks document to a tasks row.
func TransformTask(doc models.Document, s Scope) (*models.Task, error) {
	r := newDocReader(doc)
	sourceID := r.requireID()

	t := &models.Task{
		ID:        models.DestinationID(s.TenantID, models.EntityTasks, sourceID),
		CompanyID: s.TenantID,
		SourceID:  sourceID,
		Source:    r.strOr(defaultSource, "source"),

		Name:     r.requiredString("name", "Name", "name"),
		Details:  r.str("Details", "details"),
		Status:   r.str("Status", "status"),
		Priority: r.str("Priority", "priority"),

		RelatedToType: r.str("Related To Type", "relatedToType"),
		RelatedToID:   r.str("Related To Id", "relatedToId"),
		AccountID:     r.str("Company Id", "companyId"),
		PersonID:      r.str("Person Id", "personId"),
		OpportunityID: r.str("Opportunity Id", "opportunityId"),

		Owner:      r.str("Owner", "owner"),
		OwnerID:    r.int64("Owner Id", "ownerId"),
		AssigneeID: r.int64("assigneeId"),

		DueDate:      r.time("dueDate", "Due Date"),
		CompletedAt:  r.time("Completed At", "completedAt"),
		ReminderDate: r.time("Reminder Date", "reminderDate"),

		CopperID: r.int64("Copper ID", "id"),
		Tags:     r.list(nil, "Tags", "tags"),

		AccountNumber:  r.str("Account Number cf_698260"),
		AccountOrderID: r.str("Account Order ID cf_698467"),

		ImportedAt: s.ImportedAt,
	}

	if err := r.err(); err != nil {
		return nil, err
	}
	return t, nil
}

// TransformOpportunity maps a copper_opportunities document to an
// opportunities row.
func TransformOpportunity(doc models.Document, s Scope) (*models.Opportunity, error) {
	r := newDocReader(doc)
	sourceID := r.requireID()

	o := &models.Opportunity{
		ID:        models.DestinationID(s.TenantID, models.EntityOpportunities, sourceID),
		CompanyID: s.TenantID,
		SourceID:  sourceID,
		Source:    r.strOr(defaultSource, "source"),

		Name:    r.requiredString("name", "Name", "name"),
		Details: r.str("Details", "details"),
		Value:   r.money("Value", "value"),

		Pipeline:       r.str("Pipeline", "pipeline"),
		Stage:          r.str("Stage", "stage"),
		Status:         r.str("Status", "status"),
		WinProbability: r.percent("Win Probability", "winProbability"),
		Priority:       r.str("Priority", "priority"),
		LossReason:     r.str("Loss Reason", "lossReason"),

		AccountID:      r.str("companyId", "Company Id"),
		CompanyName:    r.str("Company", "company"),
		PrimaryContact: r.str("Primary Person Contact", "primaryContact"),

		Owner:   r.str("Owner", "owner"),
		OwnerID: r.int64("Owner Id", "ownerId"),

		CloseDate:     r.time("Close Date", "closeDate"),
		CompletedDate: r.time("Completed Date"),
		LeadCreatedAt: r.time("Lead Created At"),
		LastStageAt:   r.time("Last Stage At"),
		DaysInStage:   r.int("Days in Stage"),
		InactiveDays:  r.int("Inactive Days"),

		ConvertedValue: r.money("Converted Value"),
		Currency:       r.str("Currency", "currency"),
		ExchangeRate:   r.money("Exchange Rate"),

		SONumber:       r.str("SO Number cf_698395"),
		AccountOrderID: r.str("Account Order ID cf_698467"),
		CustomerPO:     r.str("Customer PO cf_712764"),

		ShippingAmount: r.money("Shipping Amount cf_698427"),
		ShippingStatus: r.str("Shipping Status cf_706518"),
		ShippingMethod: r.str("Shipping Method cf_698435"),
		ShipDate:       r.time("Ship Date cf_698436"),
		DeliveryDate:   r.time("Delivery Date cf_706517"),
		TrackingNumber: r.str("Tracking Number cf_698433"),
		Carrier:        r.option(models.CarrierOptions, "Carrier cf_706513"),

		Subtotal:       r.money("Subtotal cf_698438"),
		TaxAmount:      r.money("Tax Amount cf_698439"),
		DiscountAmount: r.money("Discount Amount cf_698440"),
		OrderTotal:     r.money("Order Total cf_698441"),

		PaymentTerms:  r.option(models.PaymentTermsOptions, "Payment Terms cf_698434"),
		PaymentStatus: r.str("Payment Status cf_698399"),

		ProductsInvolved: r.list(nil, "Products Involved cf_705070"),

		CopperID:         r.int64("Copper ID", "id"),
		CopperURL:        r.str("copperUrl"),
		Tags:             r.list(nil, "Tags", "tags"),
		InteractionCount: r.count("Interaction Count", "interactionCount"),
		LastContacted:    r.time("Last Contacted"),

		Region:           r.option(models.RegionOptions, "Region cf_680701", "cf_680701"),
		Segment:          r.option(models.SegmentOptions, "Segment cf_698149", "cf_698149"),
		AccountType:      r.option(models.AccountTypeOptions, "Account Type cf_675914", "cf_675914"),
		CustomerPriority: r.option(models.CustomerPriorityOptions, "Customer Priority cf_698121", "cf_698121"),
		BusinessModel:    r.option(models.BusinessModelOptions, "Business Model cf_698356", "cf_698356"),
		AccountNumber:    r.str("Account Number cf_698260"),
		SaleType:         r.str("Sale Type cf_710692"),

		SyncStatus:     r.str("Sync Status cf_698445"),
		FishbowlStatus: r.str("Fishbowl Status cf_698443"),

		ImportedAt: s.ImportedAt,
	}

	if err := r.err(); err != nil {
		return nil, err
	}
	return o, nil
}

// TransformLead maps a copper_leads document to a leads row. A lead without
// a name is named after its first and last name.
func TransformLead(doc models.Document, s Scope) (*models.Lead, error) {
	r := newDocReader(doc)
	sourceID := r.requireID()

	first := r.str("First Name", "firstName")
	last := r.str("Last Name", "lastName")
	name := r.str("name", "Name")
	if name == nil {
		full := strings.TrimSpace(deref(first) + " " + deref(last))
		if full == "" {
			r.fail("name", "required field is missing (no name, first name or last name)")
		}
		name = &full
	}

	l := &models.Lead{
		ID:        models.DestinationID(s.TenantID, models.EntityLeads, sourceID),
		CompanyID: s.TenantID,
		SourceID:  sourceID,
		Source:    r.strOr(defaultSource, "source"),

		FirstName: first,
		LastName:  last,
		Name:      *name,
		Email:     r.str("Email", "email"),
		Phone:     r.str("Phone Number", "phone"),
		Title:     r.str("Title", "title"),

		Account:       r.str("Account", "account"),
		Company:       r.str("company", "Company"),
		AccountNumber: r.str("Account Number cf_698260"),

		Street:     r.str("Street", "street"),
		City:       r.str("City", "city"),
		State:      r.str("State", "State cf_698130", "state"),
		PostalCode: r.str("Postal Code", "postalCode"),
		Country:    r.str("Country", "country"),

		Status:          r.str("Status", "status"),
		LeadTemperature: r.option(models.LeadTemperatureOptions, "Lead Temperature cf_698148"),
		Value:           r.money("Value", "value"),

		ConvertedAt:            r.time("Converted At"),
		ConvertedContactID:     r.int64("Converted Contact Id"),
		ConvertedOpportunityID: r.int64("Converted Opportunity Id"),
		ConvertedValue:         r.money("Converted Value"),

		OwnedBy: r.str("Owned By"),
		OwnerID: r.int64("Owner Id", "ownerId"),

		LastStatusAt:     r.time("Last Status At"),
		LastContacted:    r.time("Last Contacted"),
		FollowUpDate:     r.time("Follow-Up Date cf_683961"),
		InactiveDays:     r.count("Inactive Days"),
		InteractionCount: r.count("Interaction Count", "interactionCount"),

		Region:           r.option(models.RegionOptions, "Region cf_680701"),
		Segment:          r.option(models.SegmentOptions, "Segment cf_698149"),
		CustomerPriority: r.option(models.CustomerPriorityOptions, "Customer Priority cf_698121"),
		BusinessModel:    r.option(models.BusinessModelOptions, "Business Model cf_698356"),
		AccountType:      r.option(models.AccountTypeOptions, "Account Type cf_675914"),

		Details:       r.str("Details", "details"),
		ProspectNotes: r.str("Prospect Notes cf_698137"),

		CopperID:  r.int64("Copper ID", "id"),
		CopperURL: r.str("copperUrl"),
		Tags:      r.list(nil, "Tags", "tags"),

		WorkEmail: r.str("Work Email cf_698503"),
		Website:   r.str("Website", "website"),

		ImportedAt: s.ImportedAt,
	}

	if err := r.err(); err != nil {
		return nil, err
	}
	return l, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
