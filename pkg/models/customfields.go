package models

// OptionSet maps Copper dropdown option ids to their labels.
type OptionSet map[int64]string

// Label returns the label for an option id.
func (s OptionSet) Label(id int64) (string, bool) {
	l, ok := s[id]
	return l, ok
}

// Dropdown custom fields as configured in Copper.
var (
	AccountTypeOptions = OptionSet{
		1981470: "Distributor",
		2063862: "Wholesale",
		2066840: "Retail",
	}

	RegionOptions = OptionSet{
		2024067: "Midwest",
		2024070: "Mountain",
		2017104: "Northeast",
		2063731: "Pacific Northwest",
		2024068: "South Central",
		2017114: "Southeast",
		2067847: "Southern California",
		2066273: "AE Team",
		2066272: "House",
	}

	CustomerPriorityOptions = OptionSet{
		2063748: "1",
		2063749: "2",
		2063750: "3",
		2063751: "4",
		2063752: "5",
	}

	LeadTemperatureOptions = OptionSet{
		2063859: "Cold",
		2063860: "Warm",
		2063861: "Hot",
	}

	SegmentOptions = OptionSet{
		2063871: "Convenience",
		2063875: "Smoke & Vape",
		2063874: "Smoke",
		2063869: "Vape",
		2063867: "Liquor",
		2063873: "Club",
		2063866: "Grocery",
		2063870: "Wellness",
		2067805: "Cannabis",
	}

	BusinessModelOptions = OptionSet{
		2107481: "Direct Store Delivery (DSD)",
		2065273: "Retail Only",
		2065272: "Wholesale Only",
	}

	OrganizationLevelOptions = OptionSet{
		2065275: "Corp HQ",
		2065276: "Chain HQ",
		2065277: "Chain RA",
		2065282: "Independent",
	}

	PaymentTermsOptions = OptionSet{
		2066218: "ACH",
		2066261: "COD",
		2066215: "Credit Card",
		2066260: "Due on Receipt",
		2066262: "Net 15",
		2066212: "Net 30",
		2066263: "Net 60",
	}

	CarrierOptions = OptionSet{
		2066266: "LTL Freight Carrier",
		2066267: "UPS",
		2066268: "Will Call",
	}
)
