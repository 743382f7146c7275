package queue

// Service catalog. Menu indexes match the USSD service submenu.
const (
	ServiceBankTeller = "Bank Teller"
	ServiceDoctor     = "Doctor"
	ServiceGovernment = "Government Service"
	ServiceUtility    = "Utility Payment"

	// ServiceGeneral is the fallback partition for joins that carry no type.
	ServiceGeneral = "General Service"

	// ServiceFilterUnknown is a sentinel some dashboard clients send on
	// call-next; it means "any partition", same as an empty filter.
	ServiceFilterUnknown = "unknown"
)

var serviceCatalog = []string{
	ServiceBankTeller,
	ServiceDoctor,
	ServiceGovernment,
	ServiceUtility,
	ServiceGeneral,
}

// KnownService reports whether serviceType belongs to the enumerated catalog.
func KnownService(serviceType string) bool {
	for _, candidate := range serviceCatalog {
		if candidate == serviceType {
			return true
		}
	}
	return false
}

// ServiceByMenuOption maps a USSD submenu digit to its service type.
func ServiceByMenuOption(option string) (string, bool) {
	switch option {
	case "1":
		return ServiceBankTeller, true
	case "2":
		return ServiceDoctor, true
	case "3":
		return ServiceGovernment, true
	case "4":
		return ServiceUtility, true
	}
	return "", false
}
