package airtime

// Bundle is a purchasable data bundle.
type Bundle struct {
	ID        string
	Size      string
	AmountNGN int
}

// bundleCatalog is keyed by the USSD menu option.
var bundleCatalog = map[string]Bundle{
	"1": {ID: "1", Size: "100MB", AmountNGN: 100},
	"2": {ID: "2", Size: "500MB", AmountNGN: 300},
	"3": {ID: "3", Size: "1GB", AmountNGN: 500},
	"4": {ID: "4", Size: "2GB", AmountNGN: 800},
}

// BundleByID resolves a menu selection to its catalog entry.
func BundleByID(id string) (Bundle, bool) {
	bundle, ok := bundleCatalog[id]
	return bundle, ok
}

// MinAmountNGN and MaxAmountNGN bound a single airtime purchase.
const (
	MinAmountNGN = 1
	MaxAmountNGN = 10000
)

// ValidAmount reports whether amountNGN is purchasable in one transaction.
func ValidAmount(amountNGN int) bool {
	return amountNGN >= MinAmountNGN && amountNGN <= MaxAmountNGN
}
