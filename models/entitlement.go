package models

// EntitlementGrant maps a store product to concrete state changes. The
// purchase-webhook handler resolves the product id against ProductGrants
// and applies the grant idempotently, keyed by the payment provider's
// transaction id.
type EntitlementGrant struct {
	ProductID   string
	Name        string
	Gems        int64
	GracePasses int
	BoosterType BoosterType // empty when the product grants no booster
}

// ProductGrants is the static product catalog. Configuration, not logic:
// adding a product is a new entry here, never a new code path.
var ProductGrants = map[string]EntitlementGrant{
	"gems_small": {
		ProductID: "gems_small",
		Name:      "Gem Pouch",
		Gems:      200,
	},
	"gems_large": {
		ProductID: "gems_large",
		Name:      "Gem Chest",
		Gems:      1200,
	},
	"grace_pack": {
		ProductID:   "grace_pack",
		Name:        "Grace Pass Pack",
		GracePasses: 3,
	},
	"starter_bundle": {
		ProductID:   "starter_bundle",
		Name:        "Starter Bundle",
		Gems:        500,
		GracePasses: 1,
		BoosterType: BoosterType2x,
	},
}
