package catalog

// VariantSnapshot is a read-only view of a purchasable SKU as served by the
// inventory service. JSON tags follow the upstream wire format.
type VariantSnapshot struct {
	ID            string `json:"_id"`
	ProductID     string `json:"productId"`
	Size          string `json:"size"`
	Price         int64  `json:"price"`
	DiscountPrice int64  `json:"discountPrice"`
	Stock         int    `json:"stock"`
	IsActive      bool   `json:"isActive"`
}

// ProductSnapshot is a read-only view of a catalog product as served by the
// product service.
type ProductSnapshot struct {
	ID           string   `json:"_id"`
	Name         string   `json:"name"`
	Images       []string `json:"images"`
	Gender       string   `json:"gender"`
	CollectionID string   `json:"collectionId"`
}
