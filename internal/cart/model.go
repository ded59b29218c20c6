package cart

import "github.com/example/storefront/internal/catalog"

// Line is one product-and-quantity entry. The cart never holds two lines
// for the same product id, and a stored quantity is always >= 1.
type Line struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// documentLine is the persisted shape inside a remote cart document: the
// product reference only, resolved against the catalog on load.
type documentLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// document is the remote persistence unit: one per authenticated identity.
type document struct {
	ID      string         `json:"id,omitempty"`
	OwnerID string         `json:"ownerId"`
	Items   []documentLine `json:"items"`
}

func toDocumentLines(lines []Line) []documentLine {
	items := make([]documentLine, 0, len(lines))
	for _, l := range lines {
		items = append(items, documentLine{ProductID: l.Product.ID, Quantity: l.Quantity})
	}
	return items
}
