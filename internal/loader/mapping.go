package loader

import (
	"errors"
	"fmt"

	"sales-warehouse/internal/warehouse"
)

// Kind is a warehouse entity. Its value is the target table name.
type Kind string

const (
	Customer Kind = warehouse.CustomerTable
	Product  Kind = warehouse.ProductTable
	Sale     Kind = warehouse.SaleTable
)

var ErrMappingMismatch = errors.New("column mapping mismatch")

// Kinds lists the entities in load order.
func Kinds() []Kind {
	return []Kind{Customer, Product, Sale}
}

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Customer, Product, Sale:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// prepared header -> warehouse column
var mappings = map[Kind]map[string]string{
	Customer: {
		"CustomerID": "customer_id",
		"Name":       "name",
		"Region":     "region",
		"JoinDate":   "join_date",
	},
	Product: {
		"ProductID":   "product_id",
		"ProductName": "product_name",
		"Category":    "category",
		"UnitPrice":   "unit_price",
		"UnitCost":    "unit_cost",
		"UnitProfit":  "unit_profit",
	},
	Sale: {
		"TransactionID": "sale_id",
		"SaleDate":      "sale_date",
		"SaleMonth":     "sale_month",
		"CustomerID":    "customer_id",
		"ProductID":     "product_id",
		"StoreID":       "store_id",
		"CampaignID":    "campaign_id",
		"SaleAmount":    "sale_amount_usd",
	},
}

// Mapping returns a copy of the header mapping for kind.
func Mapping(kind Kind) map[string]string {
	m := make(map[string]string, len(mappings[kind]))
	for k, v := range mappings[kind] {
		m[k] = v
	}
	return m
}
