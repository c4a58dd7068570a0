package models

import "time"

// Order is one purchase order row from the Compra Ágil dataset. Raw date and
// amount text is kept next to the parsed values; parsing failures leave the
// parsed field nil.
type Order struct {
	Code           string     `json:"code"`
	SentDateRaw    string     `json:"-"`
	SentDate       *time.Time `json:"sent_date"`
	Supplier       string     `json:"supplier"`
	SupplierTaxID  string     `json:"supplier_tax_id"`
	SupplierRegion string     `json:"supplier_region"`
	PurchaseRegion string     `json:"purchase_region"`
	Category       string     `json:"category"`
	Commodity      string     `json:"commodity"`
	AmountRaw      string     `json:"-"`
	Amount         *float64   `json:"amount"`
}

// RegionsChile is the fixed enumeration of the 16 Chilean regions used to
// populate the region filter controls. Region filter values must be one of
// these or unconstrained.
var RegionsChile = []string{
	"Arica y Parinacota",
	"Tarapacá",
	"Antofagasta",
	"Atacama",
	"Coquimbo",
	"Valparaíso",
	"Metropolitana de Santiago",
	"Libertador Gral. Bernardo O'Higgins",
	"Maule",
	"Ñuble",
	"Biobío",
	"La Araucanía",
	"Los Ríos",
	"Los Lagos",
	"Aysén del Gral. Carlos Ibáñez del Campo",
	"Magallanes y de la Antártica Chilena",
}

// IsRegion reports whether name is one of the enumerated Chilean regions.
func IsRegion(name string) bool {
	for _, r := range RegionsChile {
		if r == name {
			return true
		}
	}
	return false
}

// FilterState is the fully-defined set of dashboard filters. Empty strings
// mean "unconstrained"; the date bounds are always active.
type FilterState struct {
	HealthOnly     bool
	DateFrom       time.Time
	DateTo         time.Time
	SupplierRegion string
	PurchaseRegion string
	Category       string
	SearchTerm     string
}

type KPISummary struct {
	Suppliers   int     `json:"suppliers"`
	Orders      int     `json:"orders"`
	TotalAmount float64 `json:"total_amount"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Orders   int    `json:"orders"`
}

type RegionAmount struct {
	Region string  `json:"region"`
	Amount float64 `json:"amount"`
}

type MonthlyTrend struct {
	Month     string `json:"month"`
	Orders    int    `json:"orders"`
	Suppliers int    `json:"suppliers"`
}

type SupplierRegionRow struct {
	Region    string `json:"region"`
	Suppliers int    `json:"suppliers"`
	Orders    int    `json:"orders"`
}

type PurchaseRegionRow struct {
	Region string  `json:"region"`
	Orders int     `json:"orders"`
	Amount float64 `json:"amount"`
}

type CategoryDetailRow struct {
	Category    string  `json:"category"`
	Orders      int     `json:"orders"`
	Suppliers   int     `json:"suppliers"`
	TotalAmount float64 `json:"total_amount"`
	AvgAmount   float64 `json:"avg_amount"`
	Share       float64 `json:"share"`
}
