package quote

import "github.com/OtmaneZ/btp-automation-system/internal/domain/shared/valueobject"

// ServiceType is a predefined catalog entry a line item can be built from
type ServiceType struct {
	ID        int64
	Name      string
	Unit      string // m², m³, unité, forfait, heure
	UnitPrice valueobject.Money
}

type catalogEntry struct {
	name  string
	unit  string
	price int64
}

var defaultCatalog = []catalogEntry{
	{"Maçonnerie générale", "m²", 45},
	{"Chape béton", "m²", 22},
	{"Enduit façade", "m²", 28},
	{"Dalle béton", "m²", 45},
	{"Plomberie complète", "forfait", 2500},
	{"Création point d'eau", "unité", 350},
	{"Installation WC", "unité", 180},
	{"Électricité complète", "forfait", 3500},
	{"Point luminaire", "unité", 85},
	{"Prise électrique", "unité", 65},
	{"Peinture murs", "m²", 25},
	{"Peinture façade", "m²", 35},
	{"Carrelage sol", "m²", 35},
	{"Carrelage mural", "m²", 42},
	{"Parquet flottant", "m²", 28},
	{"Isolation combles", "m²", 30},
	{"Cloisons placo", "m²", 40},
	{"Porte intérieure", "unité", 200},
	{"Fenêtre PVC", "m²", 320},
	{"Couverture tuiles", "m²", 55},
	{"Terrassement", "m³", 25},
	{"Main d'œuvre", "heure", 45},
}

// DefaultServiceTypes returns the seeded catalog, without ids
func DefaultServiceTypes() []ServiceType {
	out := make([]ServiceType, len(defaultCatalog))
	for i, e := range defaultCatalog {
		out[i] = ServiceType{Name: e.name, Unit: e.unit, UnitPrice: valueobject.NewMoneyFromInt(e.price)}
	}
	return out
}
