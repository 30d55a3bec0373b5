package entity

import "strings"

// Location ubicación física de stock.
type Location string

const (
	LocationCanoas Location = "CANOAS"
	LocationPF     Location = "PF"
)

// Locations ubicaciones válidas en orden de presentación.
var Locations = []Location{LocationCanoas, LocationPF}

var locationLabels = map[Location]string{
	LocationCanoas: "Canoas",
	LocationPF:     "Passo Fundo",
}

// ParseLocation normaliza (trim + mayúsculas). Vacío devuelve ("", true).
func ParseLocation(s string) (Location, bool) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return "", true
	}
	loc := Location(v)
	if _, ok := locationLabels[loc]; !ok {
		return "", false
	}
	return loc, true
}

// Valid indica si la ubicación es CANOAS o PF.
func (l Location) Valid() bool {
	_, ok := locationLabels[l]
	return ok
}

// Label nombre legible ("Canoas", "Passo Fundo").
func (l Location) Label() string {
	return locationLabels[l]
}
