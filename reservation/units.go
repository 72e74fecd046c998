package reservation

// UnitID identifies a restaurant location of the group.
type UnitID string

const (
	UnitAsaSul      UnitID = "asa_sul"
	UnitAguasClaras UnitID = "aguas_claras"
	UnitTaguatinga  UnitID = "taguatinga"
	UnitCeilandia   UnitID = "ceilandia"
)

type Unit struct {
	ID   UnitID
	Name string
}

var units = []Unit{
	{ID: UnitAsaSul, Name: "Asa Sul"},
	{ID: UnitAguasClaras, Name: "Águas Claras"},
	{ID: UnitTaguatinga, Name: "Taguatinga"},
	{ID: UnitCeilandia, Name: "Ceilândia"},
}

// Units returns the group's units in display order.
func Units() []Unit {
	return append([]Unit(nil), units...)
}

// LookupUnit returns the unit with the given id.
func LookupUnit(id UnitID) (Unit, bool) {
	for _, u := range units {
		if u.ID == id {
			return u, true
		}
	}
	return Unit{}, false
}
