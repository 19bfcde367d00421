package form

// Medicine is a catalog entry the lot form can auto-fill from.
type Medicine struct {
	Name               string
	ActiveIngredient   string
	HealthRegistration string
}

// catalog is the local medicine lookup table. Selecting a name fills the
// dependent active-ingredient and DIGEMID registration fields.
var catalog = []Medicine{
	{Name: "Paracetamol 500 mg", ActiveIngredient: "Paracetamol", HealthRegistration: "DIG-2025-0001"},
	{Name: "Amoxicilina 500 mg", ActiveIngredient: "Amoxicilina", HealthRegistration: "DIG-2025-0002"},
	{Name: "Ibuprofeno 400 mg", ActiveIngredient: "Ibuprofeno", HealthRegistration: "DIG-2025-0003"},
	{Name: "Azitromicina 500 mg", ActiveIngredient: "Azitromicina", HealthRegistration: "DIG-2025-0004"},
	{Name: "Metformina 850 mg", ActiveIngredient: "Metformina", HealthRegistration: "DIG-2025-0005"},
}

// Medicines returns the catalog in display order.
func Medicines() []Medicine {
	out := make([]Medicine, len(catalog))
	copy(out, catalog)
	return out
}

// LookupMedicine resolves a catalog entry by name.
func LookupMedicine(name string) (Medicine, bool) {
	for _, med := range catalog {
		if med.Name == name {
			return med, true
		}
	}
	return Medicine{}, false
}
