package solar

import "sort"

// DefaultGroundCover is the ground category used when none is configured.
const DefaultGroundCover = "browned_grass"

// groundReflectance maps a ground-cover category to its albedo. Only one
// entry is active per forecast run.
var groundReflectance = map[string]float64{
	"browned_grass": 0.2,
	"bare_soil":     0.1,
	"fresh_snow":    0.87,
	"dirty_snow":    0.5,
}

// Reflectance returns the ground reflectance coefficient for category.
func Reflectance(category string) (float64, bool) {
	r, ok := groundReflectance[category]
	return r, ok
}

// GroundCovers lists the known categories in sorted order.
func GroundCovers() []string {
	keys := make([]string, 0, len(groundReflectance))
	for k := range groundReflectance {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
