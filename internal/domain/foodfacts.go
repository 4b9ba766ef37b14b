package domain

// FoodFacts holds the Open Food Facts fields retained for enrichment.
// The field catalog mirrors what the OFF product endpoint reliably
// populates; anything absent stays nil.
type FoodFacts struct {
	Barcode          string             `json:"barcode"`
	Status           string             `json:"status"`
	AdditivesN       *int               `json:"additivesN,omitempty"`
	AdditivesTags    []string           `json:"additivesTags,omitempty"`
	Allergens        *string            `json:"allergens,omitempty"`
	Brands           *string            `json:"brands,omitempty"`
	Categories       *string            `json:"categories,omitempty"`
	EcoscoreGrade    *string            `json:"ecoscoreGrade,omitempty"`
	IngredientsN     *int               `json:"ingredientsN,omitempty"`
	IngredientsText  *string            `json:"ingredientsText,omitempty"`
	Labels           *string            `json:"labels,omitempty"`
	LabelsHierarchy  []string           `json:"labelsHierarchy,omitempty"`
	NutritionGrade   *string            `json:"nutritionGrade,omitempty"`
	NovaGroup        *int               `json:"novaGroup,omitempty"`
	Nutriments       map[string]float64 `json:"nutriments,omitempty"`
	PackagingTags    []string           `json:"packagingTags,omitempty"`
	RecyclingTags    []string           `json:"recyclingTags,omitempty"`
	StoresTags       []string           `json:"storesTags,omitempty"`
}

// FoodFacts status values reported back to the output table.
const (
	FoodFactsFound    = "Data Found"
	FoodFactsNoData   = "No Data in Website"
	FoodFactsCallFail = "API Call Unsuccessful"
)
