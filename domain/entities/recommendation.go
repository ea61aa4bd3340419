package entities

// ItemKind tags whether a ranked item came from the model or was synthesized
type ItemKind string

const (
	ItemParsed      ItemKind = "parsed"
	ItemPlaceholder ItemKind = "placeholder"
)

// RecommendationCount is the number of ranked items always returned
const RecommendationCount = 3

// RecommendationItem is one ranked crop card
type RecommendationItem struct {
	Rank      int      `json:"rank"`
	Label     string   `json:"label"`
	Rationale string   `json:"rationale"`
	Kind      ItemKind `json:"kind"`
}

// SoilParams holds the soil test values entered by the farmer
type SoilParams struct {
	Nitrogen   float64 `json:"nitrogen"`
	Phosphorus float64 `json:"phosphorus"`
	Potassium  float64 `json:"potassium"`
	PH         float64 `json:"ph"`
}

// WeatherReading is a current weather observation
type WeatherReading struct {
	Temperature float64 `json:"temp"`
	Humidity    float64 `json:"humidity"`
	Rainfall    float64 `json:"rainfall"`
	Description string  `json:"desc"`
	Icon        string  `json:"icon"`
}

// DefaultWeather is returned whenever the weather service is unavailable
func DefaultWeather() WeatherReading {
	return WeatherReading{
		Temperature: 25,
		Humidity:    60,
		Rainfall:    0,
		Description: "Clear",
		Icon:        "01d",
	}
}

// Location identifies where and when a crop is to be grown
type Location struct {
	State    string `json:"state"`
	District string `json:"district"`
	Month    string `json:"month"`
}
