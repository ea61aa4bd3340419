package entities

import "math"

// Disease classes in the order of the classifier's output vector
const (
	DiseaseBrownSpot    = "Brown Spot"
	DiseaseHealthy      = "Healthy Plant"
	DiseaseLeafBlast    = "Leaf Blast"
	DiseaseSheathBlight = "Sheath Blight"
	DiseaseUnknown      = "Unknown"
)

var DiseaseClasses = []string{DiseaseBrownSpot, DiseaseHealthy, DiseaseLeafBlast, DiseaseSheathBlight}

// Diagnosis is the resolved classifier output for one leaf image
type Diagnosis struct {
	Disease  string  `json:"disease"`
	Severity float64 `json:"severity"`
}

func (d Diagnosis) Healthy() bool {
	return d.Disease == DiseaseHealthy
}

// ResolveDiagnosis picks the most probable class. A healthy plant always has
// severity 0; severity is rounded to two decimals.
func ResolveDiagnosis(probabilities []float64, severity float64) Diagnosis {
	if len(probabilities) == 0 {
		return Diagnosis{Disease: DiseaseUnknown}
	}

	best := 0
	for i, p := range probabilities {
		if p > probabilities[best] {
			best = i
		}
	}

	disease := DiseaseUnknown
	if best < len(DiseaseClasses) {
		disease = DiseaseClasses[best]
	}
	if disease == DiseaseHealthy {
		severity = 0
	}
	return Diagnosis{
		Disease:  disease,
		Severity: math.Round(severity*100) / 100,
	}
}
