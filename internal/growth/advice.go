package growth

// Risk is a coarse disease-pressure level.
type Risk string

const (
	RiskLow      Risk = "low"
	RiskModerate Risk = "moderate"
	RiskHigh     Risk = "high"
)

// StressIndicators summarises every multiplier currently limiting growth.
type StressIndicators struct {
	Water        float64 `json:"water"`
	Nitrogen     float64 `json:"nitrogen"`
	Temperature  float64 `json:"temperature"`
	SoilPH       float64 `json:"soil_ph"`
	SoilNitrogen float64 `json:"soil_nitrogen"`
	Overall      float64 `json:"overall"`
}

// Advice holds the management recommendations for the last simulated day.
type Advice struct {
	Irrigation        string `json:"irrigation"`
	Fertilizer        string `json:"fertilizer"`
	DiseasePrevention string `json:"disease_prevention"`
}

// StressIndicators reports the limiting factors of the last simulated day.
func (s *Simulator) StressIndicators() StressIndicators {
	st := s.state
	si := StressIndicators{
		Water:        st.WaterStress,
		Nitrogen:     st.NitrogenStress,
		Temperature:  TemperatureResponse(st.Conditions.Temperature),
		SoilPH:       SoilPHPenalty(s.soil.PH),
		SoilNitrogen: SoilNitrogenPenalty(s.soil.Nitrogen),
	}
	si.Overall = si.Water * si.Nitrogen * si.Temperature * si.SoilPH * si.SoilNitrogen
	return si
}

// DiseaseRisk rates fungal pressure from humidity, temperature and airflow.
func (s *Simulator) DiseaseRisk() Risk {
	return DiseaseRisk(s.state.Conditions)
}

// DiseaseRisk rates fungal pressure for a set of conditions.
func DiseaseRisk(c Conditions) Risk {
	switch {
	case c.Humidity > 80 && c.Temperature >= 15 && c.Temperature <= 30:
		return RiskHigh
	case c.Humidity > 60, c.Humidity > 50 && c.WindSpeed < 1:
		return RiskModerate
	default:
		return RiskLow
	}
}

// Advice maps the current stress and weather onto recommendations.
func (s *Simulator) Advice() Advice {
	st := s.state
	c := st.Conditions

	var a Advice
	switch {
	case st.WaterStress < 0.5:
		a.Irrigation = "Irrigate immediately: severe water deficit"
	case st.WaterStress < 0.9:
		a.Irrigation = "Increase irrigation"
	case c.WindSpeed > 5:
		a.Irrigation = "Irrigation adequate; high wind raises evaporation, monitor soil moisture"
	case c.Humidity > 80:
		a.Irrigation = "Reduce irrigation; high humidity limits evaporation"
	default:
		a.Irrigation = "Irrigation adequate"
	}

	switch {
	case st.NitrogenStress <= MinNitrogenStress:
		a.Fertilizer = "Apply nitrogen fertilizer: severe deficiency"
	case st.NitrogenStress < 0.7:
		a.Fertilizer = "Top-dress with nitrogen"
	case SoilNitrogenPenalty(s.soil.Nitrogen) < 1:
		a.Fertilizer = "Soil nitrogen low; consider organic amendments"
	default:
		a.Fertilizer = "Fertilization adequate"
	}

	switch risk := DiseaseRisk(c); {
	case risk == RiskHigh:
		a.DiseasePrevention = "High disease risk: apply preventive fungicide and improve airflow"
	case risk == RiskModerate:
		a.DiseasePrevention = "Moderate disease risk: scout for leaf spots"
	case c.WindSpeed > 8:
		a.DiseasePrevention = "Strong wind: check for lodging and mechanical damage"
	default:
		a.DiseasePrevention = "Low disease risk"
	}
	return a
}
