package models

// Record is a standing record for one lift in an age and bodyweight bracket.
// The bodyweight bracket is (BodyWeightMin, BodyWeightMax].
type Record struct {
	Federation    string   `json:"federation" yaml:"federation"`
	Name          string   `json:"name" yaml:"name"`
	Gender        Gender   `json:"gender" yaml:"gender"`
	AgeMin        int      `json:"age_min" yaml:"age_min"`
	AgeMax        int      `json:"age_max" yaml:"age_max"`
	BodyWeightMin float64  `json:"body_weight_min" yaml:"body_weight_min"`
	BodyWeightMax float64  `json:"body_weight_max" yaml:"body_weight_max"`
	Lift          LiftType `json:"lift" yaml:"lift"`
	Value         int      `json:"value" yaml:"value"`
	Holder        string   `json:"holder,omitempty" yaml:"holder,omitempty"`
}
