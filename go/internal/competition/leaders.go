package competition

import (
	"sort"

	"github.com/mcdev12/fieldofplay/go/internal/models"
)

// Leaders returns the best n athletes of a category by total, lighter bodyweight first
// on ties. Athletes without a total are left out.
func Leaders(athletes []models.Athlete, category string, n int) []models.Athlete {
	var ranked []models.Athlete
	for _, a := range athletes {
		if a.Category == category && a.Total() > 0 {
			ranked = append(ranked, a)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ti, tj := ranked[i].Total(), ranked[j].Total(); ti != tj {
			return ti > tj
		}
		return ranked[i].BodyWeight < ranked[j].BodyWeight
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
