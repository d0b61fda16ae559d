package competition

import (
	"fmt"
	"os"

	"github.com/mcdev12/fieldofplay/go/internal/models"
	"gopkg.in/yaml.v3"
)

// RecordChecker finds the records an attempt can break.
type RecordChecker interface {
	Eligible(gender models.Gender, age int, bodyWeight float64) []models.Record
	Challenged(eligible []models.Record, snatchRequest, cjRequest, totalRequest int) []models.Record
}

// RecordTable is a RecordChecker over a fixed list of records.
type RecordTable struct {
	records []models.Record
}

type recordFile struct {
	Records []models.Record `yaml:"records"`
}

func NewRecordTable(records []models.Record) *RecordTable {
	return &RecordTable{records: records}
}

// LoadRecordTable reads a YAML file with a top-level `records` list.
// An empty path yields an empty table.
func LoadRecordTable(path string) (*RecordTable, error) {
	if path == "" {
		return NewRecordTable(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records file: %w", err)
	}
	var f recordFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse records file: %w", err)
	}
	return NewRecordTable(f.Records), nil
}

func (t *RecordTable) Eligible(gender models.Gender, age int, bodyWeight float64) []models.Record {
	var out []models.Record
	for _, r := range t.records {
		if r.Gender != gender {
			continue
		}
		if age < r.AgeMin || (r.AgeMax > 0 && age > r.AgeMax) {
			continue
		}
		if bodyWeight <= r.BodyWeightMin || (r.BodyWeightMax > 0 && bodyWeight > r.BodyWeightMax) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Challenged keeps the eligible records strictly exceeded by a requested weight.
// A zero request means the lift is not being attempted.
func (t *RecordTable) Challenged(eligible []models.Record, snatchRequest, cjRequest, totalRequest int) []models.Record {
	var out []models.Record
	for _, r := range eligible {
		var req int
		switch r.Lift {
		case models.LiftSnatch:
			req = snatchRequest
		case models.LiftCleanJerk:
			req = cjRequest
		case models.LiftTotal:
			req = totalRequest
		}
		if req > 0 && req > r.Value {
			out = append(out, r)
		}
	}
	return out
}

// Requests derives the snatch, clean and jerk and total requests for an athlete's next
// attempt at the given weight.
func Requests(a models.Athlete, slot, weight int) (snatch, cj, total int) {
	if models.SlotLift(slot) == models.LiftSnatch {
		return weight, 0, 0
	}
	cj = weight
	if sn := a.BestSnatch(); sn > 0 {
		total = sn + weight
	}
	return 0, cj, total
}
