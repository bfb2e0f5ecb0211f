package records

import "strconv"

// Record is one row of the checklist dataset. District 0 marks an
// aggregate/unassigned row.
type Record struct {
	District            int    `json:"district"`
	Company             string `json:"company"`
	Structural          int    `json:"structural"`
	Vehicle             int    `json:"vehicle"`
	Other               int    `json:"other"`
	ChecklistsCompleted int    `json:"checklists_completed"`
}

// TotalFires is the number of expected checklists for the record.
func (r Record) TotalFires() int {
	return r.Structural + r.Vehicle + r.Other
}

// Delta is the expected-minus-completed gap.
func (r Record) Delta() int {
	return r.TotalFires() - r.ChecklistsCompleted
}

// Key identifies the physical company across hierarchy changes. Company
// names are only unique within a district, so the district is part of it.
func (r Record) Key() string {
	return strconv.Itoa(r.District) + "/" + r.Company
}

// Store holds the loaded dataset in input order. It is never mutated after
// construction; a reload builds a new Store.
type Store struct {
	records []Record
	source  string
}

// NewStore copies recs so later changes by the caller cannot leak in.
func NewStore(source string, recs []Record) *Store {
	return &Store{records: append([]Record(nil), recs...), source: source}
}

// Records returns the dataset in input order. Callers must not modify it.
func (s *Store) Records() []Record {
	if s == nil {
		return nil
	}
	return s.records
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Source names where the dataset came from.
func (s *Store) Source() string {
	if s == nil {
		return ""
	}
	return s.source
}

// Find returns the first record for company within district.
func (s *Store) Find(district int, company string) (Record, bool) {
	for _, r := range s.Records() {
		if r.District == district && r.Company == company {
			return r, true
		}
	}
	return Record{}, false
}

// Districts lists distinct district ids in order of first appearance,
// skipping the 0 sentinel.
func (s *Store) Districts() []int {
	seen := make(map[int]struct{})
	var out []int
	for _, r := range s.Records() {
		if r.District == 0 {
			continue
		}
		if _, ok := seen[r.District]; ok {
			continue
		}
		seen[r.District] = struct{}{}
		out = append(out, r.District)
	}
	return out
}
