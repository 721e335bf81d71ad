package attendance

// Enrollment places a student in a class and optionally a batch.
// It is reference data owned by student administration.
type Enrollment struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	ClassID     string `json:"class_id"`
	BatchID     string `json:"batch_id,omitempty"`
}

// Scope is the population a session addresses: a whole class for theory,
// or one batch of a class for practicals.
type Scope struct {
	ClassID string
	BatchID string
}

// IsTheory reports whether the scope covers the whole class.
func (s Scope) IsTheory() bool {
	return s.BatchID == ""
}

// Includes reports whether the enrolled student belongs to the scope.
func (s Scope) Includes(e Enrollment) bool {
	if e.ClassID != s.ClassID {
		return false
	}
	return s.IsTheory() || e.BatchID == s.BatchID
}

// FilterScope keeps the enrollments that fall inside scope.
func FilterScope(scope Scope, enrollments []Enrollment) []Enrollment {
	out := make([]Enrollment, 0, len(enrollments))
	for _, e := range enrollments {
		if scope.Includes(e) {
			out = append(out, e)
		}
	}
	return out
}
