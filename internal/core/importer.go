package core

// Bulk import validation. Each row of an import batch goes through the same
// rules as a single submission, but derivation runs against a merged timeline
// of the vehicle's persisted history plus the other surviving rows of the
// batch, so that rows which are chronological neighbors of each other (and
// not of any persisted record) cross-validate correctly.

// ImportError is a hard validation failure on one row of an import batch.
// Row is 1-based, matching spreadsheet and CSV conventions in user-facing
// messages.
type ImportError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RowWarning ties an advisory warning to the 1-based batch row it fired on.
type RowWarning struct {
	Row     int     `json:"row"`
	Warning Warning `json:"warning"`
}

// ImportResult is the outcome of reconciling a batch. Valid holds the
// surviving rows in input order with all derived fields computed. The commit
// policy is all-or-nothing: when Errors is non-empty the caller must not
// persist any row, however many were individually valid.
type ImportResult struct {
	Valid    []Fillup      `json:"valid"`
	Warnings []RowWarning  `json:"warnings,omitempty"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// OK reports whether the batch may be committed.
func (r ImportResult) OK() bool { return len(r.Errors) == 0 }

// Reconciler validates import batches with the given Validator's rules.
type Reconciler struct {
	Validator *Validator
}

func NewReconciler(v *Validator) *Reconciler {
	if v == nil {
		v = NewValidator()
	}
	return &Reconciler{Validator: v}
}

// Reconcile validates every row of the batch against the vehicle and its
// persisted history.
//
// Field validation runs per row first; rows rejected there contribute their
// errors and drop out of the timeline. Derivation then runs for each
// surviving row against existing plus the other surviving rows, ordered by
// date, so the chronological predecessor of a row may be another row of the
// same batch when that row is nearer than any persisted record.
func (rc *Reconciler) Reconcile(vehicle Vehicle, rows []RawFillup, existing []Fillup) ImportResult {
	v := rc.Validator
	if v == nil {
		v = NewValidator()
	}

	var result ImportResult

	// Provisional IDs so the date tie-break sees batch rows as inserted
	// after every persisted record, in input order. They are cleared before
	// the rows are returned; persistence assigns the real IDs.
	nextID := int64(1)
	for _, h := range existing {
		if h.ID >= nextID {
			nextID = h.ID + 1
		}
	}

	type survivor struct {
		row int // 0-based input index
		f   Fillup
	}
	var survivors []survivor

	for i, raw := range rows {
		f, rej := v.normalize(vehicle, raw)
		if rej != nil {
			for _, fe := range rej.Fields {
				result.Errors = append(result.Errors, ImportError{
					Row:     i + 1,
					Field:   fe.Field,
					Message: fe.Message,
				})
			}
			continue
		}
		f.ID = nextID
		nextID++
		survivors = append(survivors, survivor{row: i, f: f})
	}

	for i := range survivors {
		timeline := make([]Fillup, 0, len(existing)+len(survivors)-1)
		timeline = append(timeline, existing...)
		for j := range survivors {
			if j != i {
				timeline = append(timeline, survivors[j].f)
			}
		}

		warnings := v.derive(vehicle, &survivors[i].f, timeline)
		for _, w := range warnings {
			result.Warnings = append(result.Warnings, RowWarning{
				Row:     survivors[i].row + 1,
				Warning: w,
			})
		}
	}

	for _, s := range survivors {
		f := s.f
		f.ID = 0
		result.Valid = append(result.Valid, f)
	}
	return result
}
