// pkg/api/result_v1.go
package api

// ResultV1 is the stable JSON/JSONL schema for one optimization run.
// Keep fields, names, and types stable. Add new fields only with ",omitempty".
type ResultV1 struct {
	RunID          string         `json:"run_id"`
	SequenceID     string         `json:"sequence_id"`
	SourceFile     string         `json:"source_file,omitempty"`
	Success        bool           `json:"success"`
	Message        string         `json:"message,omitempty"`
	Sequence       string         `json:"sequence"`
	Original       string         `json:"original"`
	Length         int            `json:"length"`
	Circular       bool           `json:"circular,omitempty"`
	EditCount      int            `json:"edit_count"`
	Edits          []EditV1       `json:"edits,omitempty"`
	Constraints    []EvaluationV1 `json:"constraints"`
	Objectives     []EvaluationV1 `json:"objectives"`
	ObjectiveTotal float64        `json:"objective_total"`
	Rounds         int            `json:"rounds"`
	Iterations     int            `json:"iterations"`
	Steps          []StepV1       `json:"steps,omitempty"`
}

// StepV1 is one accepted batch of mutations, in the order the solver kept
// them. Score is the constraint violation after a phase 1 step and the
// objective total after a phase 2 step.
type StepV1 struct {
	Phase     int          `json:"phase"`
	Iteration int          `json:"iteration"`
	Score     float64      `json:"score"`
	Mutations []MutationV1 `json:"mutations"`
}

// MutationV1 writes Seq over [Start, End).
type MutationV1 struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Seq   string `json:"seq"`
}

// EditV1 is a run of changed bases, 0-based.
type EditV1 struct {
	Start    int    `json:"start"`
	Original string `json:"original"`
	Final    string `json:"final"`
}

// EvaluationV1 is the score of one specification.
type EvaluationV1 struct {
	Specification string       `json:"specification"`
	Passes        bool         `json:"passes"`
	Score         float64      `json:"score"`
	Boost         float64      `json:"boost,omitempty"`
	Locations     []LocationV1 `json:"locations,omitempty"`
	Message       string       `json:"message,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// LocationV1 is a half-open interval; Strand is "+", "-" or ".".
type LocationV1 struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Strand string `json:"strand"`
}
