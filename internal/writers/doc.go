// Package writers turns optimization results into serialized outputs.
//
// Design:
//   • Writers own all presentation knowledge (text report, TSV, JSON/JSONL, FASTA).
//   • The solver stays domain-only; the app layer stays orchestration-only.
//   • JSON/JSONL go through pkg/api (v1) for a stable wire format.
package writers
