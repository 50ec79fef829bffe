package output

// Output format names accepted by the writers registry.
const (
	FormatText  = "text"
	FormatTSV   = "tsv"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatFASTA = "fasta"
)

// TSVHeader is the canonical header row of the per-evaluation TSV output.
// Keep this as the single source of truth; all writers should use it.
const TSVHeader = "run_id\tsequence_id\trole\tspecification\tpasses\tscore\tlocations\tmessage"
