package systembundle

const (
	ImportColumn_Email = "email"
	ImportColumn_Role  = "role"
)

type ImportError struct {
	RowNumber    int    `json:"row_number"`
	Email        string `json:"email"`
	ErrorMessage string `json:"error_message"`
}

type ImportErrors []ImportError

// ImportResult counts the rows of a whitelist spreadsheet.
type ImportResult struct {
	Imported int          `json:"imported"`
	Skipped  int          `json:"skipped"`
	Errors   ImportErrors `json:"errors"`
}
