package catalog

// Dataset describes a BigQuery dataset as returned by the metadata endpoints.
// CreationTime is epoch milliseconds; optional fields are omitted when the
// backing strategy cannot provide them.
type Dataset struct {
	DatasetID    string `json:"datasetId"`
	ProjectID    string `json:"projectId"`
	FriendlyName string `json:"friendlyName,omitempty"`
	Description  string `json:"description,omitempty"`
	Location     string `json:"location,omitempty"`
	CreationTime int64  `json:"creationTime,omitempty"`
}

// Table describes a table or view inside a dataset.
type Table struct {
	TableID      string `json:"tableId"`
	DatasetID    string `json:"datasetId"`
	ProjectID    string `json:"projectId"`
	FriendlyName string `json:"friendlyName,omitempty"`
	Description  string `json:"description,omitempty"`
	Type         string `json:"type"`
	CreationTime int64  `json:"creationTime,omitempty"`
	NumRows      uint64 `json:"numRows,omitempty"`
}

// Field is a single column of a table schema.
type Field struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Mode        string `json:"mode"`
	Description string `json:"description,omitempty"`
}

// Field modes as reported by BigQuery.
const (
	ModeNullable = "NULLABLE"
	ModeRequired = "REQUIRED"
	ModeRepeated = "REPEATED"
)
