package schema

type Table struct {
	Name    string
	Columns []*Column
}

type Column struct {
	Name       string
	DataType   string // declared type as written in the schema, may be empty
	NotNull    bool
	Default    string // default expression as written in the schema
	HasDefault bool
	IsPK       bool
}

// TableSets splits two table lists into what both sides share and what only one side has.
type TableSets struct {
	Common     []string
	SourceOnly []string
	DestOnly   []string
}

// ColumnDiff is the column-level counterpart of TableSets for one table.
type ColumnDiff struct {
	Shared     []string
	SourceOnly []string
	DestOnly   []string
}
