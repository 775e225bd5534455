package domain

// FieldKind is the data kind of a registered field.
type FieldKind string

const (
	FieldString   FieldKind = "string"
	FieldInt      FieldKind = "integer"
	FieldFloat    FieldKind = "float"
	FieldDate     FieldKind = "date"
	FieldDatetime FieldKind = "datetime"
)

// Field describes one column of a dataset. The descriptive attributes
// (Description, Unit, PossibleValues, Examples, OntologyURL, ReferenceURL)
// feed the metadata endpoints; the query layer only uses Name and Kind.
type Field struct {
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Kind           FieldKind `json:"data_type"`
	Unit           string    `json:"unit,omitempty"`
	PossibleValues []string  `json:"possible_values,omitempty"`
	Examples       []string  `json:"examples,omitempty"`
	Nullable       bool      `json:"nullable"`
	OntologyURL    string    `json:"ontology_url,omitempty"`
	ReferenceURL   string    `json:"url,omitempty"`
}

// DatasetDescriptor is the static catalog entry for one dataset type.
// Immutable after process start; shared read-only by all requests.
type DatasetDescriptor struct {
	Name        string
	Endpoint    string
	Description string
	DateColumn  string
	Fields      []Field
	Scopes      map[string][]string

	byName map[string]int
}

// Finalize builds the field index. Must be called once before the descriptor
// is shared.
func (d *DatasetDescriptor) Finalize() {
	d.byName = make(map[string]int, len(d.Fields))
	for i, f := range d.Fields {
		d.byName[f.Name] = i
	}
}

// Field returns the descriptor for a column name.
func (d *DatasetDescriptor) Field(name string) (Field, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Field{}, false
	}
	return d.Fields[i], true
}

// HasField reports whether name is a registered column.
func (d *DatasetDescriptor) HasField(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// ColumnNames returns all registered column names in declaration order.
func (d *DatasetDescriptor) ColumnNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// ScopeColumns returns the column list for a named scope.
func (d *DatasetDescriptor) ScopeColumns(scope string) ([]string, bool) {
	cols, ok := d.Scopes[scope]
	return cols, ok
}

// ScopeNames returns the registered scope names, sorted by the caller if
// deterministic order matters.
func (d *DatasetDescriptor) ScopeNames() []string {
	names := make([]string, 0, len(d.Scopes))
	for name := range d.Scopes {
		names = append(names, name)
	}
	return names
}
