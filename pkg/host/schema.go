package host

type FieldType string

const (
	FieldText   FieldType = "text"
	FieldSelect FieldType = "select"
)

type FieldOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Field is one configuration input the host renders for a provider. The host
// only enforces the declared type.
type Field struct {
	Key         string        `json:"key"`
	Label       string        `json:"label"`
	Type        FieldType     `json:"type"`
	Description string        `json:"description,omitempty"`
	Required    bool          `json:"required,omitempty"`
	Default     string        `json:"default,omitempty"`
	Options     []FieldOption `json:"options,omitempty"`
}

type ConfigSchema struct {
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// Field looks a field up by key.
func (s ConfigSchema) Field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}
