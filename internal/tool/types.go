package tool

// Type represents JSON Schema types.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Schema represents a JSON Schema for tool parameters.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// Declaration declares a tool's function signature for the LLM.
type Declaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// ToolDisplay is implemented by all display types used for approval previews
// and tool completion output. The UI uses type switches to render each type.
type ToolDisplay interface {
	isToolDisplay()
}

// StringDisplay is for simple text output (most tools).
type StringDisplay string

func (StringDisplay) isToolDisplay() {}

// DiffDisplay is for file edit operations with unified diff content.
type DiffDisplay struct {
	Path         string
	Diff         string // Unified diff content
	AddedLines   int
	RemovedLines int
}

func (DiffDisplay) isToolDisplay() {}

// CommandDisplay previews a shell command awaiting approval.
type CommandDisplay struct {
	Command    string
	WorkingDir string
	Timeout    int // seconds
}

func (CommandDisplay) isToolDisplay() {}
