package artifacts

// An artifact is a declarative description of a forensic collection
// task. Artifacts may declare external tools they need - these are
// fetched and verified by the packaging engine before deployment.

type Parameter struct {
	Name    string `yaml:"name" json:"name"`
	Type    string `yaml:"type,omitempty" json:"type,omitempty"`
	Default string `yaml:"default,omitempty" json:"default,omitempty"`
}

type Source struct {
	Name         string `yaml:"name,omitempty" json:"name,omitempty"`
	Precondition string `yaml:"precondition,omitempty" json:"precondition,omitempty"`
	Query        string `yaml:"query" json:"query"`
}

// A reference to an external binary needed by the artifact. The
// expected hash pins the exact content - a tool we can not verify is
// a tool we refuse to ship.
type ToolDefinition struct {
	Name         string `yaml:"name" json:"name"`
	Url          string `yaml:"url,omitempty" json:"url,omitempty"`
	ExpectedHash string `yaml:"expected_hash" json:"expected_hash"`

	// Declared size in bytes. Zero means unknown.
	Size int64 `yaml:"size,omitempty" json:"size,omitempty"`
}

type Artifact struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Type        string            `yaml:"type" json:"type"`
	Parameters  []*Parameter      `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Sources     []*Source         `yaml:"sources" json:"sources"`
	Tools       []*ToolDefinition `yaml:"tools,omitempty" json:"tools,omitempty"`

	// The original yaml this artifact was parsed from. Preserved
	// verbatim so packages carry exactly what the operator wrote.
	Raw string `yaml:"-" json:"-"`
}
