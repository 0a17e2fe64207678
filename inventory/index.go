package inventory

// The tool index maps tool identifiers to their source metadata. It
// is built once by scanning every parsed artifact, and never mutated
// afterwards. Many artifacts may declare the same tool - that is fine
// as long as they agree exactly on where it comes from and what it
// hashes to.

import (
	"sort"

	"www.velocidex.com/golang/packrat/artifacts"
)

type indexedTool struct {
	tool *artifacts.ToolDefinition

	// Which artifacts declared this tool, in index build order.
	declared_by []string
}

type ToolIndex struct {
	tools map[string]*indexedTool
}

// Scan all artifacts in the repository and build the index. Artifacts
// are visited in sorted name order so conflict reports are stable.
func BuildIndex(repository *artifacts.Repository) (*ToolIndex, error) {
	result := &ToolIndex{
		tools: make(map[string]*indexedTool),
	}

	for _, name := range repository.List() {
		artifact, pres := repository.Get(name)
		if !pres {
			continue
		}

		for _, tool := range artifact.Tools {
			err := result.add(name, tool)
			if err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

func (self *ToolIndex) add(
	artifact_name string, tool *artifacts.ToolDefinition) error {

	existing, pres := self.tools[tool.Name]
	if !pres {
		self.tools[tool.Name] = &indexedTool{
			tool:        tool,
			declared_by: []string{artifact_name},
		}
		return nil
	}

	// A second declaration is a no-op only when it agrees exactly.
	if existing.tool.Url != tool.Url ||
		existing.tool.ExpectedHash != tool.ExpectedHash {
		return &ConflictError{
			Tool:           tool.Name,
			FirstArtifact:  existing.declared_by[0],
			SecondArtifact: artifact_name,
		}
	}

	existing.declared_by = append(existing.declared_by, artifact_name)
	return nil
}

func (self *ToolIndex) Get(name string) (*artifacts.ToolDefinition, bool) {
	item, pres := self.tools[name]
	if !pres {
		return nil, false
	}
	return item.tool, true
}

// Which artifacts declared this tool.
func (self *ToolIndex) DeclaredBy(name string) []string {
	item, pres := self.tools[name]
	if !pres {
		return nil
	}
	return item.declared_by
}

func (self *ToolIndex) List() []string {
	result := []string{}
	for k := range self.tools {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}
