package inventory

import (
	"sort"

	"www.velocidex.com/golang/packrat/artifacts"
	"www.velocidex.com/golang/packrat/utils"
)

// The deduplicated set of tools needed to satisfy a requested
// artifact set. Produced fresh for each build request.
type ResolvedToolSet struct {
	// Requested artifacts in request order (duplicates removed).
	Artifacts []*artifacts.Artifact

	// Tool identifier -> definition. A tool needed by five
	// artifacts appears exactly once.
	Tools map[string]*artifacts.ToolDefinition
}

func (self *ResolvedToolSet) ArtifactNames() []string {
	result := []string{}
	for _, artifact := range self.Artifacts {
		result = append(result, artifact.Name)
	}
	return result
}

func (self *ResolvedToolSet) ToolNames() []string {
	result := []string{}
	for name := range self.Tools {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Derive a reduced set for best effort builds: artifacts needing a
// failed tool are dropped, then tools no surviving artifact needs are
// dropped too. Returns the names of dropped artifacts.
func (self *ResolvedToolSet) WithoutFailedTools(
	failed map[string]error) (*ResolvedToolSet, []string) {

	result := &ResolvedToolSet{
		Tools: make(map[string]*artifacts.ToolDefinition),
	}
	dropped := []string{}

	for _, artifact := range self.Artifacts {
		usable := true
		for _, tool := range artifact.Tools {
			_, pres := failed[tool.Name]
			if pres {
				usable = false
				break
			}
		}

		if !usable {
			dropped = append(dropped, artifact.Name)
			continue
		}

		result.Artifacts = append(result.Artifacts, artifact)
		for _, tool := range artifact.Tools {
			result.Tools[tool.Name] = tool
		}
	}

	return result, dropped
}

// The resolver computes which tools a requested artifact set needs.
// Artifacts only depend on tools, never on other artifacts, so
// resolution is a single hop union rather than a graph traversal.
type Resolver struct {
	repository *artifacts.Repository
	index      *ToolIndex
}

// Building the resolver validates the whole repository for tool
// conflicts up front.
func NewResolver(repository *artifacts.Repository) (*Resolver, error) {
	index, err := BuildIndex(repository)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		repository: repository,
		index:      index,
	}, nil
}

func (self *Resolver) Index() *ToolIndex {
	return self.index
}

func (self *Resolver) Resolve(names []string) (*ResolvedToolSet, error) {
	result := &ResolvedToolSet{
		Tools: make(map[string]*artifacts.ToolDefinition),
	}

	for _, name := range utils.DeduplicateStringSlice(names) {
		artifact, pres := self.repository.Get(name)
		if !pres {
			return nil, &UnknownArtifactError{Name: name}
		}

		result.Artifacts = append(result.Artifacts, artifact)

		for _, tool := range artifact.Tools {
			// The index holds the validated canonical definition.
			indexed, pres := self.index.Get(tool.Name)
			if pres {
				result.Tools[tool.Name] = indexed
			}
		}
	}

	return result, nil
}
