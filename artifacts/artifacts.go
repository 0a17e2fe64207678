/*
   Packrat - Offline collection packager
   Copyright (C) 2026 Velocidex Innovations.

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU Affero General Public License as published
   by the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU Affero General Public License for more details.

   You should have received a copy of the GNU Affero General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package artifacts

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Velocidex/yaml/v2"

	"www.velocidex.com/golang/packrat/utils"
)

var (
	valid_hash_regex = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// Holds multiple artifact definitions.
type Repository struct {
	Data        map[string]*Artifact
	loaded_dirs []string
}

func NewRepository() *Repository {
	return &Repository{
		Data: make(map[string]*Artifact)}
}

func (self *Repository) LoadDirectory(dirname string) (int, error) {
	count := 0
	if utils.InString(self.loaded_dirs, dirname) {
		return count, nil
	}
	dirname = filepath.Clean(dirname)
	self.loaded_dirs = append(self.loaded_dirs, dirname)
	err := filepath.Walk(dirname,
		func(file_path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if !info.IsDir() && (strings.HasSuffix(info.Name(), ".yaml") ||
				strings.HasSuffix(info.Name(), ".yml")) {
				data, err := os.ReadFile(file_path)
				if err != nil {
					return err
				}
				_, err = self.LoadYaml(string(data))
				if err != nil {
					return err
				}

				count += 1
			}
			return nil
		})
	return count, err
}

// Parse a single artifact document, validate it and add it to the
// repository. Parsing is a pure function of the input text - on any
// validation failure nothing is added.
func (self *Repository) LoadYaml(data string) (*Artifact, error) {
	artifact := &Artifact{}
	err := yaml.UnmarshalStrict([]byte(data), artifact)
	if err != nil {
		return nil, newParseError("", "yaml", "%v", err)
	}
	artifact.Raw = data

	err = validate(artifact)
	if err != nil {
		return nil, err
	}

	self.Data[artifact.Name] = artifact
	return artifact, nil
}

func validate(artifact *Artifact) error {
	if artifact.Name == "" {
		return newParseError("", "name", "artifact name is required")
	}

	// Normalize the type.
	artifact.Type = strings.ToLower(artifact.Type)
	switch artifact.Type {
	case "client", "server", "event":
		// These types are acceptable.

	case "":
		return newParseError(artifact.Name, "type",
			"artifact type is required")

	default:
		return newParseError(artifact.Name, "type",
			"invalid artifact type %q", artifact.Type)
	}

	if len(artifact.Sources) == 0 {
		return newParseError(artifact.Name, "sources",
			"artifact must declare at least one source")
	}

	for idx, source := range artifact.Sources {
		if source.Query == "" {
			return newParseError(artifact.Name, "sources",
				"source %d has no query", idx)
		}
	}

	seen_tools := make(map[string]bool)
	for _, tool := range artifact.Tools {
		if tool.Name == "" {
			return newParseError(artifact.Name, "tools",
				"tool name is required")
		}

		if seen_tools[tool.Name] {
			return newParseError(artifact.Name, "tools",
				"tool %v declared twice", tool.Name)
		}
		seen_tools[tool.Name] = true

		// An unverifiable tool is a fatal definition error - we
		// refuse to ship bytes we can not pin to a hash.
		if tool.ExpectedHash == "" {
			return newParseError(artifact.Name, "tools",
				"tool %v has no expected_hash", tool.Name)
		}

		tool.ExpectedHash = strings.ToLower(tool.ExpectedHash)
		if !valid_hash_regex.MatchString(tool.ExpectedHash) {
			return newParseError(artifact.Name, "tools",
				"tool %v expected_hash is not a sha256 hex digest",
				tool.Name)
		}

		if tool.Size < 0 {
			return newParseError(artifact.Name, "tools",
				"tool %v size may not be negative", tool.Name)
		}
	}

	return nil
}

func (self *Repository) Get(name string) (*Artifact, bool) {
	res, pres := self.Data[name]
	return res, pres
}

func (self *Repository) Set(artifact *Artifact) {
	self.Data[artifact.Name] = artifact
}

func (self *Repository) Del(name string) {
	delete(self.Data, name)
}

func (self *Repository) List() []string {
	result := []string{}
	for k := range self.Data {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}
