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
package packager

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	errors "github.com/go-errors/errors"

	"www.velocidex.com/golang/packrat/artifacts"
	"www.velocidex.com/golang/packrat/cache"
	"www.velocidex.com/golang/packrat/config"
	"www.velocidex.com/golang/packrat/inventory"
	"www.velocidex.com/golang/packrat/json"
	"www.velocidex.com/golang/packrat/logging"
	"www.velocidex.com/golang/packrat/utils"
)

// The output unit of a build. Immutable once the manifest is
// generated.
type Package struct {
	Path      string
	Artifacts []*artifacts.Artifact
	Tools     map[string]*cache.Entry
	Manifest  *Manifest
}

func (self *Package) ManifestPath() string {
	return filepath.Join(self.Path, ManifestFileName)
}

type Builder struct {
	config_obj *config.Config
	Clock      utils.Clock
}

func NewBuilder(config_obj *config.Config) *Builder {
	return &Builder{
		config_obj: config_obj,
		Clock:      utils.RealClock{},
	}
}

// Assemble a deterministic package directory:
//
//	output/
//	  manifest.json
//	  artifacts/<name>.yaml   (raw definitions, sorted by name)
//	  tools/<name>            (verified binaries)
//
// Two builds with the same artifact set and tool hashes produce byte
// identical manifests apart from the created timestamp.
func (self *Builder) Build(ctx context.Context,
	output_path string,
	set *inventory.ResolvedToolSet,
	entries map[string]*cache.Entry,
	overrides map[string]string) (*Package, error) {

	logger := logging.GetLogger(self.config_obj, &logging.PackagerComponent)

	// Every resolved tool must be present and verified before we
	// touch the output directory. Anything else means the fetch
	// phase lied to us. The caller may pass more entries than the
	// set needs (best effort builds fetch tools for artifacts that
	// are later dropped) - only the set's own tools are packaged.
	missing := []string{}
	packaged := make(map[string]*cache.Entry)
	for _, name := range set.ToolNames() {
		entry, pres := entries[name]
		if !pres || entry.Status != cache.Verified ||
			entry.Hash != set.Tools[name].ExpectedHash {
			missing = append(missing, name)
			continue
		}
		packaged[name] = entry
	}
	if len(missing) > 0 {
		return nil, &PackageIntegrityError{
			Message: "resolved tools missing from the verified cache set",
			Tools:   missing,
		}
	}

	sorted_artifacts := append([]*artifacts.Artifact{}, set.Artifacts...)
	sort.Slice(sorted_artifacts, func(i, j int) bool {
		return sorted_artifacts[i].Name < sorted_artifacts[j].Name
	})

	err := os.MkdirAll(filepath.Join(output_path, ArtifactsSubdir), 0700)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	err = os.MkdirAll(filepath.Join(output_path, ToolsSubdir), 0700)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	for _, artifact := range sorted_artifacts {
		err := os.WriteFile(
			filepath.Join(output_path, ArtifactsSubdir,
				artifact.Name+".yaml"),
			[]byte(artifact.Raw), 0600)
		if err != nil {
			return nil, errors.Wrap(err, 0)
		}
	}

	for _, name := range set.ToolNames() {
		err := self.copyTool(ctx, packaged[name],
			filepath.Join(output_path, ToolsSubdir, name))
		if err != nil {
			return nil, err
		}
	}

	manifest := makeManifest(
		sorted_artifacts, overrides, packaged, self.Clock.Now())

	serialized, err := json.MarshalIndent(manifest)
	if err != nil {
		return nil, err
	}

	err = os.WriteFile(
		filepath.Join(output_path, ManifestFileName), serialized, 0600)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	logger.Info("Built package %v: %v artifacts, %v tools, fingerprint %v",
		output_path, len(sorted_artifacts), len(manifest.Tools),
		manifest.Fingerprint)

	return &Package{
		Path:      output_path,
		Artifacts: sorted_artifacts,
		Tools:     packaged,
		Manifest:  manifest,
	}, nil
}

func (self *Builder) copyTool(ctx context.Context,
	entry *cache.Entry, dest string) error {

	src, err := os.Open(entry.Path)
	if err != nil {
		return errors.Wrap(err, 0)
	}
	defer src.Close()

	// Tools are binaries - make them executable in the package.
	dst, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0700)
	if err != nil {
		return errors.Wrap(err, 0)
	}
	defer dst.Close()

	_, err = utils.Copy(ctx, dst, src)
	return err
}
