package packager

// The manifest is the package's durable record: everything needed to
// audit what was shipped and verify it later. Generation is a pure
// function of the assembled package - no network, no disk beyond the
// final write.

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"www.velocidex.com/golang/packrat/artifacts"
	"www.velocidex.com/golang/packrat/cache"
)

const (
	ManifestFileName      = "manifest.json"
	ManifestFormatVersion = 1

	ArtifactsSubdir = "artifacts"
	ToolsSubdir     = "tools"
)

type ManifestParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type ManifestArtifact struct {
	Name       string               `json:"name"`
	Parameters []*ManifestParameter `json:"parameters,omitempty"`
}

type ManifestTool struct {
	Name string `json:"name"`
	Hash string `json:"hash"`
	Size int64  `json:"size"`
	Path string `json:"path"`
}

type Manifest struct {
	Fingerprint   string              `json:"fingerprint"`
	Created       string              `json:"created"`
	Artifacts     []*ManifestArtifact `json:"artifacts"`
	Tools         []*ManifestTool     `json:"tools"`
	TotalSize     int64               `json:"total_size"`
	FormatVersion int64               `json:"format_version"`
}

// The fingerprint covers the sorted artifact names and the sorted
// tool name:hash pairs. The creation timestamp is deliberately
// excluded so identical inputs always produce identical
// fingerprints.
func CalculateFingerprint(artifact_names []string,
	tools []*ManifestTool) string {

	names := append([]string{}, artifact_names...)
	sort.Strings(names)

	pairs := []string{}
	for _, tool := range tools {
		pairs = append(pairs, tool.Name+":"+tool.Hash)
	}
	sort.Strings(pairs)

	sha_sum := sha256.New()
	for _, name := range names {
		fmt.Fprintf(sha_sum, "artifact:%s\n", name)
	}
	for _, pair := range pairs {
		fmt.Fprintf(sha_sum, "tool:%s\n", pair)
	}

	return hex.EncodeToString(sha_sum.Sum(nil))
}

// Build the manifest for the given artifact list and tool entries.
// Artifacts and tools are emitted in sorted order so two builds of
// the same inputs serialize byte identically (apart from the
// creation timestamp).
func makeManifest(sorted_artifacts []*artifacts.Artifact,
	overrides map[string]string,
	entries map[string]*cache.Entry,
	created time.Time) *Manifest {

	result := &Manifest{
		Created:       created.UTC().Format(time.RFC3339),
		FormatVersion: ManifestFormatVersion,
	}

	for _, artifact := range sorted_artifacts {
		manifest_artifact := &ManifestArtifact{
			Name: artifact.Name,
		}

		// Parameters are recorded verbatim: the declared default,
		// or the caller's override. Nothing else is invented.
		for _, parameter := range artifact.Parameters {
			value := parameter.Default
			override, pres := overrides[parameter.Name]
			if pres {
				value = override
			}
			manifest_artifact.Parameters = append(
				manifest_artifact.Parameters, &ManifestParameter{
					Name:  parameter.Name,
					Value: value,
				})
		}

		result.Artifacts = append(result.Artifacts, manifest_artifact)
	}

	tool_names := []string{}
	for name := range entries {
		tool_names = append(tool_names, name)
	}
	sort.Strings(tool_names)

	for _, name := range tool_names {
		entry := entries[name]
		result.Tools = append(result.Tools, &ManifestTool{
			Name: name,
			Hash: entry.Hash,
			Size: entry.Size,
			Path: ToolsSubdir + "/" + name,
		})
		result.TotalSize += entry.Size
	}

	artifact_names := []string{}
	for _, artifact := range sorted_artifacts {
		artifact_names = append(artifact_names, artifact.Name)
	}
	result.Fingerprint = CalculateFingerprint(artifact_names, result.Tools)

	return result
}
