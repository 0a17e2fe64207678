package packager_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"www.velocidex.com/golang/packrat/artifacts"
	"www.velocidex.com/golang/packrat/cache"
	"www.velocidex.com/golang/packrat/config"
	"www.velocidex.com/golang/packrat/inventory"
	"www.velocidex.com/golang/packrat/json"
	"www.velocidex.com/golang/packrat/packager"
	"www.velocidex.com/golang/packrat/utils"
)

type PackagerTestSuite struct {
	suite.Suite

	config_obj *config.Config
	cache      *cache.ToolCache
	builder    *packager.Builder

	set     *inventory.ResolvedToolSet
	entries map[string]*cache.Entry
}

func hashOf(data string) string {
	sha_sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sha_sum[:])
}

func (self *PackagerTestSuite) SetupTest() {
	self.config_obj = config.GetDefaultConfig()
	self.config_obj.CacheDirectory = self.T().TempDir()

	tool_cache, err := cache.NewToolCache(self.config_obj)
	self.Require().NoError(err)
	tool_cache.Clock = utils.MockClock{MockNow: time.Unix(1600000000, 0)}
	self.cache = tool_cache

	self.builder = packager.NewBuilder(self.config_obj)
	self.builder.Clock = utils.MockClock{MockNow: time.Unix(1600000000, 0)}

	// Two artifacts sharing one tool, plus one artifact specific
	// tool.
	repository := artifacts.NewRepository()
	tool_data := map[string]string{
		"T1": "tool one bytes",
		"T2": "tool two bytes",
	}

	definitions := []string{
		fmt.Sprintf(`
name: B.Second
type: client
parameters:
- name: Depth
  default: "3"
sources:
- query: SELECT * FROM info()
tools:
- name: T1
  url: https://example.com/T1
  expected_hash: %v
- name: T2
  url: https://example.com/T2
  expected_hash: %v
`, hashOf(tool_data["T1"]), hashOf(tool_data["T2"])),
		fmt.Sprintf(`
name: A.First
type: client
sources:
- query: SELECT * FROM info()
tools:
- name: T1
  url: https://example.com/T1
  expected_hash: %v
`, hashOf(tool_data["T1"])),
	}

	for _, definition := range definitions {
		_, err := repository.LoadYaml(definition)
		self.Require().NoError(err)
	}

	resolver, err := inventory.NewResolver(repository)
	self.Require().NoError(err)

	self.set, err = resolver.Resolve([]string{"B.Second", "A.First"})
	self.Require().NoError(err)

	self.entries = make(map[string]*cache.Entry)
	for name, data := range tool_data {
		tool, pres := self.set.Tools[name]
		self.Require().True(pres)

		entry, err := self.cache.Store(name, []byte(data), tool)
		self.Require().NoError(err)
		self.entries[name] = entry
	}
}

func (self *PackagerTestSuite) TestBuildLayoutAndManifest() {
	ctx := context.Background()
	output := filepath.Join(self.T().TempDir(), "pkg")

	pkg, err := self.builder.Build(
		ctx, output, self.set, self.entries,
		map[string]string{"Depth": "5"})
	self.Require().NoError(err)

	// Artifacts are serialized sorted by name, raw text verbatim.
	self.Equal([]string{"A.First", "B.Second"},
		[]string{pkg.Artifacts[0].Name, pkg.Artifacts[1].Name})

	raw, err := os.ReadFile(
		filepath.Join(output, "artifacts", "B.Second.yaml"))
	self.Require().NoError(err)
	self.Equal(pkg.Artifacts[1].Raw, string(raw))

	// Tools land under the fixed tool subpath named by identifier.
	tool_bytes, err := os.ReadFile(filepath.Join(output, "tools", "T1"))
	self.Require().NoError(err)
	self.Equal("tool one bytes", string(tool_bytes))

	manifest := pkg.Manifest
	self.Equal(int64(1), manifest.FormatVersion)
	self.Equal(2, len(manifest.Artifacts))
	self.Equal(2, len(manifest.Tools))
	self.Equal("T1", manifest.Tools[0].Name)
	self.Equal("tools/T1", manifest.Tools[0].Path)
	self.Equal(
		int64(len("tool one bytes")+len("tool two bytes")),
		manifest.TotalSize)

	// The parameter override is recorded verbatim.
	self.Equal("B.Second", manifest.Artifacts[1].Name)
	self.Equal("Depth", manifest.Artifacts[1].Parameters[0].Name)
	self.Equal("5", manifest.Artifacts[1].Parameters[0].Value)
}

func (self *PackagerTestSuite) TestManifestIsDeterministic() {
	ctx := context.Background()

	first_dir := filepath.Join(self.T().TempDir(), "first")
	second_dir := filepath.Join(self.T().TempDir(), "second")

	first_pkg, err := self.builder.Build(
		ctx, first_dir, self.set, self.entries, nil)
	self.Require().NoError(err)

	second_pkg, err := self.builder.Build(
		ctx, second_dir, self.set, self.entries, nil)
	self.Require().NoError(err)

	first, err := os.ReadFile(filepath.Join(first_dir, "manifest.json"))
	self.Require().NoError(err)
	second, err := os.ReadFile(filepath.Join(second_dir, "manifest.json"))
	self.Require().NoError(err)

	// Identical inputs, byte identical manifests (the mock clock
	// pins the created timestamp).
	self.Equal(string(first), string(second))

	// The same holds after key normalization.
	first_norm, err := json.MarshalIndentNormalized(first_pkg.Manifest)
	self.Require().NoError(err)
	second_norm, err := json.MarshalIndentNormalized(second_pkg.Manifest)
	self.Require().NoError(err)
	self.Equal(string(first_norm), string(second_norm))
}

func (self *PackagerTestSuite) TestVerifyRoundTrip() {
	ctx := context.Background()
	output := filepath.Join(self.T().TempDir(), "pkg")

	pkg, err := self.builder.Build(
		ctx, output, self.set, self.entries, nil)
	self.Require().NoError(err)

	// Recomputing the fingerprint from the package's own contents
	// reproduces the stored one.
	manifest, err := packager.VerifyPackage(output)
	self.Require().NoError(err)
	self.Equal(pkg.Manifest.Fingerprint, manifest.Fingerprint)

	// Tamper with a shipped tool - verification must fail.
	self.Require().NoError(os.WriteFile(
		filepath.Join(output, "tools", "T1"), []byte("tampered"), 0600))

	_, err = packager.VerifyPackage(output)
	self.Require().Error(err)

	var integrity *packager.PackageIntegrityError
	self.Require().ErrorAs(err, &integrity)
}

func (self *PackagerTestSuite) TestMissingToolIsIntegrityError() {
	ctx := context.Background()
	output := filepath.Join(self.T().TempDir(), "pkg")

	// Drop one entry the resolved set needs.
	delete(self.entries, "T2")

	_, err := self.builder.Build(
		ctx, output, self.set, self.entries, nil)
	self.Require().Error(err)

	var integrity *packager.PackageIntegrityError
	self.Require().ErrorAs(err, &integrity)
	self.Equal([]string{"T2"}, integrity.Tools)

	// Nothing was written.
	_, err = os.Stat(output)
	self.True(os.IsNotExist(err))
}

func (self *PackagerTestSuite) TestFingerprintIgnoresTimestamp() {
	names := []string{"B", "A"}
	tools := []*packager.ManifestTool{
		{Name: "T2", Hash: hashOf("two")},
		{Name: "T1", Hash: hashOf("one")},
	}

	// Order of inputs does not matter, content does.
	first := packager.CalculateFingerprint(names, tools)
	second := packager.CalculateFingerprint(
		[]string{"A", "B"},
		[]*packager.ManifestTool{tools[1], tools[0]})
	self.Equal(first, second)

	third := packager.CalculateFingerprint([]string{"A"}, tools)
	self.NotEqual(first, third)
}

func TestPackager(t *testing.T) {
	suite.Run(t, &PackagerTestSuite{})
}
