package cache_test

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"www.velocidex.com/golang/packrat/artifacts"
	"www.velocidex.com/golang/packrat/cache"
	"www.velocidex.com/golang/packrat/config"
	"www.velocidex.com/golang/packrat/utils"
)

type CacheTestSuite struct {
	suite.Suite

	config_obj *config.Config
	cache      *cache.ToolCache
}

func (self *CacheTestSuite) SetupTest() {
	self.config_obj = config.GetDefaultConfig()
	self.config_obj.CacheDirectory = self.T().TempDir()

	tool_cache, err := cache.NewToolCache(self.config_obj)
	self.Require().NoError(err)

	tool_cache.Clock = utils.MockClock{
		MockNow: time.Unix(1600000000, 0),
	}
	self.cache = tool_cache
}

func hashOf(data string) string {
	sha_sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sha_sum[:])
}

func (self *CacheTestSuite) tool(name, data string) *artifacts.ToolDefinition {
	return &artifacts.ToolDefinition{
		Name:         name,
		Url:          "https://example.com/" + name,
		ExpectedHash: hashOf(data),
	}
}

func (self *CacheTestSuite) TestStoreAndLookup() {
	data := "tool binary content"
	tool := self.tool("mytool", data)

	entry, err := self.cache.Store("mytool", []byte(data), tool)
	self.Require().NoError(err)
	self.Equal(cache.Verified, entry.Status)
	self.Equal(hashOf(data), entry.Hash)
	self.Equal(int64(len(data)), entry.Size)

	// The blob exists and is content addressed by its hash.
	blob, err := os.ReadFile(entry.Path)
	self.Require().NoError(err)
	self.Equal(data, string(blob))
	self.Equal(hashOf(data), filepath.Base(entry.Path))

	// Lookup re-verifies and returns the same entry.
	entry2, err := self.cache.Lookup("mytool", hashOf(data))
	self.Require().NoError(err)
	self.Equal(entry.Hash, entry2.Hash)
	self.Equal(cache.Verified, entry2.Status)
}

func (self *CacheTestSuite) TestStoreRejectsWrongContent() {
	tool := self.tool("mytool", "expected content")

	// Supply different bytes than the hash promises.
	_, err := self.cache.Store("mytool", []byte("evil content"), tool)
	self.Require().Error(err)

	var mismatch *cache.HashMismatchError
	self.Require().ErrorAs(err, &mismatch)
	self.Equal("mytool", mismatch.Tool)
	self.Equal(tool.ExpectedHash, mismatch.Expected)
	self.Equal(hashOf("evil content"), mismatch.Actual)

	// Nothing was written at all.
	entries, err := os.ReadDir(
		filepath.Join(self.config_obj.CacheDirectory, "blobs"))
	self.Require().NoError(err)
	self.Equal(0, len(entries))

	_, err = self.cache.Lookup("mytool", tool.ExpectedHash)
	self.ErrorIs(err, cache.NotFoundError)
}

func (self *CacheTestSuite) TestChangedExpectationIsAMiss() {
	data := "version one"
	tool := self.tool("mytool", data)

	_, err := self.cache.Store("mytool", []byte(data), tool)
	self.Require().NoError(err)

	// The artifact definition moved to a new version of the tool.
	// The cache must not serve the old content.
	_, err = self.cache.Lookup("mytool", hashOf("version two"))
	self.ErrorIs(err, cache.NotFoundError)

	// The old expectation still hits.
	_, err = self.cache.Lookup("mytool", hashOf(data))
	self.NoError(err)
}

func (self *CacheTestSuite) TestCorruptBlobIsEscalated() {
	data := "tool binary content"
	tool := self.tool("mytool", data)

	entry, err := self.cache.Store("mytool", []byte(data), tool)
	self.Require().NoError(err)

	// Corrupt the blob on disk behind the cache's back.
	self.Require().NoError(
		os.WriteFile(entry.Path, []byte("bitrot"), 0600))

	_, err = self.cache.Lookup("mytool", tool.ExpectedHash)
	self.Require().Error(err)

	var mismatch *cache.HashMismatchError
	self.Require().ErrorAs(err, &mismatch)
	self.Equal(tool.ExpectedHash, mismatch.Expected)
	self.Equal(hashOf("bitrot"), mismatch.Actual)

	// The corrupt blob was discarded so the next build refetches.
	_, err = os.Stat(entry.Path)
	self.True(os.IsNotExist(err))
}

func (self *CacheTestSuite) TestRecordsPersistAcrossInstances() {
	data := "tool binary content"
	tool := self.tool("mytool", data)

	_, err := self.cache.Store("mytool", []byte(data), tool)
	self.Require().NoError(err)

	// A fresh cache over the same directory sees the entry.
	second, err := cache.NewToolCache(self.config_obj)
	self.Require().NoError(err)

	entry, err := second.Lookup("mytool", tool.ExpectedHash)
	self.Require().NoError(err)
	self.Equal(cache.Verified, entry.Status)
	self.True(entry.FetchTime.Equal(time.Unix(1600000000, 0)))
}

func (self *CacheTestSuite) TestRecordFileIsSorted() {
	for _, name := range []string{"zeta", "alpha", "midway"} {
		data := name + " content"
		_, err := self.cache.Store(name, []byte(data),
			self.tool(name, data))
		self.Require().NoError(err)
	}

	serialized, err := os.ReadFile(filepath.Join(
		self.config_obj.CacheDirectory, cache.RecordFileName))
	self.Require().NoError(err)

	// The record file lists tools in sorted order regardless of
	// insertion order, so it is stable across runs.
	text := string(serialized)
	self.Less(strings.Index(text, `"alpha"`), strings.Index(text, `"midway"`))
	self.Less(strings.Index(text, `"midway"`), strings.Index(text, `"zeta"`))

	// And a fresh cache still reads it back.
	second, err := cache.NewToolCache(self.config_obj)
	self.Require().NoError(err)

	_, err = second.Lookup("midway", hashOf("midway content"))
	self.NoError(err)
}

func TestCache(t *testing.T) {
	suite.Run(t, &CacheTestSuite{})
}
