package cache

// A content addressable store of verified tool binaries. Blobs are
// stored under their sha256 hex digest, so a changed hash expectation
// in an updated artifact definition simply misses and triggers a
// refetch - the cache can never serve stale content for a changed
// expectation.

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Velocidex/ordereddict"
	errors "github.com/go-errors/errors"

	"www.velocidex.com/golang/packrat/artifacts"
	"www.velocidex.com/golang/packrat/config"
	"www.velocidex.com/golang/packrat/json"
	"www.velocidex.com/golang/packrat/logging"
	"www.velocidex.com/golang/packrat/utils"
)

const (
	RecordFileName = "inventory.json"
)

type Status int

const (
	Unverified Status = iota
	Verified
	Failed
)

// The durable record kept alongside cached binaries.
type Record struct {
	Url        string `json:"url"`
	Hash       string `json:"hash"`
	Size       int64  `json:"size"`
	Downloaded string `json:"downloaded"`
	Verified   bool   `json:"verified"`
}

type Entry struct {
	Name      string
	Path      string
	Hash      string
	Size      int64
	FetchTime time.Time
	Status    Status
}

type ToolCache struct {
	mu sync.Mutex

	config_obj *config.Config
	root       string
	Clock      utils.Clock

	// Serializes writes per tool identifier.
	tool_locks map[string]*sync.Mutex

	records map[string]*Record
}

func NewToolCache(config_obj *config.Config) (*ToolCache, error) {
	root := config_obj.CacheDirectory

	err := os.MkdirAll(filepath.Join(root, "blobs"), 0700)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	result := &ToolCache{
		config_obj: config_obj,
		root:       root,
		Clock:      utils.RealClock{},
		tool_locks: make(map[string]*sync.Mutex),
		records:    make(map[string]*Record),
	}

	err = result.loadRecords()
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (self *ToolCache) blobPath(hash string) string {
	return filepath.Join(self.root, "blobs", hash)
}

func (self *ToolCache) loadRecords() error {
	data, err := os.ReadFile(filepath.Join(self.root, RecordFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, 0)
	}

	return json.Unmarshal(data, &self.records)
}

// Caller must hold self.mu. Records are written sorted by tool name
// so the file is stable across runs and diffs cleanly.
func (self *ToolCache) saveRecords() error {
	names := []string{}
	for name := range self.records {
		names = append(names, name)
	}
	sort.Strings(names)

	records := ordereddict.NewDict()
	for _, name := range names {
		records.Set(name, self.records[name])
	}

	serialized, err := json.MarshalIndent(records)
	if err != nil {
		return err
	}

	tmp := filepath.Join(self.root, RecordFileName+".tmp")
	err = os.WriteFile(tmp, serialized, 0600)
	if err != nil {
		return errors.Wrap(err, 0)
	}

	return os.Rename(tmp, filepath.Join(self.root, RecordFileName))
}

func (self *ToolCache) getToolLock(name string) *sync.Mutex {
	self.mu.Lock()
	defer self.mu.Unlock()

	lock, pres := self.tool_locks[name]
	if !pres {
		lock = &sync.Mutex{}
		self.tool_locks[name] = lock
	}
	return lock
}

// Look the tool up by identifier, against the hash the current build
// expects. A record whose hash differs from the expectation is a
// miss, not an error - artifact definitions legitimately move to new
// tool versions. The stored bytes are re-hashed on every lookup:
// Verified status is earned at read time, never trusted blindly.
func (self *ToolCache) Lookup(name, expected_hash string) (*Entry, error) {
	lock := self.getToolLock(name)
	lock.Lock()
	defer lock.Unlock()

	self.mu.Lock()
	record, pres := self.records[name]
	self.mu.Unlock()

	// Wrap with %w so callers can match the sentinel with errors.Is.
	if !pres || record.Hash != expected_hash {
		return nil, fmt.Errorf("%v: %w", name, NotFoundError)
	}

	blob_path := self.blobPath(expected_hash)
	fd, err := os.Open(blob_path)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", name, NotFoundError)
	}
	defer fd.Close()

	sha_sum := sha256.New()
	size, err := io.Copy(sha_sum, fd)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	actual_hash := hex.EncodeToString(sha_sum.Sum(nil))
	if actual_hash != expected_hash {
		// The blob was corrupted on disk. Drop it so the next
		// build refetches, but escalate now - a verification
		// failure is never silently absorbed.
		logger := logging.GetLogger(self.config_obj, &logging.ToolComponent)
		logger.Warn("Cached blob for %v is corrupt, discarding it", name)

		_ = os.Remove(blob_path)

		self.mu.Lock()
		record.Verified = false
		_ = self.saveRecords()
		self.mu.Unlock()

		return nil, &HashMismatchError{
			Tool:     name,
			Url:      record.Url,
			Expected: expected_hash,
			Actual:   actual_hash,
		}
	}

	fetch_time, _ := time.Parse(time.RFC3339, record.Downloaded)

	return &Entry{
		Name:      name,
		Path:      blob_path,
		Hash:      actual_hash,
		Size:      size,
		FetchTime: fetch_time,
		Status:    Verified,
	}, nil
}

// Verify the supplied bytes against the expected hash and persist
// them. On mismatch nothing is written at all - the cache only ever
// contains content that passed verification.
func (self *ToolCache) Store(name string, data []byte,
	tool *artifacts.ToolDefinition) (*Entry, error) {

	lock := self.getToolLock(name)
	lock.Lock()
	defer lock.Unlock()

	sha_sum := sha256.New()
	sha_sum.Write(data)
	actual_hash := hex.EncodeToString(sha_sum.Sum(nil))

	if actual_hash != tool.ExpectedHash {
		return nil, &HashMismatchError{
			Tool:     name,
			Url:      tool.Url,
			Expected: tool.ExpectedHash,
			Actual:   actual_hash,
		}
	}

	blob_path := self.blobPath(actual_hash)

	// Write to a private temp file first, then atomically rename
	// into place.
	tmp, err := os.CreateTemp(self.root, "download*")
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	_, err = tmp.Write(data)
	if err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, errors.Wrap(err, 0)
	}
	tmp.Close()

	err = os.Rename(tmp.Name(), blob_path)
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, errors.Wrap(err, 0)
	}

	now := self.Clock.Now().UTC()

	self.mu.Lock()
	self.records[name] = &Record{
		Url:        tool.Url,
		Hash:       actual_hash,
		Size:       int64(len(data)),
		Downloaded: now.Format(time.RFC3339),
		Verified:   true,
	}
	err = self.saveRecords()
	self.mu.Unlock()

	if err != nil {
		return nil, err
	}

	return &Entry{
		Name:      name,
		Path:      blob_path,
		Hash:      actual_hash,
		Size:      int64(len(data)),
		FetchTime: now,
		Status:    Verified,
	}, nil
}
