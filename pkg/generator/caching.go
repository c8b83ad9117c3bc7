package generator

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"memorybench/pkg/cache"
	"memorybench/pkg/logx"
	"memorybench/pkg/model"
)

// Caching wraps any TestCaseGenerator with disk persistence keyed by
// CachePath. Writes are streamed object-by-object so a large test-case list
// never materializes its full JSON in memory; reads stream-decode the same
// way. Implements spec.md §4.1's Caching variant.
type Caching struct {
	Inner     TestCaseGenerator
	CachePath string
	Overwrite bool
	Index     *cache.Index // optional bookkeeping index, see pkg/cache
}

// NewCaching wraps inner with a disk cache at cachePath.
func NewCaching(inner TestCaseGenerator, cachePath string, overwrite bool, index *cache.Index) *Caching {
	return &Caching{Inner: inner, CachePath: cachePath, Overwrite: overwrite, Index: index}
}

func (c *Caching) GeneratorType() string      { return c.Inner.GeneratorType() }
func (c *Caching) GeneratorClassType() string { return "CachingTestCaseGenerator(" + c.Inner.GeneratorClassType() + ")" }

func (c *Caching) Generate() ([]model.TestCase, error) {
	if !c.Overwrite {
		cases, err := readCacheFile(c.CachePath)
		if err == nil {
			return cases, nil
		}
		logx.Warnf("test case cache unreadable at %s, regenerating: %v", c.CachePath, err)
	}

	cases, err := c.Inner.Generate()
	if err != nil {
		return nil, fmt.Errorf("generating test cases for cache: %w", err)
	}

	if writeErr := writeCacheFile(c.CachePath, cases); writeErr != nil {
		// A failed cache write is a warning, not fatal: the freshly
		// generated cases are still returned to the caller.
		logx.Warnf("failed to write test case cache to %s: %v", c.CachePath, writeErr)
		return cases, nil
	}

	if c.Index != nil {
		if info, statErr := os.Stat(c.CachePath); statErr == nil {
			_ = c.Index.Record(cache.Entry{
				CachePath:   c.CachePath,
				ContentHash: contentHash(cases),
				SizeBytes:   info.Size(),
				Overwritten: c.Overwrite,
				WrittenAt:   time.Now(),
			})
		}
	}

	return cases, nil
}

func contentHash(cases []model.TestCase) string {
	h := sha256.New()
	for i := range cases {
		fmt.Fprintf(h, "%s;", cases[i].ID())
	}
	return hex.EncodeToString(h.Sum(nil))
}

// writeCacheFile streams cases to path as a JSON array: "[" then one
// comma-separated element per case, then "]", never holding the whole
// array in memory at once.
func writeCacheFile(path string, cases []model.TestCase) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing cache file: %w", cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if _, err = w.WriteString("["); err != nil {
		return err
	}

	for i := range cases {
		if i > 0 {
			if _, err = w.WriteString(","); err != nil {
				return err
			}
		}
		data, marshalErr := cases[i].MarshalStable()
		if marshalErr != nil {
			return fmt.Errorf("marshaling test case: %w", marshalErr)
		}
		if _, err = w.Write(data); err != nil {
			return err
		}
	}

	if _, err = w.WriteString("]"); err != nil {
		return err
	}

	return w.Flush()
}

// readCacheFile stream-decodes a cache file produced by writeCacheFile.
func readCacheFile(path string) ([]model.TestCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cache file: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading cache file opening token: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("cache file %s does not start with a JSON array", path)
	}

	var cases []model.TestCase
	for dec.More() {
		var tc model.TestCase
		if err := dec.Decode(&tc); err != nil {
			return nil, fmt.Errorf("decoding cached test case: %w", err)
		}
		cases = append(cases, tc)
	}

	return cases, nil
}
