package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kjk/scancache/log"
	"github.com/kjk/scancache/u"
)

// Store is one named, file-backed key/value collection
type Store struct {
	conf   *Config
	name   string
	path   string
	usable bool
}

// Info is the header of a store file plus its location
type Info struct {
	Header Header
	Path   string
}

// Open returns the store called name. If autoCreate is true and the
// store file doesn't exist, it's created (together with the data
// directory) with an empty header.
// Open never fails: if the file can't be resolved or accessed, the
// returned store is not Usable() and all operations return ErrUnusable.
func Open(conf *Config, name string, autoCreate bool) *Store {
	if conf == nil {
		conf = &Config{}
	}
	s := &Store{
		conf: conf,
		name: name,
	}
	if !IsValidKey(name) {
		log.Verbosef("cache.Open: invalid store name '%s'\n", name)
		return s
	}
	path, err := filepath.Abs(conf.StorePath(name))
	if err != nil {
		log.Errorf("cache.Open: filepath.Abs() failed with '%s'\n", err)
		return s
	}
	s.path = path
	if err = s.init(autoCreate); err != nil {
		log.Logf("cache.Open: store '%s' is not usable: %s\n", name, err)
		return s
	}
	s.usable = true
	return s
}

func (s *Store) init(autoCreate bool) error {
	dir := filepath.Dir(s.path)
	if !u.DirExists(dir) {
		if err := os.MkdirAll(dir, s.conf.dirPerm()); err != nil {
			return err
		}
	}
	if autoCreate && !u.FileExists(s.path) {
		hdr := formatHeader(s.newHeader(nil))
		if err := writeFileAtomic(s.path, []byte(hdr), s.conf.filePerm()); err != nil {
			return err
		}
	}
	// must be readable and writable
	f, err := os.OpenFile(s.path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	return f.Close()
}

// Name returns the store name
func (s *Store) Name() string {
	return s.name
}

// Path returns absolute path of the store file, "" if it couldn't be resolved
func (s *Store) Path() string {
	return s.path
}

// Usable returns true if the store file was accessible when opened
func (s *Store) Usable() bool {
	return s.usable
}

// Size returns size of the store file, -1 if it doesn't exist
func (s *Store) Size() int64 {
	if s.path == "" {
		return -1
	}
	return u.FileSize(s.path)
}

func (s *Store) checkKey(op string, key string) error {
	if !IsValidKey(key) {
		return s.wrapErr(op, key, ErrInvalidKey)
	}
	if !s.usable {
		return s.wrapErr(op, key, ErrUnusable)
	}
	return nil
}

// Info returns header attributes of the store file.
// Returns ErrNotFound if the file has no header.
func (s *Store) Info() (*Info, error) {
	c, err := s.LoadContent(true)
	if err != nil {
		return nil, err
	}
	if len(c.Header) == 0 {
		return nil, s.wrapErr("info", "", ErrNotFound)
	}
	return &Info{
		Header: c.Header,
		Path:   s.path,
	}, nil
}

// Count returns number of unique entries. If c is nil, the content
// is loaded from the file.
func (s *Store) Count(c *Content) (int, error) {
	if c == nil {
		var err error
		if c, err = s.LoadContent(false); err != nil {
			return 0, err
		}
	}
	return c.Count(), nil
}

// HasExpired returns true if lifetime > 0 and at least lifetime
// passed since the last full rewrite. If c is nil, the header is loaded
// from the file. A store without a header never expires.
func (s *Store) HasExpired(lifetime time.Duration, c *Content) bool {
	if lifetime <= 0 {
		return false
	}
	if c == nil {
		var err error
		if c, err = s.LoadContent(true); err != nil {
			return false
		}
	}
	if len(c.Header) == 0 {
		return false
	}
	age := s.conf.now().Unix() - c.Header.unix(AttrUpdatedOn)
	return time.Duration(age)*time.Second >= lifetime
}

// Get returns JSON value of the first occurrence of key.
// Returns ErrNotFound if key doesn't exist or the store is older
// than lifetime. lifetime <= 0 means no expiration.
func (s *Store) Get(key string, lifetime time.Duration) (json.RawMessage, error) {
	if err := s.checkKey("get", key); err != nil {
		return nil, err
	}
	c, err := s.LoadContent(false)
	if err != nil {
		return nil, err
	}
	if s.HasExpired(lifetime, c) {
		return nil, s.wrapErr("get", key, errExpiredMiss)
	}
	v, ok := c.Entries[key]
	if !ok {
		return nil, s.wrapErr("get", key, ErrNotFound)
	}
	return v, nil
}

// GetInto is like Get but decodes the value into v
func (s *Store) GetInto(key string, lifetime time.Duration, v any) error {
	d, err := s.Get(key, lifetime)
	if err != nil {
		return err
	}
	return s.wrapErr("get", key, json.Unmarshal(d, v))
}

// GetAll returns all entries. Returns ErrNotFound if the store is older
// than lifetime, which is different from an empty map for an empty store.
func (s *Store) GetAll(lifetime time.Duration) (map[string]json.RawMessage, error) {
	if !s.usable {
		return nil, s.wrapErr("getall", "", ErrUnusable)
	}
	c, err := s.LoadContent(false)
	if err != nil {
		return nil, err
	}
	if s.HasExpired(lifetime, c) {
		return nil, s.wrapErr("getall", "", errExpiredMiss)
	}
	return c.Entries, nil
}

// GetAllInto is like GetAll but decodes all entries into v, which
// should be a pointer to a map keyed by string
func (s *Store) GetAllInto(lifetime time.Duration, v any) error {
	m, err := s.GetAll(lifetime)
	if err != nil {
		return err
	}
	d, err := json.Marshal(m)
	if err != nil {
		return s.wrapErr("getall", "", err)
	}
	return s.wrapErr("getall", "", json.Unmarshal(d, v))
}

// Keys returns keys in the order they first appear in the file
func (s *Store) Keys() ([]string, error) {
	c, err := s.LoadContent(false)
	if err != nil {
		return nil, err
	}
	return c.Keys, nil
}

// Exists returns true if key is in the store. Expiration is not checked.
func (s *Store) Exists(key string) (bool, error) {
	if err := s.checkKey("exists", key); err != nil {
		return false, err
	}
	c, err := s.LoadContent(false)
	if err != nil {
		return false, err
	}
	_, ok := c.Entries[key]
	return ok, nil
}

func marshalEntry(key string, v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(key)
	buf.WriteByte(':')
	encoder := json.NewEncoder(&buf)
	// avoid unnecessary escaping
	encoder.SetEscapeHTML(false)
	// Encode adds a newline
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	if err := checkLineSize(buf.Len() - 1); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// checkLineSize rejects entry lines the reader would skip
func checkLineSize(n int) error {
	if n > u.MaxLineSize {
		return fmt.Errorf("%w: entry is %d bytes, max is %d", ErrValueTooLarge, n, u.MaxLineSize)
	}
	return nil
}

// Set appends key with JSON-encoded v to the store file. The header
// (and therefore the expiration clock) is not changed. If key already
// exists, the old value still wins until the store is compacted.
func (s *Store) Set(key string, v any) error {
	if err := s.checkKey("set", key); err != nil {
		return err
	}
	line, err := marshalEntry(key, v)
	if err != nil {
		return s.wrapErr("set", key, err)
	}
	err = appendToFile(s.path, line, s.conf.SyncWrite)
	if log.IfErrf(err, "cache.Set: appending to '%s' failed with '%s'", s.path, err) {
		return s.wrapErr("set", key, err)
	}
	return nil
}

// Add is the same as Set
func (s *Store) Add(key string, v any) error {
	return s.Set(key, v)
}

// Delete removes key and rewrites the store file. Deleting a key that
// doesn't exist succeeds without touching the file.
func (s *Store) Delete(key string) error {
	if err := s.checkKey("delete", key); err != nil {
		return err
	}
	c, err := s.LoadContent(false)
	if err != nil {
		return err
	}
	if _, ok := c.Entries[key]; !ok {
		return nil
	}
	delete(c.Entries, key)
	keys := make([]string, 0, len(c.Keys)-1)
	for _, k := range c.Keys {
		if k != key {
			keys = append(keys, k)
		}
	}
	return s.rewrite("delete", c.Header, keys, c.Entries)
}

// Override replaces the content of the store with entries. Keys are
// written in sorted order.
func (s *Store) Override(entries map[string]any) error {
	if !s.usable {
		return s.wrapErr("override", "", ErrUnusable)
	}
	keys := make([]string, 0, len(entries))
	raw := make(map[string]json.RawMessage, len(entries))
	for k, v := range entries {
		if !IsValidKey(k) {
			return s.wrapErr("override", k, ErrInvalidKey)
		}
		d, err := json.Marshal(v)
		if err == nil {
			err = checkLineSize(len(k) + 1 + len(d))
		}
		if err != nil {
			return s.wrapErr("override", k, err)
		}
		keys = append(keys, k)
		raw[k] = d
	}
	sort.Strings(keys)
	prev, err := s.LoadContent(true)
	if err != nil {
		return err
	}
	return s.rewrite("override", prev.Header, keys, raw)
}

// Compact rewrites the store file keeping only the first occurrence
// of every key
func (s *Store) Compact() error {
	if !s.usable {
		return s.wrapErr("compact", "", ErrUnusable)
	}
	c, err := s.LoadContent(false)
	if err != nil {
		return err
	}
	return s.rewrite("compact", c.Header, c.Keys, c.Entries)
}

// rewrite replaces the whole file with a fresh header and entries
func (s *Store) rewrite(op string, prev Header, keys []string, entries map[string]json.RawMessage) error {
	timeStart := time.Now()
	var buf bytes.Buffer
	buf.WriteString(formatHeader(s.newHeader(prev)))
	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteByte(':')
		buf.Write(entries[k])
		buf.WriteByte('\n')
	}
	err := writeFileAtomic(s.path, buf.Bytes(), s.conf.filePerm())
	if log.IfErrf(err, "cache.%s: rewriting '%s' failed with '%s'", op, s.path, err) {
		return s.wrapErr(op, "", err)
	}
	log.EventWithDuration("cache_rewrite", time.Since(timeStart), "op", op, "store", s.name, "entries", len(keys))
	return nil
}

// Flush deletes the store file. Reads afterwards see an empty store,
// Set fails until the store is re-created with Open() or Override().
func (s *Store) Flush() error {
	if !s.usable {
		return s.wrapErr("flush", "", ErrUnusable)
	}
	if err := os.Remove(s.path); err != nil {
		return s.wrapErr("flush", "", err)
	}
	log.Event("cache_flush", "store", s.name)
	return nil
}

// Export writes the raw store file to w
func (s *Store) Export(w io.Writer) error {
	if !s.usable {
		return s.wrapErr("export", "", ErrUnusable)
	}
	f, err := os.Open(s.path)
	if err != nil {
		return s.wrapErr("export", "", err)
	}
	defer u.CloseNoError(f)
	_, err = io.Copy(w, f)
	return s.wrapErr("export", "", err)
}

// Import reads a store file (as written by Export) from r and replaces
// the entries of this store with its entries. The header of this store
// is kept (except for updated_on).
func (s *Store) Import(r io.Reader) error {
	if !s.usable {
		return s.wrapErr("import", "", ErrUnusable)
	}
	lines, err := u.ReadLinesFrom(r)
	if err != nil {
		return s.wrapErr("import", "", err)
	}
	imported := ParseLines(lines, false)
	if len(imported.Header) == 0 && imported.Count() == 0 {
		return s.wrapErr("import", "", fmt.Errorf("no header and no entries"))
	}
	prev, err := s.LoadContent(true)
	if err != nil {
		return err
	}
	return s.rewrite("import", prev.Header, imported.Keys, imported.Entries)
}

// IsNotFound returns true if err means a cache miss (missing key or
// expired store)
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
