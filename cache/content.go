package cache

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kjk/scancache/log"
)

// header attributes every store file has
const (
	AttrDatastore = "datastore"
	AttrCreatedOn = "created_on"
	AttrUpdatedOn = "updated_on"
)

const (
	headerMarker = "// "
	fileOpener   = "<?php\n"
	exitSentinel = "exit(0);\n?>\n"
)

var jsonNull = json.RawMessage("null")

// Header holds "// name=value;" attributes from the top of a store file
type Header map[string]string

// unix returns attribute parsed as unix seconds, 0 if missing or invalid
func (h Header) unix(attr string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(h[attr]), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// CreatedOn returns time the store file was first written
func (h Header) CreatedOn() time.Time {
	return time.Unix(h.unix(AttrCreatedOn), 0)
}

// UpdatedOn returns time of the last full rewrite
func (h Header) UpdatedOn() time.Time {
	return time.Unix(h.unix(AttrUpdatedOn), 0)
}

// Content is the parsed store file
type Content struct {
	Header  Header
	Entries map[string]json.RawMessage
	// keys of Entries in the order they first appear in the file
	Keys []string
}

func newContent() *Content {
	return &Content{
		Header:  Header{},
		Entries: map[string]json.RawMessage{},
	}
}

// Count returns number of unique entries
func (c *Content) Count() int {
	return len(c.Entries)
}

// Decode unmarshals value of key into v. Use *map[string]any for
// the generic form or a pointer to struct for a typed one.
func (c *Content) Decode(key string, v any) error {
	d, ok := c.Entries[key]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(d, v)
}

// isHeaderLine returns true for lines like "// updated_on=1760868000;"
func isHeaderLine(line string) bool {
	return strings.HasPrefix(line, headerMarker) &&
		strings.Contains(line, "=") &&
		strings.HasSuffix(line, ";")
}

// ParseLines parses lines of a store file. Lines that are neither
// header nor entry lines are skipped. For duplicate keys the first one
// wins. A value that is not valid JSON is kept as null.
// If headerOnly is true, entry lines are not parsed.
func ParseLines(lines []string, headerOnly bool) *Content {
	c := newContent()
	for _, line := range lines {
		if isHeaderLine(line) {
			section := line[len(headerMarker) : len(line)-1]
			name, value, _ := strings.Cut(section, "=")
			c.Header[name] = value
			continue
		}
		if headerOnly {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if !IsValidKey(key) {
			log.Verbosef("cache: skipping malformed line %q\n", line)
			continue
		}
		if _, exists := c.Entries[key]; exists {
			continue
		}
		raw := json.RawMessage(strings.TrimSpace(value))
		if !json.Valid(raw) {
			log.Verbosef("cache: value of key '%s' is not valid json\n", key)
			raw = jsonNull
		}
		c.Entries[key] = raw
		c.Keys = append(c.Keys, key)
	}
	return c
}

// LoadContent reads and parses the store file. Missing file is
// treated as empty content.
func (s *Store) LoadContent(headerOnly bool) (*Content, error) {
	if !s.usable {
		return nil, s.wrapErr("load", "", ErrUnusable)
	}
	lines, err := s.conf.readLines(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return newContent(), nil
		}
		return nil, s.wrapErr("load", "", err)
	}
	return ParseLines(lines, headerOnly), nil
}

// newHeader returns header for a full rewrite of the file.
// Attributes survive from prev except updated_on which is set to now.
func (s *Store) newHeader(prev Header) Header {
	now := strconv.FormatInt(s.conf.now().Unix(), 10)
	h := Header{}
	for name, v := range prev {
		h[name] = v
	}
	if h[AttrDatastore] == "" {
		h[AttrDatastore] = s.name
	}
	if h[AttrCreatedOn] == "" {
		h[AttrCreatedOn] = now
	}
	h[AttrUpdatedOn] = now
	return h
}

// formatHeader serializes the header block including the exit sentinel.
// Default attributes go first in fixed order, others sorted.
func formatHeader(h Header) string {
	var sb strings.Builder
	sb.WriteString(fileOpener)
	attrs := []string{AttrDatastore, AttrCreatedOn, AttrUpdatedOn}
	var extra []string
	for name := range h {
		switch name {
		case AttrDatastore, AttrCreatedOn, AttrUpdatedOn:
		default:
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range append(attrs, extra...) {
		v, ok := h[name]
		if !ok {
			continue
		}
		sb.WriteString(headerMarker + name + "=" + v + ";\n")
	}
	sb.WriteString(exitSentinel)
	return sb.String()
}
