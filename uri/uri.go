// Package uri implements the URI Resolver: parsing the ad-hoc
// `id:`/`tag:`/name grammar plus an optional `#time:`/`#gen:` slice, and
// executing the parsed selector against the Cortex Lookup or Resonance
// Scan.
package uri

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	guuid "github.com/google/uuid"

	"github.com/hn4dev/hn4core/addr"
	"github.com/hn4dev/hn4core/cortex"
	"github.com/hn4dev/hn4core/status"
)

// SelectorKind distinguishes a direct 128-bit `id:` lookup from a
// name/tag resonance query.
type SelectorKind int

const (
	SelectByID SelectorKind = iota
	SelectByQuery
)

// Path is the parsed form of a URI.
type Path struct {
	Kind SelectorKind
	ID   addr.U128
	Name string
	Tags uint64

	HasTime bool
	TimeNS  uint64
	HasGen  bool
	Gen     uint32
}

// Parse runs the selector grammar's state machine over path.
func Parse(path string) (*Path, error) {
	s := strings.TrimPrefix(path, "/")

	selectorPart, slicePart, hasSlice := s, "", false
	if i := strings.IndexByte(s, '#'); i >= 0 {
		selectorPart, slicePart, hasSlice = s[:i], s[i+1:], true
	}

	p := &Path{}
	if strings.HasPrefix(selectorPart, "id:") {
		id, err := parseHex128(selectorPart[len("id:"):])
		if err != nil {
			return nil, status.Wrap(status.InvalidArgument, err)
		}
		p.Kind, p.ID = SelectByID, id
	} else {
		p.Kind = SelectByQuery
		parseSelector(selectorPart, p)
		if p.Name == "" && p.Tags == 0 {
			return nil, status.New(status.InvalidArgument)
		}
	}

	if hasSlice {
		if err := parseSlice(slicePart, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// parseSelector scans characters, committing a token at each '/'  or '+'
// delimiter. A token starting with "tag:" enters tag-group mode and folds
// its remainder into the required tag mask; subsequent tokens within the
// same '/'-group also contribute to the tag mask, even without a "tag:"
// prefix. A '/' exits tag-group mode. A plain token outside tag-group
// mode becomes the filename, last one winning.
func parseSelector(s string, p *Path) {
	var token strings.Builder
	inTagGroup := false

	commit := func(delim byte) {
		tok := token.String()
		token.Reset()
		switch {
		case tok == "":
		case strings.HasPrefix(tok, "tag:"):
			p.Tags |= cortex.TagMask(tok[len("tag:"):])
			inTagGroup = true
		case inTagGroup:
			p.Tags |= cortex.TagMask(tok)
		default:
			p.Name = tok
		}
		if delim == '/' {
			inTagGroup = false
		}
	}

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '/', '+':
			commit(c)
		default:
			token.WriteByte(c)
		}
	}
	commit(0)
}

func parseSlice(s string, p *Path) error {
	switch {
	case strings.HasPrefix(s, "time:"):
		ns, err := parseTimeSpec(s[len("time:"):])
		if err != nil {
			return status.Wrap(status.InvalidArgument, err)
		}
		p.HasTime, p.TimeNS = true, ns
	case strings.HasPrefix(s, "gen:"):
		g, err := strconv.ParseUint(s[len("gen:"):], 10, 32)
		if err != nil {
			return status.Wrap(status.InvalidArgument, err)
		}
		p.HasGen, p.Gen = true, uint32(g)
	default:
		return status.New(status.InvalidArgument)
	}
	return nil
}

// parseTimeSpec accepts either a raw nanosecond integer or a
// calendar-validated Gregorian ISO-8601 "YYYY-MM[-DD]" date.
func parseTimeSpec(raw string) (uint64, error) {
	if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return n, nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return uint64(t.UnixNano()), nil
		}
	}
	return 0, fmt.Errorf("uri: invalid time slice %q", raw)
}

// parseHex128 decodes a 32-hex-char id selector into a 128-bit value,
// using google/uuid's parser since the literal is UUID-shaped: the
// first 8 big-endian bytes become the high word, the
// last 8 the low word.
func parseHex128(hexStr string) (addr.U128, error) {
	id, err := guuid.Parse(hexStr)
	if err != nil {
		return addr.U128{}, err
	}
	b := id[:]
	return addr.U128{
		Hi: binary.BigEndian.Uint64(b[0:8]),
		Lo: binary.BigEndian.Uint64(b[8:16]),
	}, nil
}
