package valuefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/moffa90/go-fusebits/bytevalues"
	"github.com/moffa90/go-fusebits/descriptor"
	"github.com/moffa90/go-fusebits/logging"
)

// Well-known keys.
const (
	KeyMCU     = "MCU"
	KeySummary = "summary"
)

// CommentPrefix starts a comment line.
const CommentPrefix = "#"

// maxLineSize bounds a single line.
const maxLineSize = 64 * 1024

// ErrNoDevice is returned when a value file has no MCU line.
var ErrNoDevice = errors.New("value file has no " + KeyMCU + " line")

// Lookup resolves descriptors of one memory kind.
// *repository.Repository satisfies it.
type Lookup interface {
	bytevalues.DescriptorLookup
	Kind() descriptor.Kind
}

// SkippedLine is a line Read ignored.
type SkippedLine struct {
	// Line is the 1-based line number
	Line int

	// Text is the trimmed line
	Text string

	// Reason says why the line was ignored
	Reason string
}

// File is a decoded value file.
type File struct {
	// DeviceID is the normalized value of the MCU line
	DeviceID string

	// Summary is the value of the summary line, if any
	Summary string

	// Values holds the decoded bytes. Its comment is Summary.
	Values *bytevalues.Values

	// Skipped lists ignored lines in file order
	Skipped []SkippedLine
}

// Config holds the reader configuration.
type Config struct {
	// Logger receives one warning per skipped line (optional)
	Logger logging.Logger
}

// Option is a functional option for Read.
type Option func(*Config)

// WithLogger sets the logger for skipped lines.
func WithLogger(logger logging.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

type entry struct {
	line  int
	key   string
	value string
	text  string
}

// Read decodes an ISO-8859-1 value file. The MCU line is mandatory and may
// appear anywhere. Field values are hexadecimal, with or without 0x.
// Unknown keys and malformed values are skipped line by line; only a
// missing or unknown device fails the whole file.
func Read(r io.Reader, lookup Lookup, opts ...Option) (*File, error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	log := logging.OrNop(cfg.Logger)

	f := &File{}
	skip := func(e entry, reason string) {
		f.Skipped = append(f.Skipped, SkippedLine{Line: e.line, Text: e.text, Reason: reason})
		log.Warn("skipping value file line", "line", e.line, "text", e.text, "reason", reason)
	}

	scanner := bufio.NewScanner(transform.NewReader(r, charmap.ISO8859_1.NewDecoder()))
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	var fields []entry
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, CommentPrefix) {
			continue
		}
		e := entry{line: lineNo, text: text}
		key, value, ok := strings.Cut(text, "=")
		if !ok {
			skip(e, "missing '='")
			continue
		}
		e.key, e.value = strings.TrimSpace(key), strings.TrimSpace(value)

		switch {
		case strings.EqualFold(e.key, KeyMCU):
			if f.DeviceID != "" {
				skip(e, "duplicate "+KeyMCU+" line")
				continue
			}
			if e.value == "" {
				skip(e, "empty device id")
				continue
			}
			f.DeviceID = e.value
		case strings.EqualFold(e.key, KeySummary):
			f.Summary = e.value
		default:
			fields = append(fields, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read value file: %w", err)
	}
	if f.DeviceID == "" {
		return nil, ErrNoDevice
	}

	vals, err := bytevalues.New(lookup.Kind(), f.DeviceID, lookup)
	if err != nil {
		return nil, fmt.Errorf("value file device %q: %w", f.DeviceID, err)
	}
	vals.SetComment(f.Summary)
	f.Values = vals
	f.DeviceID = vals.DeviceID()

	for _, e := range fields {
		v, err := parseHex(e.value)
		if err != nil {
			skip(e, err.Error())
			continue
		}
		if err := vals.SetNamed(e.key, v); err != nil {
			var iae *bytevalues.InvalidArgumentError
			if !errors.As(err, &iae) {
				return nil, err
			}
			skip(e, iae.Reason)
		}
	}
	sort.SliceStable(f.Skipped, func(i, j int) bool { return f.Skipped[i].Line < f.Skipped[j].Line })
	return f, nil
}

// Write encodes v as an ISO-8859-1 value file: a header comment, the MCU
// line, the summary line when v has a comment, then one line per bitfield
// whose byte is set, in byte order then document order. Field names shared
// by two bytes are written qualified as BYTE.FIELD.
func Write(w io.Writer, v *bytevalues.Values) error {
	fields, err := v.Bitfields()
	if err != nil {
		return err
	}
	count := make(map[string]int, len(fields))
	for _, f := range fields {
		count[f.Name]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s values\n", CommentPrefix, v.Kind())
	fmt.Fprintf(&b, "%s=%s\n", KeyMCU, v.DeviceID())
	if c := v.Comment(); c != "" {
		fmt.Fprintf(&b, "%s=%s\n", KeySummary, strings.ReplaceAll(c, "\n", " "))
	}
	for _, f := range fields {
		value, err := v.Named(f.QualifiedName())
		if err != nil {
			return err
		}
		if value == descriptor.Unset {
			continue
		}
		name := f.Name
		if count[name] > 1 {
			name = f.QualifiedName()
		}
		fmt.Fprintf(&b, "%s=0x%X\n", name, value)
	}

	tw := transform.NewWriter(w, charmap.ISO8859_1.NewEncoder())
	if _, err := io.WriteString(tw, b.String()); err != nil {
		return fmt.Errorf("write value file: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("write value file: %w", err)
	}
	return nil
}

func parseHex(s string) (int, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if digits == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseUint(digits, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid hex value %q", s)
	}
	return int(v), nil
}
