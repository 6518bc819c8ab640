package users

// loader.go turns a CSV source into validated users.
//
// The header row must carry every required column with the exact (case-sensitive)
// names of the entity fields. Extra columns are ignored. A single invalid row
// aborts the whole parse; partial loads are not supported.

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// contextCheckInterval is how many rows are parsed between cancellation checks
const contextCheckInterval = 100

// HeaderIndex maps a column name to its position in a row
type HeaderIndex map[string]int

// CSVLoader implements UserLoader for comma separated files
type CSVLoader struct {
	logger *zap.Logger
}

// NewCSVLoader creates a new CSV loader
func NewCSVLoader(logger *zap.Logger) *CSVLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVLoader{
		logger: logger,
	}
}

// InitUsers parses the bootstrap file; every row is tagged as persisted
func (l *CSVLoader) InitUsers(ctx context.Context, source string) ([]User, error) {
	return l.parseFile(ctx, source, ProvenancePersisted)
}

// LoadUsers parses a bulk-import file; every row is tagged as new
func (l *CSVLoader) LoadUsers(ctx context.Context, source string) ([]User, error) {
	return l.parseFile(ctx, source, ProvenanceNew)
}

func (l *CSVLoader) parseFile(ctx context.Context, source string, provenance Provenance) ([]User, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open user source %s: %w", source, err)
	}
	defer f.Close()

	users, err := l.Parse(ctx, f, provenance)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Parsed user source",
		zap.String("source", source),
		zap.String("provenance", string(provenance)),
		zap.Int("rows", len(users)))
	return users, nil
}

// Parse reads a CSV stream and builds validated users with the given provenance
func (l *CSVLoader) Parse(ctx context.Context, r io.Reader, provenance Provenance) ([]User, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read user source: %w", err)
	}
	data = sanitizeUTF8(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		// no header row means no columns at all
		return nil, NewMissingColumnsError(append([]string(nil), RequiredColumns...))
	}
	if err != nil {
		return nil, NewMalformedSourceError(err)
	}

	idx := MakeHeaderIndex(header)
	if missing := idx.Missing(RequiredColumns); len(missing) > 0 {
		return nil, NewMissingColumnsError(missing)
	}

	users := make([]User, 0)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, NewMalformedSourceError(err)
		}
		line++

		if line%contextCheckInterval == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		user, err := buildUser(idx, record, provenance)
		if err != nil {
			l.logger.Debug("Rejected user source row", zap.Int("line", line), zap.Error(err))
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		users = append(users, user)
	}

	return users, nil
}

func buildUser(idx HeaderIndex, record []string, provenance Provenance) (User, error) {
	name := idx.cell(record, FieldName)
	if name == "" {
		return User{}, NewEmptyNameError()
	}

	rawAge := strings.TrimSpace(idx.cell(record, FieldAge))
	age, err := strconv.Atoi(rawAge)
	if err != nil {
		return User{}, NewInvalidAgeError(rawAge, err)
	}

	if provenance == ProvenanceNew {
		return NewAddedUser(name, age)
	}
	return NewPersistedUser(name, age)
}

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Names are trimmed but not case-folded.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.TrimSpace(h)
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}
	return idx
}

// Missing returns the required columns absent from the header, in required order
func (h HeaderIndex) Missing(required []string) []string {
	var missing []string
	for _, col := range required {
		if _, ok := h[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

func (h HeaderIndex) cell(record []string, col string) string {
	pos, ok := h[col]
	if !ok || pos >= len(record) {
		return ""
	}
	return record[pos]
}

// sanitizeUTF8 replaces invalid byte sequences with U+FFFD
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
