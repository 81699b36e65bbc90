package io

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	errs "github.com/matzehuels/lineage/pkg/errors"
	"github.com/matzehuels/lineage/pkg/family"
)

// Column positions in the record source.
const (
	colID = iota
	colFirst
	colMiddle
	colLast
	colMother
	colFather
	colBirth
	colDeath
)

// unknownField fills name and date columns missing from a short row.
const unknownField = "?"

// ReadCSV decodes person records from r. The first row is a header and is
// skipped. See the package documentation for the column layout.
//
// ReadCSV does not close r.
func ReadCSV(r io.Reader) ([]family.Person, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "read header")
	}

	var people []family.Person
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "read record")
		}
		line, _ := cr.FieldPos(0)

		p, err := parseRecord(rec)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidRecord, err, "line %d", line)
		}
		if p.FirstName == "" && p.LastName == "" {
			continue
		}
		people = append(people, p)
	}
	return people, nil
}

// ImportCSV reads the CSV file at path with [ReadCSV].
func ImportCSV(path string) ([]family.Person, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

func parseRecord(rec []string) (family.Person, error) {
	raw, ok := field(rec, colID)
	if !ok || raw == "" {
		return family.Person{}, errors.New("missing id")
	}
	id, err := parseID(raw)
	if err != nil {
		return family.Person{}, fmt.Errorf("id %q: %w", raw, err)
	}

	return family.Person{
		ID:        id,
		FirstName: text(rec, colFirst),
		LastName:  text(rec, colLast),
		Mother:    parent(rec, colMother),
		Father:    parent(rec, colFather),
		Birth:     text(rec, colBirth),
		Death:     text(rec, colDeath),
	}, nil
}

func field(rec []string, i int) (string, bool) {
	if i >= len(rec) {
		return "", false
	}
	return strings.TrimSpace(rec[i]), true
}

func text(rec []string, i int) string {
	if s, ok := field(rec, i); ok {
		return s
	}
	return unknownField
}

func parent(rec []string, i int) *int {
	s, ok := field(rec, i)
	if !ok || s == "" {
		return nil
	}
	id, err := parseID(s)
	if err != nil {
		return nil
	}
	return &id
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if id < 0 {
		return 0, errors.New("negative id")
	}
	return id, nil
}

// ReadJSON decodes a graph written by [WriteJSON]. The graph is rebuilt from
// the people array with [family.Build] and each person's generation is
// restored. The returned Meta holds the run id and anchor, if present.
//
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*family.Graph, Meta, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, Meta{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode")
	}

	people := make([]family.Person, len(doc.People))
	for i, p := range doc.People {
		people[i] = p.Person
	}
	g := family.Build(people)
	for i, n := range g.Nodes() {
		n.Generation = doc.People[i].Generation
	}
	return g, doc.Meta, nil
}

// ImportJSON reads the JSON file at path with [ReadJSON].
func ImportJSON(path string) (*family.Graph, Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Meta{}, errs.Wrap(errs.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, Meta{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
