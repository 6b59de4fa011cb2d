// Package umls builds ontology tables from a UMLS Metathesaurus release
// (the pipe-delimited MRCONSO, MRSTY and MRREL files of a META directory).
package umls

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/solatis/cuitarget/internal/ontology"
)

const (
	fileConcepts      = "MRCONSO.RRF"
	fileSemanticTypes = "MRSTY.RRF"
	fileRelations     = "MRREL.RRF"
)

// Column positions and minimum widths of the files we read.
const (
	consoCUI, consoLAT, consoTS, consoSTT, consoISPREF = 0, 1, 2, 4, 6
	consoSAB, consoSTR, consoSUPPRESS                  = 11, 14, 16
	consoMinFields                                     = 17

	styCUI, styTUI = 0, 1
	styMinFields   = 2

	relCUI1, relREL, relCUI2 = 0, 3, 4
	relSAB                   = 10
	relMinFields             = 11
)

const checkEvery = 1 << 14

// Options restricts what ReadTables imports.
type Options struct {
	// Languages are LAT values to keep. Empty keeps every language.
	Languages []string
	// Sources are SAB values to keep for names and relations. Empty keeps all.
	Sources []string
	// KeepSuppressed imports atoms with SUPPRESS set to O, E or Y.
	KeepSuppressed bool
}

// DefaultOptions keeps English, unsuppressed atoms from every source.
func DefaultOptions() Options {
	return Options{Languages: []string{"ENG"}}
}

// Stats counts what ReadTables kept and skipped.
type Stats struct {
	Concepts  int
	Names     int
	TypeIDs   int
	Edges     int
	Malformed int
}

// Reader reads one META directory.
type Reader struct {
	dir string
	log zerolog.Logger
}

// NewReader checks that dir holds MRCONSO.RRF and MRSTY.RRF. MRREL.RRF is
// optional; without it the tables carry no hierarchy.
func NewReader(dir string, log zerolog.Logger) (*Reader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("META directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("META directory: %s is not a directory", dir)
	}
	for _, name := range []string{fileConcepts, fileSemanticTypes} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return nil, fmt.Errorf("required file %s not found in %s: %w", name, dir, err)
		}
	}
	return &Reader{dir: dir, log: log.With().Str("component", "umls").Str("dir", dir).Logger()}, nil
}

// ReadTables reads the directory into ontology tables.
func (r *Reader) ReadTables(ctx context.Context, opts Options) (ontology.Tables, Stats, error) {
	t := ontology.Tables{
		Names:          map[string]ontology.Set{},
		CUIsByName:     map[string]ontology.Set{},
		TypeIDs:        map[string]ontology.Set{},
		PreferredNames: map[string]string{},
	}
	var stats Stats

	languages := setOf(opts.Languages)
	sources := setOf(opts.Sources)

	err := r.scan(ctx, fileConcepts, consoMinFields, &stats, func(f []string) {
		if !accepts(languages, f[consoLAT]) || !accepts(sources, f[consoSAB]) {
			return
		}
		if !opts.KeepSuppressed && isSuppressed(f[consoSUPPRESS]) {
			return
		}
		cui, name := f[consoCUI], f[consoSTR]
		if cui == "" || name == "" {
			stats.Malformed++
			return
		}
		if _, ok := t.Names[cui]; !ok {
			stats.Concepts++
		}
		if add(t.Names, cui, name) {
			stats.Names++
		}
		add(t.CUIsByName, name, cui)
		if f[consoTS] == "P" && f[consoSTT] == "PF" && f[consoISPREF] == "Y" {
			if _, ok := t.PreferredNames[cui]; !ok {
				t.PreferredNames[cui] = name
			}
		}
	})
	if err != nil {
		return ontology.Tables{}, stats, err
	}

	err = r.scan(ctx, fileSemanticTypes, styMinFields, &stats, func(f []string) {
		if f[styCUI] == "" || f[styTUI] == "" {
			stats.Malformed++
			return
		}
		if add(t.TypeIDs, f[styCUI], f[styTUI]) {
			stats.TypeIDs++
		}
	})
	if err != nil {
		return ontology.Tables{}, stats, err
	}

	children := map[string]ontology.Set{}
	err = r.scan(ctx, fileRelations, relMinFields, &stats, func(f []string) {
		if !accepts(sources, f[relSAB]) {
			return
		}
		parent, child, ok := edge(f[relREL], f[relCUI1], f[relCUI2])
		if !ok || parent == "" || child == "" || parent == child {
			return
		}
		if add(children, parent, child) {
			stats.Edges++
		}
	})
	switch {
	case errors.Is(err, os.ErrNotExist):
		r.log.Warn().Msg("MRREL.RRF not found, importing without hierarchy")
	case err != nil:
		return ontology.Tables{}, stats, err
	default:
		t.Children = children
	}

	r.log.Info().
		Int("concepts", stats.Concepts).
		Int("names", stats.Names).
		Int("type_ids", stats.TypeIDs).
		Int("edges", stats.Edges).
		Int("malformed", stats.Malformed).
		Msg("metathesaurus read")

	return t, stats, nil
}

// edge orients an MRREL row. CHD: CUI2 is a child of CUI1. PAR: CUI2 is a
// parent of CUI1.
func edge(rel, cui1, cui2 string) (parent, child string, ok bool) {
	switch rel {
	case "CHD":
		return cui1, cui2, true
	case "PAR":
		return cui2, cui1, true
	default:
		return "", "", false
	}
}

// scan calls fn for every well-formed row of name. Short rows count as malformed.
func (r *Reader) scan(ctx context.Context, name string, minFields int, stats *Stats, fn func([]string)) error {
	path := filepath.Join(r.dir, name)
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if line%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		text := scanner.Text()
		if text == "" {
			continue
		}
		fields := strings.Split(text, "|")
		if len(fields) < minFields {
			stats.Malformed++
			r.log.Debug().Str("file", name).Int("line", line).Msg("skipping short row")
			continue
		}
		fn(fields)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading %s: %w", name, err)
	}
	return nil
}

func isSuppressed(flag string) bool {
	return flag == "O" || flag == "E" || flag == "Y"
}

func setOf(values []string) ontology.Set {
	if len(values) == 0 {
		return nil
	}
	return ontology.NewSet(values...)
}

// accepts reports whether v passes a filter set; nil accepts everything.
func accepts(filter ontology.Set, v string) bool {
	if filter == nil {
		return true
	}
	_, ok := filter[v]
	return ok
}

// add inserts member under key and reports whether it was new.
func add(m map[string]ontology.Set, key, member string) bool {
	set, ok := m[key]
	if !ok {
		set = ontology.Set{}
		m[key] = set
	}
	if _, dup := set[member]; dup {
		return false
	}
	set[member] = struct{}{}
	return true
}
