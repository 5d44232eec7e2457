// Package glossary loads user supplied term mappings and enforces them on
// translated output. A glossary is a CSV file of `english,korean` rows;
// files exported from spreadsheet tools frequently carry a UTF-8 BOM, which
// is stripped transparently.
package glossary

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/gdkds12/translatePDF/internal/logger"
)

// Entry is a single glossary mapping from a source term to the preferred
// target term.
type Entry struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Glossary holds the ordered term mappings. Entries are kept sorted by
// descending source length so longer terms win over their substrings during
// substitution.
type Glossary struct {
	entries []Entry
}

// New builds a Glossary from a source→target map.
func New(terms map[string]string) *Glossary {
	g := &Glossary{}
	for src, dst := range terms {
		src = strings.TrimSpace(src)
		dst = strings.TrimSpace(dst)
		if src == "" || dst == "" {
			continue
		}
		g.entries = append(g.entries, Entry{Source: src, Target: dst})
	}
	g.sortEntries()
	return g
}

// LoadFile reads a glossary CSV file. Rows with fewer than two columns and
// a header row of `english,korean` are skipped.
func LoadFile(path string) (*Glossary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open glossary file: %w", err)
	}
	defer f.Close()

	g, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse glossary file %s: %w", path, err)
	}

	logger.Info("glossary loaded",
		logger.String("path", path),
		logger.Int("terms", g.Len()))
	return g, nil
}

// Read parses glossary CSV content from r, tolerating a UTF-8 BOM.
func Read(r io.Reader) (*Glossary, error) {
	decoded := transform.NewReader(r, unicode.UTF8BOM.NewDecoder())

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	g := &Glossary{}
	for line := 0; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			continue
		}
		src := strings.TrimSpace(record[0])
		dst := strings.TrimSpace(record[1])
		if src == "" || dst == "" {
			continue
		}
		// Skip a conventional header row.
		if line == 0 && strings.EqualFold(src, "english") && strings.EqualFold(dst, "korean") {
			continue
		}
		g.entries = append(g.entries, Entry{Source: src, Target: dst})
	}
	g.sortEntries()
	return g, nil
}

func (g *Glossary) sortEntries() {
	sort.SliceStable(g.entries, func(i, j int) bool {
		if len(g.entries[i].Source) != len(g.entries[j].Source) {
			return len(g.entries[i].Source) > len(g.entries[j].Source)
		}
		return g.entries[i].Source < g.entries[j].Source
	})
}

// Len returns the number of glossary entries.
func (g *Glossary) Len() int {
	if g == nil {
		return 0
	}
	return len(g.entries)
}

// Entries returns the entries in substitution order.
func (g *Glossary) Entries() []Entry {
	if g == nil {
		return nil
	}
	return g.entries
}

// PromptSection renders the glossary as a system prompt fragment so the
// model sees the preferred terms up front. The authoritative guarantee is
// still Enforce; this only reduces how often it has to correct anything.
func (g *Glossary) PromptSection() string {
	if g.Len() == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\nUse the following glossary for specific terms (English: Korean):\n")
	for _, e := range g.entries {
		sb.WriteString(fmt.Sprintf("- '%s': '%s'\n", e.Source, e.Target))
	}
	return sb.String()
}

// Enforce forces glossary targets into translated text. For every entry
// whose source term appears as an exact substring of the paragraph source
// text, the translated text must contain the target term verbatim: any
// surviving occurrence of the source term is replaced, and if the target is
// still absent it is appended as a parenthesized gloss. This is a
// post-processing override, not a prompt hint, so glossary fidelity holds
// even when the model ignores the instruction.
func (g *Glossary) Enforce(sourceText, translatedText string) string {
	if g.Len() == 0 {
		return translatedText
	}

	result := translatedText
	for _, e := range g.entries {
		if !strings.Contains(sourceText, e.Source) {
			continue
		}
		if strings.Contains(result, e.Target) {
			continue
		}
		if strings.Contains(result, e.Source) {
			result = strings.ReplaceAll(result, e.Source, e.Target)
			continue
		}
		result = result + " (" + e.Target + ")"
	}
	return result
}
