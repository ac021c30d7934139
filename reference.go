package diversity

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// AllGenes is the pseudo-gene name which stands for the whole genome.
const AllGenes = "All"

// ErrUnknownGene is returned when a gene name isn't in the reference table.
var ErrUnknownGene = errors.New("unknown gene")

// Gene is a coding region of the reference genome. StartPosition and
// EndPosition are nucleotide coordinates, AASeq is the translated reference.
type Gene struct {
	Name          string `json:"name"`
	StartPosition int    `json:"startPosition"`
	EndPosition   int    `json:"endPosition"`
	AASeq         string `json:"aaSeq"`
}

// IsAll reports whether g is the AllGenes pseudo-gene.
func (g Gene) IsAll() bool { return g.Name == AllGenes }

// Reference is the read-only reference genome table. Build it once with
// NewReference or LoadReference and share it between goroutines; nothing in
// this package modifies it after construction.
type Reference struct {
	GenomeLength int
	Sequence     string
	Genes        []Gene

	// order maps a gene name to its declaration index in Genes.
	order map[string]int
}

// NewReference validates the table and builds the gene order lookup. A
// genomeLength of 0 means len(sequence).
func NewReference(genomeLength int, sequence string, genes []Gene) (*Reference, error) {
	if genomeLength == 0 {
		genomeLength = len(sequence)
	}
	if genomeLength <= 0 {
		return nil, errors.New("reference needs a sequence or a genome length")
	}
	if sequence != "" && len(sequence) != genomeLength {
		return nil, errors.Errorf("reference sequence has %d bases but genome length is %d", len(sequence), genomeLength)
	}
	r := &Reference{
		GenomeLength: genomeLength,
		Sequence:     sequence,
		Genes:        make([]Gene, 0, len(genes)),
		order:        make(map[string]int, len(genes)),
	}
	for _, g := range genes {
		if g.IsAll() {
			// some reference files already carry the pseudo-gene
			continue
		}
		if _, ok := r.order[g.Name]; ok {
			return nil, errors.Errorf("gene '%s' declared twice", g.Name)
		}
		if g.StartPosition > g.EndPosition {
			return nil, errors.Errorf("gene '%s' starts at %d after its end %d", g.Name, g.StartPosition, g.EndPosition)
		}
		r.order[g.Name] = len(r.Genes)
		r.Genes = append(r.Genes, g)
	}
	return r, nil
}

// refData is the on-disk shape of a reference table.
type refData struct {
	NucSeq string `json:"nucSeq"`
	Genes  []Gene `json:"genes"`
}

// LoadReference reads a JSON reference table of the form
// {"nucSeq": "...", "genes": [{"name", "startPosition", "endPosition", "aaSeq"}]}.
// genomeLength overrides the length derived from nucSeq when non-zero, in
// which case nucSeq may be omitted.
func LoadReference(r io.Reader, genomeLength int) (*Reference, error) {
	var data refData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, errors.Wrap(err, "decoding reference json")
	}
	ref, err := NewReference(genomeLength, data.NucSeq, data.Genes)
	return ref, errors.Wrap(err, "building reference")
}

// Gene returns the named gene. AllGenes is answered with a pseudo-gene
// spanning the whole genome.
func (r *Reference) Gene(name string) (Gene, error) {
	if name == AllGenes {
		return Gene{Name: AllGenes, StartPosition: 0, EndPosition: r.GenomeLength}, nil
	}
	idx, ok := r.order[name]
	if !ok {
		return Gene{}, errors.Wrapf(ErrUnknownGene, "'%s'", name)
	}
	return r.Genes[idx], nil
}

// GeneOrder returns the declaration index of the named gene.
func (r *Reference) GeneOrder(name string) (int, bool) {
	idx, ok := r.order[name]
	return idx, ok
}

// Base returns the reference base at the 1-based position, or "" if the
// table has no sequence for it.
func (r *Reference) Base(pos int) string {
	if pos < 1 || pos > len(r.Sequence) {
		return ""
	}
	return r.Sequence[pos-1 : pos]
}
