package diversity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// SequenceType selects the sequence unit a snapshot is expressed in.
type SequenceType int

const (
	// Unspecified means the caller doesn't know the unit and the code's
	// grammar decides.
	Unspecified SequenceType = iota
	Nucleotide
	AminoAcid
)

// ErrUnknownSequenceType is returned by ParseSequenceType for unrecognized
// names.
var ErrUnknownSequenceType = errors.New("unknown sequence type")

// String returns the short name used by the sample API ("nuc" or "aa").
func (s SequenceType) String() string {
	switch s {
	case Nucleotide:
		return "nuc"
	case AminoAcid:
		return "aa"
	default:
		return "unspecified"
	}
}

// ParseSequenceType turns "nuc"/"aa" (or the long forms) into a
// SequenceType.
func ParseSequenceType(s string) (SequenceType, error) {
	switch strings.ToLower(s) {
	case "nuc", "nucleotide", "nucleotides":
		return Nucleotide, nil
	case "aa", "aminoacid", "amino-acid", "amino acids":
		return AminoAcid, nil
	}
	return Unspecified, errors.Wrapf(ErrUnknownSequenceType, "'%s'", s)
}

// Deletion is the mutated base of a deletion.
const Deletion = '-'

// Mutation is a decoded mutation code. Gene is empty for nucleotide
// mutations. Position is 1-based: a genome coordinate for nucleotides, a
// codon index within Gene for amino acids.
type Mutation struct {
	Unit     SequenceType
	Gene     string
	Position int
	Original byte
	Mutated  byte
}

// IsDeletion reports whether the mutation deletes its position.
func (m Mutation) IsDeletion() bool { return m.Mutated == Deletion }

// Key returns the position key the mutation is grouped under. Nucleotide
// keys are the decimal position, amino acid keys are "<gene>:<original><codon>".
func (m Mutation) Key() string {
	if m.Unit == AminoAcid {
		return m.Gene + ":" + string(m.Original) + strconv.Itoa(m.Position)
	}
	return strconv.Itoa(m.Position)
}

// String renders the mutation back into its code.
func (m Mutation) String() string {
	if m.Unit == AminoAcid {
		return fmt.Sprintf("%s:%c%d%c", m.Gene, m.Original, m.Position, m.Mutated)
	}
	return fmt.Sprintf("%c%d%c", m.Original, m.Position, m.Mutated)
}

// MalformedCodeError is returned when a mutation code matches neither
// grammar, or doesn't match the grammar of the unit the caller asked for.
type MalformedCodeError struct {
	Code   string
	Unit   SequenceType
	Reason string
}

func (e *MalformedCodeError) Error() string {
	return fmt.Sprintf("malformed %s mutation code '%s': %s", e.Unit, e.Code, e.Reason)
}

// IsMalformedCode reports whether the cause of err is a *MalformedCodeError.
func IsMalformedCode(err error) bool {
	_, ok := errors.Cause(err).(*MalformedCodeError)
	return ok
}

var (
	nucCode = regexp.MustCompile(`^([A-Z*])([0-9]+)([A-Z*-])$`)
	aaCode  = regexp.MustCompile(`^([A-Za-z0-9_.]+):([A-Z*])([0-9]+)([A-Z*-])$`)
)

// InferSequenceType guesses the unit from the code alone: amino acid codes
// carry a gene name separated by ':', nucleotide codes never do.
func InferSequenceType(code string) SequenceType {
	if strings.Contains(code, ":") {
		return AminoAcid
	}
	return Nucleotide
}

// Decode parses a mutation code. With unit Unspecified the grammar is chosen
// by InferSequenceType. With an explicit unit the code must also belong to
// that unit's grammar.
func Decode(code string, unit SequenceType) (Mutation, error) {
	inferred := InferSequenceType(code)
	if unit == Unspecified {
		unit = inferred
	} else if unit != inferred {
		return Mutation{}, &MalformedCodeError{Code: code, Unit: unit, Reason: "code uses the " + inferred.String() + " grammar"}
	}
	if unit == AminoAcid {
		return decodeAA(code)
	}
	return decodeNuc(code)
}

func decodeNuc(code string) (Mutation, error) {
	m := nucCode.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(code)))
	if m == nil {
		return Mutation{}, &MalformedCodeError{Code: code, Unit: Nucleotide, Reason: "expected <base><position><base>"}
	}
	pos, err := position(m[2])
	if err != nil {
		return Mutation{}, &MalformedCodeError{Code: code, Unit: Nucleotide, Reason: err.Error()}
	}
	return Mutation{
		Unit:     Nucleotide,
		Position: pos,
		Original: m[1][0],
		Mutated:  m[3][0],
	}, nil
}

func decodeAA(code string) (Mutation, error) {
	m := aaCode.FindStringSubmatch(strings.TrimSpace(code))
	if m == nil {
		return Mutation{}, &MalformedCodeError{Code: code, Unit: AminoAcid, Reason: "expected <gene>:<aa><codon><aa>"}
	}
	pos, err := position(m[3])
	if err != nil {
		return Mutation{}, &MalformedCodeError{Code: code, Unit: AminoAcid, Reason: err.Error()}
	}
	return Mutation{
		Unit:     AminoAcid,
		Gene:     m[1],
		Position: pos,
		Original: m[2][0],
		Mutated:  m[4][0],
	}, nil
}

func position(s string) (int, error) {
	pos, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrap(err, "parsing position")
	}
	if pos < 1 {
		return 0, errors.Errorf("position %d is not 1-based", pos)
	}
	return pos, nil
}
