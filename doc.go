// Package diversity computes the genomic diversity of a pathogen across a
// sample selection, as the Shannon entropy (in nats) of the mutation
// proportions observed at each position of the reference genome.
//
// A diversity analysis moves through the following stages. Interfaces and
// basic implementations of each are in this package; implementations which
// rely on other software are in sub-packages.
//
// 1. Source
//
//    A diversity.Source gets the mutation proportions of a selection: the
//    fraction of sequences carrying each substitution or deletion. Sources
//    exist for a LAPIS-style sample API (lapis), a directory of snapshot
//    files (file) and an S3 bucket (s3). A CachingSource memoizes any of them
//    in a BoltDB or LevelDB Cache. A Source only fetches; decoding the codes
//    is the next stage's job. The Analyzer fetches the whole-range snapshot
//    and one snapshot per week concurrently, so Sources must be safe for
//    concurrent use.
//
// 2. Decode
//
//    Decode turns a mutation code into a Mutation. Nucleotide codes look
//    like "A23403G", amino acid codes like "S:D614G"; a '-' as the mutated
//    base marks a deletion. When the caller knows the sequence type the code
//    must match its grammar, otherwise the ':' separator decides.
//
// 3. Entropy
//
//    ComputeEntropy groups a snapshot's records by position, infers the
//    proportion of sequences still carrying the reference base (1 minus the
//    observed proportions) and computes -sum(p ln p) at every position.
//    Amino acid profiles are put into genome order with SortByGenomicOrder,
//    using the declaration order of the genes in the Reference table.
//
// 4. Reduce
//
//    MeanEntropy collapses a profile into a single number. GeneMeanEntropy
//    does the same for one gene, dividing by the gene's reference length
//    rather than by the number of positions present, so positions absent
//    from the profile count as zero entropy. ResolveRange maps a gene onto
//    index bounds within a filtered profile, for range selection widgets.
//
// 5. Series
//
//    WeeklyMeanEntropy runs stages 3 and 4 once per week; MultiGeneSeries
//    does it for several genes and MergeSeries joins the results on the
//    week's start day into rows ready for a multi-line time chart.
//
// The Analyzer runs all of these for one Request and hands the Result to a
// Sink (JSONSink, or kafka.Sink). Everything after stage 1 is a pure
// function of its inputs and the read-only Reference.
package diversity
