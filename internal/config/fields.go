package config

import "fmt"

// Bowtie2File is the MultiQC bowtie2 module report.
const Bowtie2File = "multiqc_bowtie2.yaml"

// Labels of the bowtie2 fields.
const (
	LabelNotMapped   = "# Not mapped reads"
	LabelMappedOne   = "# Mapped reads 1"
	LabelMappedMulti = "# Mapped reads multi"
)

// FieldMapping binds an output label to a tag path. The first tag is found at
// any depth below the sample; an optional second tag is then found below that
// match.
type FieldMapping struct {
	Label string   `yaml:"label"`
	Path  []string `yaml:"path,flow"`
}

// FileFields lists the fields to extract from one report file.
type FileFields struct {
	File   string         `yaml:"file"`
	Fields []FieldMapping `yaml:"fields"`
}

// ReportConfig configures which report files are read and how the extracted
// labels become output columns.
type ReportConfig struct {
	// Files overrides the built-in bowtie2 table when non-empty.
	Files []FileFields `yaml:"files,omitempty"`

	// Label written verbatim in the kept column.
	Kept string `yaml:"kept"`

	// Labels summed into the discarded column.
	Discarded []string `yaml:"discarded,flow"`
}

// Bowtie2Fields returns the bowtie2 extraction table for single-end or
// paired-end alignments.
func Bowtie2Fields(singleEnd bool) []FileFields {
	prefix := "paired_aligned_"
	if singleEnd {
		prefix = "unpaired_aligned_"
	}
	return []FileFields{
		{
			File: Bowtie2File,
			Fields: []FieldMapping{
				{Label: LabelNotMapped, Path: []string{prefix + "none"}},
				{Label: LabelMappedOne, Path: []string{prefix + "one"}},
				{Label: LabelMappedMulti, Path: []string{prefix + "multi"}},
			},
		},
	}
}

func (r *ReportConfig) validate(files []FileFields) error {
	labels := make(map[string]bool)
	for i, f := range files {
		if f.File == "" {
			return fmt.Errorf("report file %d: file name not configured", i)
		}
		if len(f.Fields) == 0 {
			return fmt.Errorf("report file %s: no fields configured", f.File)
		}
		for _, m := range f.Fields {
			if m.Label == "" {
				return fmt.Errorf("report file %s: field with empty label", f.File)
			}
			if len(m.Path) == 0 || len(m.Path) > 2 {
				return fmt.Errorf("report file %s: field %q: path must have 1 or 2 tags, got %d", f.File, m.Label, len(m.Path))
			}
			for _, tag := range m.Path {
				if tag == "" {
					return fmt.Errorf("report file %s: field %q: empty tag in path", f.File, m.Label)
				}
			}
			labels[m.Label] = true
		}
	}

	if r.Kept == "" {
		return fmt.Errorf("kept column label not configured")
	}
	if !labels[r.Kept] {
		return fmt.Errorf("kept column label %q is not extracted by any field", r.Kept)
	}
	if len(r.Discarded) == 0 {
		return fmt.Errorf("discarded column labels not configured")
	}
	for _, l := range r.Discarded {
		if !labels[l] {
			return fmt.Errorf("discarded column label %q is not extracted by any field", l)
		}
	}
	return nil
}
