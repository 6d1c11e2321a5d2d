package pipeline

import "time"

const (
	defaultRunTimeout            = 90 * time.Second
	defaultStageTimeout          = 20 * time.Second
	defaultMaxHitsPerStage       = 20
	defaultMaxResults            = 50
	defaultExtractionConcurrency = 4
	defaultItemTimeout           = 20 * time.Second
	defaultIndexTimeout          = 30 * time.Second
)

// DefaultEducationDomains are the site: hints of the education_sites stage.
var DefaultEducationDomains = []string{".edu", ".ac.uk", ".edu.au", ".ac.nz", ".ac.jp"}

// Config bounds a search run.
type Config struct {
	RunTimeout            time.Duration `env:"PIPELINE_RUN_TIMEOUT"            yaml:"run_timeout"`
	StageTimeout          time.Duration `env:"PIPELINE_STAGE_TIMEOUT"          yaml:"stage_timeout"`
	MaxHitsPerStage       int           `env:"PIPELINE_MAX_HITS_PER_STAGE"     yaml:"max_hits_per_stage"`
	MaxResults            int           `env:"PIPELINE_MAX_RESULTS"            yaml:"max_results"`
	ExtractionConcurrency int           `env:"PIPELINE_EXTRACTION_CONCURRENCY" yaml:"extraction_concurrency"`
	IndexTimeout          time.Duration `env:"PIPELINE_INDEX_TIMEOUT"          yaml:"index_timeout"`
	EducationDomains      []string      `env:"PIPELINE_EDUCATION_DOMAINS"      yaml:"education_domains"`
	// ItemTimeout bounds one extraction. It is taken from the extraction section.
	ItemTimeout time.Duration `yaml:"-"`
}

// SetDefaults fills zero fields.
func (c *Config) SetDefaults() {
	if c.RunTimeout == 0 {
		c.RunTimeout = defaultRunTimeout
	}
	if c.StageTimeout == 0 {
		c.StageTimeout = defaultStageTimeout
	}
	if c.MaxHitsPerStage == 0 {
		c.MaxHitsPerStage = defaultMaxHitsPerStage
	}
	if c.MaxResults == 0 {
		c.MaxResults = defaultMaxResults
	}
	if c.ExtractionConcurrency == 0 {
		c.ExtractionConcurrency = defaultExtractionConcurrency
	}
	if c.ItemTimeout == 0 {
		c.ItemTimeout = defaultItemTimeout
	}
	if c.IndexTimeout == 0 {
		c.IndexTimeout = defaultIndexTimeout
	}
	if len(c.EducationDomains) == 0 {
		c.EducationDomains = append([]string(nil), DefaultEducationDomains...)
	}
}
