package domain

// Stage is a step of a search run. Declaration order is the only legal
// order of transitions.
type Stage string

const (
	StageGeneral            Stage = "general"
	StageEducationSites     Stage = "education_sites"
	StageProgramSpecific    Stage = "program_specific"
	StageExtractingPrograms Stage = "extracting_programs"
	StageRankingPrograms    Stage = "ranking_programs"
	StageComplete           Stage = "complete"
	StageFailed             Stage = "failed"
)

var stageOrder = []Stage{
	StageGeneral,
	StageEducationSites,
	StageProgramSpecific,
	StageExtractingPrograms,
	StageRankingPrograms,
	StageComplete,
	StageFailed,
}

// SearchStages are the stages that query a SearchProvider.
var SearchStages = []Stage{StageGeneral, StageEducationSites, StageProgramSpecific}

// Ordinal returns the position of s in the run order, or -1 if unknown.
func (s Stage) Ordinal() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Terminal reports whether no further transition is allowed.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

func (s Stage) String() string { return string(s) }
