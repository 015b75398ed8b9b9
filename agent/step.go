package agent

// Step identifies one workflow step. The set is fixed; transitions between
// steps are defined by the transition table below rather than a runtime
// node registry, so an illegal route cannot be constructed.
type Step int

const (
	StepClassify Step = iota
	StepPlan
	StepSearch
	StepReflect
	StepDecide
	StepSynthesize
	StepTerminal
)

// String returns the step's wire name, used in checkpoints, events, and
// metrics labels.
func (s Step) String() string {
	switch s {
	case StepClassify:
		return "classify_query"
	case StepPlan:
		return "create_research_plan"
	case StepSearch:
		return "execute_search"
	case StepReflect:
		return "reflect_on_results"
	case StepDecide:
		return "decide_next_step"
	case StepSynthesize:
		return "synthesize_answer"
	case StepTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// transition maps (current step, branch decision) to the next step.
//
// Classify branches on research/direct, decide on continue/finish; every
// other step has exactly one successor. Unrecognized decisions take the
// non-looping branch, which keeps the machine moving toward Terminal.
func transition(current Step, action Action) (Step, error) {
	switch current {
	case StepClassify:
		if action == ActionResearch {
			return StepPlan, nil
		}
		return StepSynthesize, nil
	case StepPlan:
		return StepSearch, nil
	case StepSearch:
		return StepReflect, nil
	case StepReflect:
		return StepDecide, nil
	case StepDecide:
		if action == ActionContinue {
			return StepSearch, nil
		}
		return StepSynthesize, nil
	case StepSynthesize:
		return StepTerminal, nil
	default:
		return StepTerminal, &EngineError{
			Message: "no transition from step: " + current.String(),
			Code:    "ILLEGAL_TRANSITION",
		}
	}
}
