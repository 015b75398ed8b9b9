package agent

// Action is the branch decision recorded by the classify and decide steps.
type Action string

const (
	ActionUnset    Action = ""
	ActionResearch Action = "research"
	ActionDirect   Action = "direct"
	ActionContinue Action = "continue"
	ActionFinish   Action = "finish"
)

// State is the workflow state for one run. Steps never mutate it; each step
// returns a Delta that the engine merges through reduce, so two concurrent
// runs can never alias each other's slices.
type State struct {
	// Query is the user's question, immutable once set.
	Query string `json:"query"`

	// Plan is the research plan, empty until the planning step runs.
	Plan string `json:"plan"`

	// SearchResults is append-only, in chronological order.
	SearchResults []string `json:"search_results"`

	// Reflection holds only the latest reflection.
	Reflection string `json:"reflection"`

	// NextAction drives branching after classify and decide.
	NextAction Action `json:"next_action"`

	// Iterations counts completed search steps.
	Iterations int `json:"iteration_count"`

	// FinalAnswer is set only by synthesis or the degradation path.
	FinalAnswer string `json:"final_answer"`

	// Trace is a human-readable log of steps taken.
	Trace []string `json:"trace"`
}

// Delta is a partial state update produced by one step.
//
// SearchExecuted marks a completed search attempt and increments Iterations
// whether or not a result was produced; SearchResult is appended only when
// the search succeeded.
type Delta struct {
	Plan            string
	ResetIterations bool
	SearchResult    *string
	SearchExecuted  bool
	Reflection      string
	NextAction      Action
	FinalAnswer     string
	Trace           []string
}

// reduce merges a step's Delta into the previous state and returns a new
// state value. Slices are copied before appending, never shared.
func reduce(prev State, d Delta) State {
	next := prev
	next.SearchResults = append([]string(nil), prev.SearchResults...)
	next.Trace = append([]string(nil), prev.Trace...)

	if d.Plan != "" {
		next.Plan = d.Plan
	}
	if d.ResetIterations {
		next.Iterations = 0
	}
	if d.SearchResult != nil {
		next.SearchResults = append(next.SearchResults, *d.SearchResult)
	}
	if d.SearchExecuted {
		next.Iterations++
	}
	if d.Reflection != "" {
		next.Reflection = d.Reflection
	}
	if d.NextAction != ActionUnset {
		next.NextAction = d.NextAction
	}
	if d.FinalAnswer != "" {
		next.FinalAnswer = d.FinalAnswer
	}
	next.Trace = append(next.Trace, d.Trace...)
	return next
}
