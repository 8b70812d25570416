package analysis

import (
	"fmt"
	"strings"
)

// State is a step of the analysis state machine.
type State string

const (
	StateCollect         State = "COLLECT"
	StateSanitize        State = "SANITIZE"
	StateCacheLookup     State = "CACHE_LOOKUP"
	StateCacheHit        State = "CACHE_HIT"
	StateCacheMiss       State = "CACHE_MISS"
	StateInvoke          State = "INVOKE"
	StateSuccess         State = "SUCCESS"
	StateStore           State = "STORE"
	StateFailure         State = "FAILURE"
	StateRetryOrFallback State = "RETRY_OR_FALLBACK"
	StateExhausted       State = "EXHAUSTED"
	StateRender          State = "RENDER"
	StateFallbackRender  State = "FALLBACK_RENDER"
)

// transitions lists the legal successors of each state.
var transitions = map[State][]State{
	StateCollect:         {StateSanitize},
	StateSanitize:        {StateCacheLookup},
	StateCacheLookup:     {StateCacheHit, StateCacheMiss},
	StateCacheHit:        {StateRender},
	StateCacheMiss:       {StateInvoke, StateExhausted},
	StateInvoke:          {StateSuccess, StateFailure},
	StateSuccess:         {StateStore},
	StateStore:           {StateRender},
	StateFailure:         {StateRetryOrFallback},
	StateRetryOrFallback: {StateInvoke, StateExhausted},
	StateExhausted:       {StateFallbackRender},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateRender || s == StateFallbackRender
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Strategy selects the order in which providers are tried.
type Strategy string

const (
	StrategyPriority   Strategy = "priority"
	StrategyRoundRobin Strategy = "round_robin"
	StrategyFailFast   Strategy = "fail_fast"
)

// ParseStrategy validates a fallback strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyPriority, StrategyRoundRobin, StrategyFailFast:
		return st, nil
	case "":
		return StrategyPriority, nil
	default:
		return "", fmt.Errorf("unknown fallback strategy %q (valid: priority, round_robin, fail_fast)", s)
	}
}
