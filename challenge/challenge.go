// Package challenge defines the verification challenge catalog and the
// adaptive issuer that builds the ordered slot list for a new session.
package challenge

// Kind identifies the capability a challenge tests.
type Kind string

const (
	KindBlink       Kind = "blink"
	KindHeadTurn    Kind = "head_turn"
	KindSmile       Kind = "smile"
	KindSpeakPhrase Kind = "speak_phrase"
	KindNod         Kind = "nod"
)

// Kinds is the fixed capability set the issuer draws from.
var Kinds = []Kind{KindBlink, KindHeadTurn, KindSmile, KindSpeakPhrase, KindNod}

// Difficulty grades a challenge instruction.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the supported grades in ascending order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Metrics holds the normalized signal measurements retained on a slot from
// the most recent returned evaluation. All score fields are in [0,1] with 1
// being best.
type Metrics struct {
	Liveness   float64 `json:"liveness"`
	LipSync    float64 `json:"lip_sync"`
	Reaction   float64 `json:"reaction"`
	Stability  float64 `json:"stability"`
	BlinkCount int     `json:"blink_count"`
}

// Slot is a session's bookkeeping record for one issued challenge. Slots are
// created by the Issuer, mutated only through the session store, and retained
// after consumption for trust scoring.
type Slot struct {
	ChallengeID  string     `json:"challenge_id"`
	Kind         Kind       `json:"kind"`
	Difficulty   Difficulty `json:"difficulty"`
	Instruction  string     `json:"instruction"`
	TimeLimit    int        `json:"time_limit_seconds"`
	Attempts     int        `json:"attempts"`
	MaxAttempts  int        `json:"max_attempts"`
	Passed       bool       `json:"passed"`
	Consumed     bool       `json:"consumed"`
	BindingToken string     `json:"binding_token"`
	Metrics      Metrics    `json:"metrics"`
}

// RetriesLeft reports how many submissions the slot can still accept.
func (s *Slot) RetriesLeft() int {
	if s.Consumed || s.Attempts >= s.MaxAttempts {
		return 0
	}
	return s.MaxAttempts - s.Attempts
}
