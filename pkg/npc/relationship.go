package npc

import (
	"fmt"
	"math/rand"
)

// Affinity bounds. Affinity is the single scalar driving tone, greetings,
// fallback lines and quest eligibility.
const (
	MinAffinity     = 0
	MaxAffinity     = 100
	DefaultAffinity = 50
)

// Tier is one of four ordered affinity bands. Every tone or threshold
// lookup in the engine goes through this banding.
type Tier int

const (
	TierStranger     Tier = iota // affinity < 20
	TierAcquaintance             // affinity < 50
	TierFriend                   // affinity < 80
	TierConfidant                // affinity >= 80
)

// TierOf maps an affinity value to its band.
func TierOf(affinity int) Tier {
	switch {
	case affinity < 20:
		return TierStranger
	case affinity < 50:
		return TierAcquaintance
	case affinity < 80:
		return TierFriend
	default:
		return TierConfidant
	}
}

func (t Tier) String() string {
	switch t {
	case TierStranger:
		return "stranger"
	case TierAcquaintance:
		return "acquaintance"
	case TierFriend:
		return "friend"
	default:
		return "confidant"
	}
}

// Relationship holds a character's affinity toward the player and derives
// all tier-dependent lines from it.
type Relationship struct {
	Affinity int `json:"affinity"`
}

func NewRelationship() *Relationship {
	return &Relationship{Affinity: DefaultAffinity}
}

// ModifyAffinity adds delta and clamps the result to [0,100].
// It returns the value before and after the change.
func (r *Relationship) ModifyAffinity(delta int) (before, after int) {
	before = r.Affinity
	r.Affinity += delta
	if r.Affinity < MinAffinity {
		r.Affinity = MinAffinity
	}
	if r.Affinity > MaxAffinity {
		r.Affinity = MaxAffinity
	}
	return before, r.Affinity
}

func (r *Relationship) Tier() Tier {
	return TierOf(r.Affinity)
}

// Description is a short human-readable label for the current band,
// shown in the prompt's relationship section.
func (r *Relationship) Description() string {
	switch r.Tier() {
	case TierStranger:
		return "awkward"
	case TierAcquaintance:
		return "comfortable"
	case TierFriend:
		return "glad to see each other"
	default:
		return "someone special"
	}
}

// AttitudeInstruction is the per-tier behavioral instruction injected
// into the system prompt.
func (r *Relationship) AttitudeInstruction() string {
	switch r.Tier() {
	case TierStranger:
		return "The player is almost a stranger. Respond guardedly with short, blunt answers."
	case TierAcquaintance:
		return "The player is an acquaintance. Respond comfortably but keep some distance."
	case TierFriend:
		return "The player is a good friend. Respond warmly and with genuine friendliness."
	default:
		return "The player is someone very special. Respond with deep affection and care."
	}
}

// Greeting selects an opening line from affinity plus elapsed time.
// daysSince is the number of days since the last conversation, -1 for a
// first meeting. The priority order is fixed: first meeting, same day,
// consecutive streak, long absence, week absence, short absence, default.
func (r *Relationship) Greeting(daysSince, consecutiveDays int, talkedToday bool) string {
	switch {
	case daysSince < 0:
		return r.firstMeetGreeting()
	case talkedToday:
		return r.sameDayGreeting()
	case daysSince <= 1 && consecutiveDays >= 2:
		return r.consecutiveGreeting(consecutiveDays)
	case daysSince >= 30:
		return r.longAbsenceGreeting(daysSince)
	case daysSince >= 7:
		return r.weekAbsenceGreeting(daysSince)
	case daysSince >= 2:
		return r.fewDaysGreeting(daysSince)
	default:
		return r.defaultGreeting()
	}
}

func (r *Relationship) firstMeetGreeting() string {
	switch r.Tier() {
	case TierStranger:
		return "...who are you?"
	case TierAcquaintance:
		return "Huh... haven't seen you around before."
	case TierFriend:
		return "Hi! A new face, huh?"
	default:
		return "Hello! Nice to meet you!"
	}
}

func (r *Relationship) sameDayGreeting() string {
	switch r.Tier() {
	case TierStranger:
		return "...you again?"
	case TierAcquaintance:
		return "Back again today?"
	case TierFriend:
		return "Oh? Twice in one day!"
	default:
		return "You came back! I'm glad~"
	}
}

func (r *Relationship) consecutiveGreeting(days int) string {
	switch r.Tier() {
	case TierStranger:
		return "...here again."
	case TierAcquaintance:
		return fmt.Sprintf("You again? That's %d days in a row.", days)
	case TierFriend:
		return fmt.Sprintf("We keep meeting! %d days straight already!", days)
	default:
		return fmt.Sprintf("Wow, %d days in a row! Thanks for coming every day!", days)
	}
}

func (r *Relationship) fewDaysGreeting(days int) string {
	switch r.Tier() {
	case TierStranger:
		return fmt.Sprintf("...been %d days.", days)
	case TierAcquaintance:
		return fmt.Sprintf("Oh, it's been %d days, hasn't it?", days)
	case TierFriend:
		return fmt.Sprintf("%d days! How have you been?", days)
	default:
		return fmt.Sprintf("%d whole days without visiting! I missed you~", days)
	}
}

func (r *Relationship) weekAbsenceGreeting(days int) string {
	switch r.Tier() {
	case TierStranger:
		return "...it's been a while."
	case TierAcquaintance:
		return fmt.Sprintf("Long time no see. %d days, was it?", days)
	case TierFriend:
		return fmt.Sprintf("Hey! It's been %d days! Where did you go?", days)
	default:
		return fmt.Sprintf("You were gone %d days! Did something happen? I was worried...", days)
	}
}

func (r *Relationship) longAbsenceGreeting(days int) string {
	switch r.Tier() {
	case TierStranger:
		return "...you're still alive?"
	case TierAcquaintance:
		return "It's been forever... I thought you forgot about me."
	case TierFriend:
		return fmt.Sprintf("Hey!! %d days! I thought you'd left for good!", days)
	default:
		return fmt.Sprintf("%d days... I was really worried, you know! Thank you for coming back.", days)
	}
}

func (r *Relationship) defaultGreeting() string {
	switch r.Tier() {
	case TierStranger:
		return "...what."
	case TierAcquaintance:
		return "Oh, you're here?"
	case TierFriend:
		return "Hi! Good to see you!"
	default:
		return "There you are! I missed you!"
	}
}

// Farewell is the closing line spoken when a session reaches its turn limit.
func (r *Relationship) Farewell() string {
	switch r.Tier() {
	case TierStranger:
		return "...I have to go."
	case TierAcquaintance:
		return "I should get going."
	case TierFriend:
		return "Is it that late already? See you next time!"
	default:
		return "I can't believe we have to part already... promise we'll meet again!"
	}
}

// BubbleFarewell is the short post-session line for the presentation layer.
func (r *Relationship) BubbleFarewell() string {
	switch r.Tier() {
	case TierStranger:
		return "..."
	case TierAcquaintance:
		return "Bye~"
	case TierFriend:
		return "See you!"
	default:
		return "Bye~ I'll miss you!"
	}
}

// MaxTurns is the per-session player turn allowance for the current tier.
func (r *Relationship) MaxTurns() int {
	switch r.Tier() {
	case TierStranger:
		return 3
	case TierAcquaintance:
		return 5
	case TierFriend:
		return 7
	default:
		return 10
	}
}

var (
	fallbackStranger = []string{
		"......", "...what.", "...sure.", "...hm.", "...not really.",
	}
	fallbackAcquaintance = []string{
		"Hm... I see.", "Oh, really?", "Huh, got it.", "So that's how it is~", "Oh~ is that so?",
	}
	fallbackFriend = []string{
		"Hehe, I see!", "Ooh, fun!", "Right, right!", "Exactly!", "Wow, really?",
	}
	fallbackConfidant = []string{
		"I'm listening~ tell me more!", "Talking with you always cheers me up~",
		"Mm-hm, and then?", "That's great! Tell me another one~", "I love stories like this!",
	}
)

// LocalFallbackLine picks a canned reply for the current tier, used when
// the remote generation path is unavailable or budget-gated. The random
// source is injected so tests can pin the selection.
func (r *Relationship) LocalFallbackLine(rng *rand.Rand) string {
	var pool []string
	switch r.Tier() {
	case TierStranger:
		pool = fallbackStranger
	case TierAcquaintance:
		pool = fallbackAcquaintance
	case TierFriend:
		pool = fallbackFriend
	default:
		pool = fallbackConfidant
	}
	return pool[rng.Intn(len(pool))]
}
