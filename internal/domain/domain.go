package domain

// Player carries every mutable per-playthrough number. Bounded
// resources clamp to [0,Max*]; coins, resolve and the five stats clamp
// at zero.
type Player struct {
	Coins   int `json:"coins" yaml:"coins"`
	Resolve int `json:"resolve" yaml:"resolve"`

	Health     int `json:"health" yaml:"health"`
	MaxHealth  int `json:"max_health" yaml:"max_health"`
	Stamina    int `json:"stamina" yaml:"stamina"`
	MaxStamina int `json:"max_stamina" yaml:"max_stamina"`
	Focus      int `json:"focus" yaml:"focus"`
	MaxFocus   int `json:"max_focus" yaml:"max_focus"`
	Hunger     int `json:"hunger" yaml:"hunger"`
	MaxHunger  int `json:"max_hunger" yaml:"max_hunger"`

	Insight   int `json:"insight" yaml:"insight"`
	Rapport   int `json:"rapport" yaml:"rapport"`
	Authority int `json:"authority" yaml:"authority"`
	Diplomacy int `json:"diplomacy" yaml:"diplomacy"`
	Cunning   int `json:"cunning" yaml:"cunning"`

	CompletedSituations int `json:"completed_situations" yaml:"completed_situations"`
}

// NPC is authored content; RelationshipFlow moves at runtime and
// drives the disposition tier used by scaling.
type NPC struct {
	ID               string `json:"id" yaml:"id"`
	Name             string `json:"name" yaml:"name"`
	LocationID       string `json:"location_id,omitempty" yaml:"location_id,omitempty"`
	Tier             int    `json:"tier" yaml:"tier"`
	RelationshipFlow int    `json:"relationship_flow" yaml:"relationship_flow"`
}

// Location quality tier drives coin-cost scaling.
type Location struct {
	ID    string   `json:"id" yaml:"id"`
	Name  string   `json:"name" yaml:"name"`
	Tier  int      `json:"tier" yaml:"tier"`
	Spots []string `json:"spots,omitempty" yaml:"spots,omitempty"`
}

// OrPath is one alternative unlock path: every populated threshold must
// hold for the path to be satisfied. Nil means "not required".
type OrPath struct {
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	InsightRequired   *int `json:"insight_required,omitempty" yaml:"insight_required,omitempty"`
	RapportRequired   *int `json:"rapport_required,omitempty" yaml:"rapport_required,omitempty"`
	AuthorityRequired *int `json:"authority_required,omitempty" yaml:"authority_required,omitempty"`
	DiplomacyRequired *int `json:"diplomacy_required,omitempty" yaml:"diplomacy_required,omitempty"`
	CunningRequired   *int `json:"cunning_required,omitempty" yaml:"cunning_required,omitempty"`

	ResolveRequired *int `json:"resolve_required,omitempty" yaml:"resolve_required,omitempty"`
	CoinsRequired   *int `json:"coins_required,omitempty" yaml:"coins_required,omitempty"`
	HealthRequired  *int `json:"health_required,omitempty" yaml:"health_required,omitempty"`
	StaminaRequired *int `json:"stamina_required,omitempty" yaml:"stamina_required,omitempty"`
	FocusRequired   *int `json:"focus_required,omitempty" yaml:"focus_required,omitempty"`

	SituationCountRequired *int `json:"situation_count_required,omitempty" yaml:"situation_count_required,omitempty"`
}

// CompoundRequirement is an ordered set of OR alternatives. Zero paths
// means always unlocked.
type CompoundRequirement struct {
	OrPaths []OrPath `json:"or_paths,omitempty" yaml:"or_paths,omitempty"`
}

// Consequence is the single outcome record for both costs and rewards:
// negative values are costs, positive values are rewards. No other
// cost/reward/penalty type exists in the model.
type Consequence struct {
	Coins   int `json:"coins,omitempty" yaml:"coins,omitempty"`
	Resolve int `json:"resolve,omitempty" yaml:"resolve,omitempty"`
	Health  int `json:"health,omitempty" yaml:"health,omitempty"`
	Stamina int `json:"stamina,omitempty" yaml:"stamina,omitempty"`
	Focus   int `json:"focus,omitempty" yaml:"focus,omitempty"`
	Hunger  int `json:"hunger,omitempty" yaml:"hunger,omitempty"`

	Insight   int `json:"insight,omitempty" yaml:"insight,omitempty"`
	Rapport   int `json:"rapport,omitempty" yaml:"rapport,omitempty"`
	Authority int `json:"authority,omitempty" yaml:"authority,omitempty"`
	Diplomacy int `json:"diplomacy,omitempty" yaml:"diplomacy,omitempty"`
	Cunning   int `json:"cunning,omitempty" yaml:"cunning,omitempty"`
}

func (c Consequence) fields() []int {
	return []int{
		c.Coins, c.Resolve, c.Health, c.Stamina, c.Focus, c.Hunger,
		c.Insight, c.Rapport, c.Authority, c.Diplomacy, c.Cunning,
	}
}

// IsZero reports whether applying the consequence changes nothing.
func (c Consequence) IsZero() bool {
	for _, v := range c.fields() {
		if v != 0 {
			return false
		}
	}
	return true
}

// HasAnyCosts reports whether any field is negative.
func (c Consequence) HasAnyCosts() bool {
	for _, v := range c.fields() {
		if v < 0 {
			return true
		}
	}
	return false
}

// HasAnyRewards reports whether any field is positive.
func (c Consequence) HasAnyRewards() bool {
	for _, v := range c.fields() {
		if v > 0 {
			return true
		}
	}
	return false
}

// Action is one entry of the authored catalog.
type Action struct {
	ID          string              `json:"id" yaml:"id"`
	Name        string              `json:"name" yaml:"name"`
	Category    string              `json:"category" yaml:"category"`
	NPCID       string              `json:"npc_id,omitempty" yaml:"npc_id,omitempty"`
	LocationID  string              `json:"location_id,omitempty" yaml:"location_id,omitempty"`
	Requirement CompoundRequirement `json:"requirement,omitempty" yaml:"requirement,omitempty"`
	Consequence Consequence         `json:"consequence,omitempty" yaml:"consequence,omitempty"`
}

// ConditionKind discriminates step completion conditions. The set is
// closed: content validation rejects anything else.
type ConditionKind string

const (
	CondFlagSet        ConditionKind = "flag_set"
	CondFlagNotSet     ConditionKind = "flag_not_set"
	CondCounterAtLeast ConditionKind = "counter_at_least"
	CondCounterBelow   ConditionKind = "counter_below"
	CondCounterEquals  ConditionKind = "counter_equals"
)

func (k ConditionKind) Valid() bool {
	switch k {
	case CondFlagSet, CondFlagNotSet, CondCounterAtLeast, CondCounterBelow, CondCounterEquals:
		return true
	}
	return false
}

// StepCondition must hold for a step to complete.
type StepCondition struct {
	Kind  ConditionKind `json:"kind" yaml:"kind"`
	Key   string        `json:"key" yaml:"key"`
	Value int           `json:"value,omitempty" yaml:"value,omitempty"`
}

// EffectKind discriminates step effects. Closed set; exactly one
// branch matches any given effect.
type EffectKind string

const (
	EffectSetFlag          EffectKind = "set_flag"
	EffectClearFlag        EffectKind = "clear_flag"
	EffectSetCounter       EffectKind = "set_counter"
	EffectIncrementCounter EffectKind = "increment_counter"
	EffectApplyConsequence EffectKind = "apply_consequence"
)

func (k EffectKind) Valid() bool {
	switch k {
	case EffectSetFlag, EffectClearFlag, EffectSetCounter, EffectIncrementCounter, EffectApplyConsequence:
		return true
	}
	return false
}

// StepEffect is applied when a step starts or completes, in authored
// order, never deduplicated.
type StepEffect struct {
	Kind        EffectKind  `json:"kind" yaml:"kind"`
	Key         string      `json:"key,omitempty" yaml:"key,omitempty"`
	Value       int         `json:"value,omitempty" yaml:"value,omitempty"`
	Consequence Consequence `json:"consequence,omitempty" yaml:"consequence,omitempty"`
}

// NarrativeStep is one immutable node of an authored progression. It
// holds no per-playthrough state.
type NarrativeStep struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	GuidanceText string `json:"guidance_text,omitempty" yaml:"guidance_text,omitempty"`

	AllowedCategories []string `json:"allowed_categories,omitempty" yaml:"allowed_categories,omitempty"`
	VisibleNPCs       []string `json:"visible_npcs,omitempty" yaml:"visible_npcs,omitempty"`
	VisibleLocations  []string `json:"visible_locations,omitempty" yaml:"visible_locations,omitempty"`
	VisibleSpots      []string `json:"visible_spots,omitempty" yaml:"visible_spots,omitempty"`

	DialogueOverrides     map[string]string `json:"dialogue_overrides,omitempty" yaml:"dialogue_overrides,omitempty"`
	DeliveryBoardOverride string            `json:"delivery_board_override,omitempty" yaml:"delivery_board_override,omitempty"`

	EntryEffects         []StepEffect    `json:"entry_effects,omitempty" yaml:"entry_effects,omitempty"`
	CompletionConditions []StepCondition `json:"completion_conditions,omitempty" yaml:"completion_conditions,omitempty"`
	CompletionEffects    []StepEffect    `json:"completion_effects,omitempty" yaml:"completion_effects,omitempty"`
}

// NarrativeDefinition is an authored, ordered step sequence.
type NarrativeDefinition struct {
	ID                string          `json:"id" yaml:"id"`
	Title             string          `json:"title,omitempty" yaml:"title,omitempty"`
	Exclusive         bool            `json:"exclusive,omitempty" yaml:"exclusive,omitempty"`
	Steps             []NarrativeStep `json:"steps" yaml:"steps"`
	StartEffects      []StepEffect    `json:"start_effects,omitempty" yaml:"start_effects,omitempty"`
	CompletionRewards []StepEffect    `json:"completion_rewards,omitempty" yaml:"completion_rewards,omitempty"`
}

// ScalingRules are the authored tier tables context scaling derives
// from. All adjustments are additive integers; no multipliers, no
// randomness.
type ScalingRules struct {
	HostileFlowMax     int `json:"hostile_flow_max" yaml:"hostile_flow_max"`
	NeutralFlowMax     int `json:"neutral_flow_max" yaml:"neutral_flow_max"`
	HostileStatAdjust  int `json:"hostile_stat_adjust" yaml:"hostile_stat_adjust"`
	FriendlyStatAdjust int `json:"friendly_stat_adjust" yaml:"friendly_stat_adjust"`

	BasicCoinAdjust   int `json:"basic_coin_adjust" yaml:"basic_coin_adjust"`
	PremiumCoinAdjust int `json:"premium_coin_adjust" yaml:"premium_coin_adjust"`
	LuxuryCoinAdjust  int `json:"luxury_coin_adjust" yaml:"luxury_coin_adjust"`

	DominantResolveAdjust   int `json:"dominant_resolve_adjust" yaml:"dominant_resolve_adjust"`
	SubmissiveResolveAdjust int `json:"submissive_resolve_adjust" yaml:"submissive_resolve_adjust"`
}

// DefaultScalingRules mirrors the shipped content: hostile +2 /
// friendly -2 on stat thresholds; basic -3 / premium +5 / luxury +10
// on coin costs; dominant -1 / submissive +1 on resolve costs.
func DefaultScalingRules() ScalingRules {
	return ScalingRules{
		HostileFlowMax:          9,
		NeutralFlowMax:          14,
		HostileStatAdjust:       2,
		FriendlyStatAdjust:      -2,
		BasicCoinAdjust:         -3,
		PremiumCoinAdjust:       5,
		LuxuryCoinAdjust:        10,
		DominantResolveAdjust:   -1,
		SubmissiveResolveAdjust: 1,
	}
}

// NarrativeState is the mutable per-playthrough progress of one
// narrative: only the pointer and lifecycle stamps, never step data.
type NarrativeState struct {
	NarrativeID string  `json:"narrative_id"`
	StepIndex   int     `json:"step_index"`
	Active      bool    `json:"active"`
	StartedAt   string  `json:"started_at" format:"date-time"`
	CompletedAt *string `json:"completed_at,omitempty" format:"date-time"`
}

// DeliveryItem is one accepted delivery commitment.
type DeliveryItem struct {
	ID                string `json:"id"`
	Sender            string `json:"sender"`
	Recipient         string `json:"recipient"`
	Description       string `json:"description,omitempty"`
	Deadline          int    `json:"deadline,omitempty"`
	Privileged        bool   `json:"privileged,omitempty"`
	PreferredPosition int    `json:"preferred_position,omitempty"`
	QueuePosition     int    `json:"queue_position"`
}

// FlagSnapshot is the serializable state of the flag service.
type FlagSnapshot struct {
	Flags    map[string]bool `json:"flags,omitempty"`
	Counters map[string]int  `json:"counters,omitempty"`
}

// SessionSnapshot is the opaque unit the persistence layer reads and
// writes. Restoring one never re-runs completion effects.
type SessionSnapshot struct {
	ID         string           `json:"id"`
	Player     Player           `json:"player"`
	Narratives []NarrativeState `json:"narratives,omitempty"`
	Queue      []DeliveryItem   `json:"queue,omitempty"`
	Flags      FlagSnapshot     `json:"flags"`
	CreatedAt  string           `json:"created_at" format:"date-time"`
	UpdatedAt  string           `json:"updated_at" format:"date-time"`
}

// ActionResult is the structured outcome of attempting an action. A
// failed attempt carries a display-ready reason and never faults the
// session.
type ActionResult struct {
	OK            bool        `json:"ok"`
	Reason        string      `json:"reason,omitempty"`
	ActionID      string      `json:"action_id,omitempty"`
	Applied       Consequence `json:"applied,omitempty"`
	StepsAdvanced []string    `json:"steps_advanced,omitempty"`
}

// ActionView is what the presentation layer receives: the gated action
// with the same scaled values execution will use.
type ActionView struct {
	Action             Action              `json:"action"`
	ScaledRequirement  CompoundRequirement `json:"scaled_requirement"`
	ScaledConsequence  Consequence         `json:"scaled_consequence"`
	Satisfied          bool                `json:"satisfied"`
	SatisfiedPathIndex int                 `json:"satisfied_path_index"`
}

// APIKey is a hashed credential for the HTTP API. The raw key is shown
// once at creation and only the hash is stored.
type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"-"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Event is one row of the append-only session log.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	SessionID  string `json:"session_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
