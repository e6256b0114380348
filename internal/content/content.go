package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"wayline/internal/domain"
)

// Content models wayline.yml: every authored template the engine
// reads. It is loaded once and treated as immutable; sessions never
// write back into it.
type Content struct {
	World struct {
		ID    string `yaml:"id"`
		Title string `yaml:"title,omitempty"`
	} `yaml:"world"`

	StartingPlayer domain.Player       `yaml:"starting_player"`
	QueueCapacity  int                 `yaml:"queue_capacity,omitempty"`
	Scaling        domain.ScalingRules `yaml:"scaling"`

	NPCs      []domain.NPC      `yaml:"npcs,omitempty"`
	Locations []domain.Location `yaml:"locations,omitempty"`

	Catalog    []domain.Action              `yaml:"catalog"`
	Narratives []domain.NarrativeDefinition `yaml:"narratives,omitempty"`

	CategorySynonyms map[string][]string `yaml:"category_synonyms,omitempty"`
}

// Load reads and validates content from the workspace.
func Load(workspace string) (*Content, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("content %s not found; create one with wayline content init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the content file does not exist.
func LoadOptional(workspace string) (*Content, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Path returns the content file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "wayline.yml")
}

// FromYAML parses and validates content from raw YAML bytes.
func FromYAML(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("invalid content yaml: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// FromFile reads YAML content from the given path.
func FromFile(path string) (*Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the built-in tutorial content.
func Default(worldID string) *Content {
	var c Content
	_ = yaml.Unmarshal([]byte(fmt.Sprintf(defaultTemplate, worldID)), &c)
	return &c
}

// GenerateDefault returns the default content YAML.
func GenerateDefault(worldID string) string {
	return fmt.Sprintf(defaultTemplate, worldID)
}

// NPC returns the authored NPC by id, or nil.
func (c *Content) NPC(id string) *domain.NPC {
	for i := range c.NPCs {
		if strings.EqualFold(c.NPCs[i].ID, id) {
			return &c.NPCs[i]
		}
	}
	return nil
}

// Location returns the authored location by id, or nil.
func (c *Content) Location(id string) *domain.Location {
	for i := range c.Locations {
		if strings.EqualFold(c.Locations[i].ID, id) {
			return &c.Locations[i]
		}
	}
	return nil
}

// Action returns the catalog entry by id, or nil.
func (c *Content) Action(id string) *domain.Action {
	for i := range c.Catalog {
		if strings.EqualFold(c.Catalog[i].ID, id) {
			return &c.Catalog[i]
		}
	}
	return nil
}

// Narrative returns the authored narrative by id, or nil.
func (c *Content) Narrative(id string) *domain.NarrativeDefinition {
	for i := range c.Narratives {
		if strings.EqualFold(c.Narratives[i].ID, id) {
			return &c.Narratives[i]
		}
	}
	return nil
}

// Validate ensures the content meets required structure. Invalid
// condition or effect kinds and dangling references are load-time
// errors, never runtime surprises.
func (c *Content) Validate() error {
	if c.World.ID == "" {
		return fmt.Errorf("content.world.id is required")
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("content.queue_capacity must not be negative")
	}

	npcs := map[string]bool{}
	for _, n := range c.NPCs {
		if n.ID == "" {
			return fmt.Errorf("content.npcs contains empty id")
		}
		if npcs[strings.ToLower(n.ID)] {
			return fmt.Errorf("duplicate npc id %s", n.ID)
		}
		npcs[strings.ToLower(n.ID)] = true
	}
	locations := map[string]bool{}
	for _, l := range c.Locations {
		if l.ID == "" {
			return fmt.Errorf("content.locations contains empty id")
		}
		if locations[strings.ToLower(l.ID)] {
			return fmt.Errorf("duplicate location id %s", l.ID)
		}
		locations[strings.ToLower(l.ID)] = true
	}
	for _, n := range c.NPCs {
		if n.LocationID != "" && !locations[strings.ToLower(n.LocationID)] {
			return fmt.Errorf("npc %s references unknown location %s", n.ID, n.LocationID)
		}
	}

	actions := map[string]bool{}
	for _, a := range c.Catalog {
		if a.ID == "" {
			return fmt.Errorf("content.catalog contains empty action id")
		}
		if actions[strings.ToLower(a.ID)] {
			return fmt.Errorf("duplicate action id %s", a.ID)
		}
		actions[strings.ToLower(a.ID)] = true
		if a.Category == "" {
			return fmt.Errorf("action %s has empty category", a.ID)
		}
		if a.NPCID != "" && !npcs[strings.ToLower(a.NPCID)] {
			return fmt.Errorf("action %s references unknown npc %s", a.ID, a.NPCID)
		}
		if a.LocationID != "" && !locations[strings.ToLower(a.LocationID)] {
			return fmt.Errorf("action %s references unknown location %s", a.ID, a.LocationID)
		}
	}

	narratives := map[string]bool{}
	for _, def := range c.Narratives {
		if def.ID == "" {
			return fmt.Errorf("content.narratives contains empty id")
		}
		if narratives[strings.ToLower(def.ID)] {
			return fmt.Errorf("duplicate narrative id %s", def.ID)
		}
		narratives[strings.ToLower(def.ID)] = true
		if err := validateEffects(def.ID, "start_effects", def.StartEffects); err != nil {
			return err
		}
		if err := validateEffects(def.ID, "completion_rewards", def.CompletionRewards); err != nil {
			return err
		}
		stepIDs := map[string]bool{}
		for i, step := range def.Steps {
			if step.ID == "" {
				return fmt.Errorf("narrative %s step %d has empty id", def.ID, i)
			}
			if stepIDs[strings.ToLower(step.ID)] {
				return fmt.Errorf("narrative %s has duplicate step id %s", def.ID, step.ID)
			}
			stepIDs[strings.ToLower(step.ID)] = true
			for _, cond := range step.CompletionConditions {
				if !cond.Kind.Valid() {
					return fmt.Errorf("narrative %s step %s has unknown condition kind %q", def.ID, step.ID, cond.Kind)
				}
				if cond.Key == "" {
					return fmt.Errorf("narrative %s step %s has condition with empty key", def.ID, step.ID)
				}
			}
			if err := validateEffects(def.ID, step.ID, step.EntryEffects); err != nil {
				return err
			}
			if err := validateEffects(def.ID, step.ID, step.CompletionEffects); err != nil {
				return err
			}
			for _, npcID := range step.VisibleNPCs {
				if !npcs[strings.ToLower(npcID)] {
					return fmt.Errorf("narrative %s step %s lists unknown npc %s", def.ID, step.ID, npcID)
				}
			}
			for _, locID := range step.VisibleLocations {
				if !locations[strings.ToLower(locID)] {
					return fmt.Errorf("narrative %s step %s lists unknown location %s", def.ID, step.ID, locID)
				}
			}
		}
	}

	for cat, syns := range c.CategorySynonyms {
		if cat == "" {
			return fmt.Errorf("content.category_synonyms contains empty category")
		}
		for _, syn := range syns {
			if syn == "" {
				return fmt.Errorf("category %s has empty synonym", cat)
			}
		}
	}
	return nil
}

func validateEffects(narrativeID, where string, effects []domain.StepEffect) error {
	for _, eff := range effects {
		if !eff.Kind.Valid() {
			return fmt.Errorf("narrative %s %s has unknown effect kind %q", narrativeID, where, eff.Kind)
		}
		switch eff.Kind {
		case domain.EffectApplyConsequence:
			if eff.Consequence.IsZero() {
				return fmt.Errorf("narrative %s %s has apply_consequence effect with empty consequence", narrativeID, where)
			}
		default:
			if eff.Key == "" {
				return fmt.Errorf("narrative %s %s has %s effect with empty key", narrativeID, where, eff.Kind)
			}
		}
	}
	return nil
}

const defaultTemplate = `world:
  id: %s
  title: Crossroads Tutorial

starting_player:
  coins: 20
  resolve: 5
  health: 10
  max_health: 10
  stamina: 10
  max_stamina: 10
  focus: 10
  max_focus: 10
  hunger: 0
  max_hunger: 10
  insight: 3
  rapport: 3
  authority: 2
  diplomacy: 2
  cunning: 2

queue_capacity: 8

scaling:
  hostile_flow_max: 9
  neutral_flow_max: 14
  hostile_stat_adjust: 2
  friendly_stat_adjust: -2
  basic_coin_adjust: -3
  premium_coin_adjust: 5
  luxury_coin_adjust: 10
  dominant_resolve_adjust: -1
  submissive_resolve_adjust: 1

locations:
  - id: waystation
    name: The Waystation
    tier: 2
    spots: [common-room, stable-yard]
  - id: old-road
    name: The Old Road
    tier: 1
  - id: gilded-hall
    name: The Gilded Hall
    tier: 4
    spots: [salon, gallery]

npcs:
  - id: keeper-mara
    name: Keeper Mara
    location_id: waystation
    tier: 3
    relationship_flow: 12
  - id: patron-elowen
    name: Patron Elowen
    location_id: gilded-hall
    tier: 5
    relationship_flow: 15
  - id: courier-brask
    name: Courier Brask
    location_id: old-road
    tier: 2
    relationship_flow: 8

category_synonyms:
  Rest: [Sleep]
  Converse: [Smalltalk]

catalog:
  - id: travel-old-road
    name: Walk the Old Road
    category: Travel
    location_id: old-road
    consequence:
      stamina: -2

  - id: greet-keeper
    name: Greet Keeper Mara
    category: Converse
    npc_id: keeper-mara
    location_id: waystation
    consequence:
      rapport: 1

  - id: rest-common-room
    name: Rest in the Common Room
    category: Rest
    npc_id: keeper-mara
    location_id: waystation
    requirement:
      or_paths:
        - coins_required: 5
        - rapport_required: 6
    consequence:
      coins: -5
      stamina: 6
      health: 2

  - id: petition-patron
    name: Petition Patron Elowen
    category: Converse
    npc_id: patron-elowen
    location_id: gilded-hall
    requirement:
      or_paths:
        - label: charm
          rapport_required: 5
          resolve_required: 2
        - label: bribe
          coins_required: 15
    consequence:
      coins: -10
      resolve: -1
      authority: 1

narratives:
  - id: tutorial
    title: First Steps
    exclusive: true
    steps:
      - id: take-the-road
        name: Take the Road
        guidance_text: Leave the waystation and walk the old road.
        allowed_categories: [Travel]
        visible_locations: [old-road, waystation]
        completion_conditions:
          - kind: counter_at_least
            key: travel_count
            value: 1
      - id: meet-the-keeper
        name: Meet the Keeper
        guidance_text: Return and introduce yourself to Keeper Mara.
        allowed_categories: [Travel, Converse]
        dialogue_overrides:
          keeper-mara: A new face on the road. Welcome in.
        completion_conditions:
          - kind: flag_set
            key: converse_performed
        completion_effects:
          - kind: set_flag
            key: keeper_met
      - id: earn-your-bed
        name: Earn Your Bed
        guidance_text: You have coin enough for one night. Spend it well.
        allowed_categories: [Travel, Converse, Rest]
        completion_conditions:
          - kind: counter_at_least
            key: rest_count
            value: 1
    completion_rewards:
      - kind: apply_consequence
        consequence:
          coins: 10
          resolve: 2
`
