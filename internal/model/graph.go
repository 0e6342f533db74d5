package model

// EntityKind is the closed enumeration of knowledge-graph entity types.
type EntityKind string

const (
	EntityProphet         EntityKind = "Prophet"
	EntityPerson          EntityKind = "Person"
	EntityPlace           EntityKind = "Place"
	EntityAfterlifePlace  EntityKind = "AfterlifePlace"
	EntityDivineAttribute EntityKind = "DivineAttribute"
	EntityEvent           EntityKind = "Event"
	EntityConcept         EntityKind = "Concept"
	EntityNation          EntityKind = "Nation"
	EntityAngel           EntityKind = "Angel"
	EntityRuling          EntityKind = "Ruling"
	EntityScripture       EntityKind = "Scripture"
	EntityObject          EntityKind = "Object"
	EntityTimeReference   EntityKind = "TimeReference"
)

var validEntityKinds = map[EntityKind]struct{}{
	EntityProphet: {}, EntityPerson: {}, EntityPlace: {}, EntityAfterlifePlace: {},
	EntityDivineAttribute: {}, EntityEvent: {}, EntityConcept: {}, EntityNation: {},
	EntityAngel: {}, EntityRuling: {}, EntityScripture: {}, EntityObject: {},
	EntityTimeReference: {},
}

// Valid reports whether k is one of the closed enumeration's members.
func (k EntityKind) Valid() bool {
	_, ok := validEntityKinds[k]
	return ok
}

// MentionRole is the relation an entity bears to a mentioned ayah group.
type MentionRole string

const (
	RolePrimary    MentionRole = "primary"
	RoleSecondary  MentionRole = "secondary"
	RoleReferenced MentionRole = "referenced"
)

// Entity is a node in the knowledge graph, addressed by an arena index at
// runtime and by ID in the store.
type Entity struct {
	ID            string      `json:"id"`
	Type          EntityKind  `json:"type"`
	NameAr        string      `json:"name_ar"`
	NameEn        string      `json:"name_en"`
	DescriptionAr string      `json:"description_ar,omitempty"`
	DescriptionEn string      `json:"description_en,omitempty"`
	Sources       []SourceRef `json:"sources"`
	MatchScore    float64     `json:"-"`
}

// Relationship is a directed, typed edge between two entities.
type Relationship struct {
	SourceEntityID string      `json:"source_entity_id"`
	TargetEntityID string      `json:"target_entity_id"`
	Type           string      `json:"type"`
	Description    string      `json:"description,omitempty"`
	Sources        []SourceRef `json:"sources"`
}

// Mention ties an entity to a parsed Quran ayah group.
type Mention struct {
	EntityID  string      `json:"entity_id"`
	AyahGroup string      `json:"ayah_group"`
	Role      MentionRole `json:"role"`
	Context   string      `json:"context,omitempty"`
}

// GraphContext is what searchEntities returns for attachment to a response:
// the matched entities with their 1-hop neighborhood, the batch-resolved
// display forms of their source references, and timing for debug stats.
type GraphContext struct {
	Entities        []ResolvedEntity          `json:"entities"`
	AllSourceRefs   []SourceRef               `json:"-"`
	ResolvedSources map[string]ResolvedSource `json:"resolved_sources,omitempty"`
	TimingMS        float64                   `json:"timing_ms"`
}

// ResolvedEntity is an Entity plus its 1-hop relationships and mentions,
// with source references left unresolved (resolution happens in a single
// batched pass by the orchestrator, not per-entity).
type ResolvedEntity struct {
	Entity        Entity         `json:"entity"`
	Relationships []Relationship `json:"relationships"`
	Mentions      []Mention      `json:"mentions"`
}

// ResolvedSource is the display form of one SourceRef, produced by the
// batched relational source lookup: the referent's own text (truncated
// per its kind) plus a bilingual label.
type ResolvedSource struct {
	Kind    SourceKind `json:"kind"`
	Ref     string     `json:"ref"`
	LabelAr string     `json:"label_ar,omitempty"`
	LabelEn string     `json:"label_en,omitempty"`
	Text    string     `json:"text"`
}
