/*
Package registry is the entity schema registry of the single table.

The layout is declared in YAML (an embedded default ships with the package) and
names, for each entity kind, its primary key templates, its required attributes,
the attributes derived on every write and the indexes it participates in:

	kinds:
	  - name: assessment
	    pk: "ASSESSMENT#{id}"
	    sk: "METADATA"
	    required: [id, title, current_state, ...]
	    derive:
	      - {attribute: title_lowercase, op: casefold, from: title}
	    indexes: [gsi4-state-updated, gsi5-title-search, gsi6-entity-type]

Adding an entity kind is a schema change, not a change at every write site.

	reg, _ := registry.Default()
	item, err := reg.Prepare("assessment", payload) // derive, then validate

Two process-wide registries complement the schema. The decoder registry maps an
entity_type value to a function producing a typed entity:

	registry.RegisterDecoder("assessment", decodeAssessment)

and the kind registry associates Go types with the kind they are stored as:

	registry.RegisterKind[models.Assessment]("assessment")

Both should be populated during initialization, typically in init() functions.
*/
package registry
