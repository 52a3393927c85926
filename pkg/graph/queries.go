package graph

// Cypher statements issued by the client itself.
const (
	// CreateUniqueConstraint ensures a label's id property is unique and indexed.
	// Arguments: constraint name, label, property.
	CreateUniqueConstraint = `CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE`

	// ShowConstraints lists existing constraints by name.
	ShowConstraints = `SHOW CONSTRAINTS YIELD name RETURN name ORDER BY name`
)
