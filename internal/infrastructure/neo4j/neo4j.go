// Package neo4j implements the knowledge-graph store over the official
// Neo4j Go driver. Entities and their RELATES_TO relationships are written
// by the ingestion side and queried by the retrieval core.
package neo4j

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v6/neo4j"

	"github.com/zhang-liz/Enterprise-rag-system/internal/domain/repository"
)

// Client implements repository.GraphRepository.
type Client struct {
	driver neo4j.Driver
}

// NewClient creates a new Neo4j client, verifies connectivity and ensures
// the schema constraints exist.
func NewClient(ctx context.Context, uri, user, password string) (*Client, error) {
	driver, err := neo4j.NewDriver(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver for %s: %w", uri, err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		if closeErr := driver.Close(ctx); closeErr != nil {
			log.Printf("[Neo4j] Warning: failed to close driver after connectivity check: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to verify Neo4j connectivity at %s: %w", uri, err)
	}

	c := &Client{driver: driver}
	c.initializeSchema(ctx)

	log.Printf("[Neo4j] Connected to %s as %s", uri, user)
	return c, nil
}

// initializeSchema creates constraints and indexes. Failures are tolerated;
// the statements are idempotent but older servers reject IF NOT EXISTS.
func (c *Client) initializeSchema(ctx context.Context) {
	statements := []string{
		"CREATE CONSTRAINT entity_name IF NOT EXISTS FOR (e:Entity) REQUIRE e.name IS UNIQUE",
		"CREATE CONSTRAINT file_id IF NOT EXISTS FOR (f:File) REQUIRE f.id IS UNIQUE",
		"CREATE INDEX entity_type IF NOT EXISTS FOR (e:Entity) ON (e.type)",
		"CREATE INDEX entity_modality IF NOT EXISTS FOR (e:Entity) ON (e.modality)",
	}

	for _, stmt := range statements {
		if _, err := neo4j.ExecuteQuery(ctx, c.driver, stmt, nil,
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(""),
		); err != nil {
			log.Printf("[Neo4j] Schema statement skipped: %v", err)
		}
	}
}

// AddEntity upserts an entity node and links it to its source file.
func (c *Client) AddEntity(ctx context.Context, entity repository.EntityRecord, sourceFileID string) error {
	query := `
		MERGE (e:Entity {name: $name})
		SET e.type = $type,
		    e.description = $description,
		    e.confidence = $confidence,
		    e.modality = $modality
		MERGE (f:File {id: $file_id})
		MERGE (e)-[:EXTRACTED_FROM {modality: $modality}]->(f)
	`
	_, err := neo4j.ExecuteQuery(ctx, c.driver, query,
		map[string]any{
			"name":        entity.Name,
			"type":        entity.Type,
			"description": entity.Description,
			"confidence":  entity.Confidence,
			"modality":    entity.Modality,
			"file_id":     sourceFileID,
		},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(""),
	)
	if err != nil {
		return fmt.Errorf("neo4j entity upsert failed for %q: %w", entity.Name, err)
	}
	return nil
}

// AddRelationship upserts a RELATES_TO edge between two entities, creating
// the endpoints if needed.
func (c *Client) AddRelationship(ctx context.Context, source, target, relType, description string, confidence float64, sourceFileID string) error {
	query := `
		MERGE (e1:Entity {name: $source_entity})
		MERGE (e2:Entity {name: $target_entity})
		MERGE (e1)-[r:RELATES_TO {
			type: $rel_type,
			description: $description,
			confidence: $confidence,
			source_file: $file_id
		}]->(e2)
	`
	_, err := neo4j.ExecuteQuery(ctx, c.driver, query,
		map[string]any{
			"source_entity": source,
			"target_entity": target,
			"rel_type":      relType,
			"description":   description,
			"confidence":    confidence,
			"file_id":       sourceFileID,
		},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(""),
	)
	if err != nil {
		return fmt.Errorf("neo4j relationship upsert failed %s->%s: %w", source, target, err)
	}
	return nil
}

// FindEntity looks up an entity by exact name. Returns (nil, nil) when the
// entity does not exist.
func (c *Client) FindEntity(ctx context.Context, name string) (*repository.EntityRecord, error) {
	query := `
		MATCH (e:Entity {name: $name})
		RETURN e
		LIMIT 1
	`
	result, err := neo4j.ExecuteQuery(ctx, c.driver, query,
		map[string]any{"name": name},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(""),
	)
	if err != nil {
		return nil, fmt.Errorf("neo4j entity lookup failed for %q: %w", name, err)
	}
	if len(result.Records) == 0 {
		return nil, nil
	}

	node, _, err := neo4j.GetRecordValue[neo4j.Node](result.Records[0], "e")
	if err != nil {
		return nil, fmt.Errorf("neo4j result parse failed: %w", err)
	}

	record := entityFromProps(node.Props)
	return &record, nil
}

// FindRelatedEntities returns entities reachable from name over RELATES_TO
// edges up to maxDepth hops, with the relationship type of the first hop.
func (c *Client) FindRelatedEntities(ctx context.Context, name string, maxDepth int) ([]repository.RelatedEntity, error) {
	if maxDepth < 1 {
		maxDepth = 1
	}
	// Variable-length bounds must be literals in Cypher.
	query := fmt.Sprintf(`
		MATCH path = (e:Entity {name: $name})-[:RELATES_TO*1..%d]-(related:Entity)
		RETURN DISTINCT related, [r IN relationships(path) | r.type][0] AS rel_type
	`, maxDepth)

	result, err := neo4j.ExecuteQuery(ctx, c.driver, query,
		map[string]any{"name": name},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(""),
	)
	if err != nil {
		return nil, fmt.Errorf("neo4j related lookup failed for %q: %w", name, err)
	}

	var related []repository.RelatedEntity
	for _, rec := range result.Records {
		node, _, err := neo4j.GetRecordValue[neo4j.Node](rec, "related")
		if err != nil {
			continue
		}
		relType, _, _ := neo4j.GetRecordValue[string](rec, "rel_type")
		if relType == "" {
			relType = "RELATES_TO"
		}
		related = append(related, repository.RelatedEntity{
			Entity:       entityFromProps(node.Props),
			Relationship: relType,
		})
	}
	return related, nil
}

// KeywordSearch matches entities whose name or description contains any of
// the keywords (case-insensitive), up to limit, with their direct
// neighbours.
func (c *Client) KeywordSearch(ctx context.Context, keywords []string, limit int) ([]repository.KeywordMatch, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	escaped := make([]string, len(keywords))
	for i, k := range keywords {
		escaped[i] = regexp.QuoteMeta(k)
	}
	pattern := fmt.Sprintf("(?i).*(%s).*", strings.Join(escaped, "|"))

	query := `
		MATCH (e:Entity)
		WHERE e.name =~ $pattern OR e.description =~ $pattern
		OPTIONAL MATCH (e)-[:RELATES_TO]-(related:Entity)
		RETURN e, collect(DISTINCT related) AS related_entities
		LIMIT $limit
	`
	result, err := neo4j.ExecuteQuery(ctx, c.driver, query,
		map[string]any{"pattern": pattern, "limit": limit},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(""),
	)
	if err != nil {
		return nil, fmt.Errorf("neo4j keyword search failed: %w", err)
	}

	var matches []repository.KeywordMatch
	for _, rec := range result.Records {
		node, _, err := neo4j.GetRecordValue[neo4j.Node](rec, "e")
		if err != nil {
			continue
		}
		match := repository.KeywordMatch{Entity: entityFromProps(node.Props)}

		neighbours, _, _ := neo4j.GetRecordValue[[]any](rec, "related_entities")
		for _, n := range neighbours {
			if rn, ok := n.(neo4j.Node); ok {
				match.Related = append(match.Related, entityFromProps(rn.Props))
			}
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// Statistics reports entity, relationship and file counts plus the entity
// type distribution.
func (c *Client) Statistics(ctx context.Context) (map[string]any, error) {
	stats := make(map[string]any)

	counts := map[string]string{
		"num_entities":      "MATCH (e:Entity) RETURN count(e) AS cnt",
		"num_relationships": "MATCH ()-[r:RELATES_TO]->() RETURN count(r) AS cnt",
		"num_files":         "MATCH (f:File) RETURN count(f) AS cnt",
	}
	for key, query := range counts {
		result, err := neo4j.ExecuteQuery(ctx, c.driver, query, nil,
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(""),
		)
		if err != nil {
			return nil, fmt.Errorf("neo4j statistics query failed: %w", err)
		}
		if len(result.Records) > 0 {
			cnt, _, _ := neo4j.GetRecordValue[int64](result.Records[0], "cnt")
			stats[key] = cnt
		}
	}

	typesResult, err := neo4j.ExecuteQuery(ctx, c.driver, `
		MATCH (e:Entity)
		RETURN e.type AS type, count(e) AS cnt
		ORDER BY cnt DESC
	`, nil,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(""),
	)
	if err != nil {
		return nil, fmt.Errorf("neo4j statistics query failed: %w", err)
	}

	entityTypes := make(map[string]int64)
	for _, rec := range typesResult.Records {
		entityType, _, _ := neo4j.GetRecordValue[string](rec, "type")
		cnt, _, _ := neo4j.GetRecordValue[int64](rec, "cnt")
		entityTypes[entityType] = cnt
	}
	stats["entity_types"] = entityTypes

	return stats, nil
}

// Close closes the underlying Neo4j driver.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func entityFromProps(props map[string]any) repository.EntityRecord {
	record := repository.EntityRecord{
		Name:        propString(props, "name"),
		Type:        propString(props, "type"),
		Description: propString(props, "description"),
		Modality:    propString(props, "modality"),
	}
	switch v := props["confidence"].(type) {
	case float64:
		record.Confidence = v
	case int64:
		record.Confidence = float64(v)
	}
	return record
}

func propString(props map[string]any, key string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}
