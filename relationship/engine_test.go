package relationship

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mssp-stack/portal-backend/models"
	"github.com/mssp-stack/portal-backend/registry"
	"github.com/mssp-stack/portal-backend/testutil"
)

func setupEngine(t *testing.T) (*Engine, *gorm.DB) {
	db := testutil.SetupTestDB(t)
	return NewEngine(db, registry.NewRegistry(db)), db
}

func TestGetForwardRelationships_ClientOwnsContracts(t *testing.T) {
	engine, db := setupEngine(t)
	client := testutil.CreateTestClient(t, db)
	contract := testutil.CreateTestContract(t, db, client.ID)

	rels := engine.GetForwardRelationships(context.Background(), registry.EntityClient, client.ID.String(), Options{})
	require.Len(t, rels, 1)

	rel := rels[0]
	assert.Equal(t, fmt.Sprintf("client:%s->contract:%s", client.ID, contract.ID), rel.ID)
	assert.Equal(t, RelationOwns, rel.RelationshipType)
	assert.False(t, rel.IsReverse)
	assert.Equal(t, relationshipStrength, rel.Strength)
	require.NotNil(t, rel.SourceEntity)
	assert.Equal(t, client.ID.String(), rel.SourceEntity.ID)
	require.NotNil(t, rel.TargetEntity)
	assert.Equal(t, contract.ID.String(), rel.TargetEntity.ID)
	assert.Equal(t, registry.EntityContract, rel.TargetEntity.Type)
}

func TestGetForwardRelationships_HardwareViaJoinTable(t *testing.T) {
	engine, db := setupEngine(t)
	client := testutil.CreateTestClient(t, db)
	asset := testutil.CreateTestHardwareAsset(t, db)
	testutil.CreateTestAssignment(t, db, client.ID, asset.ID)

	// An asset assigned to a different client must not appear
	other := testutil.CreateTestClient(t, db, func(c *models.Client) { c.Name = "Initech" })
	otherAsset := testutil.CreateTestHardwareAsset(t, db)
	testutil.CreateTestAssignment(t, db, other.ID, otherAsset.ID)

	rels := engine.GetForwardRelationships(context.Background(), registry.EntityClient, client.ID.String(), Options{})
	require.Len(t, rels, 1)
	assert.Equal(t, RelationAssigned, rels[0].RelationshipType)
	require.NotNil(t, rels[0].TargetEntity)
	assert.Equal(t, asset.ID.String(), rels[0].TargetEntity.ID)
	assert.Equal(t, registry.EntityHardwareAsset, rels[0].TargetEntity.Type)
}

func TestGetForwardRelationships_UnknownTypeYieldsEmpty(t *testing.T) {
	engine, _ := setupEngine(t)

	rels := engine.GetForwardRelationships(context.Background(), registry.EntityType("not_a_real_type"), "1", Options{})
	assert.NotNil(t, rels)
	assert.Empty(t, rels)
}

func TestGetForwardRelationships_LimitPerBranch(t *testing.T) {
	engine, db := setupEngine(t)
	client := testutil.CreateTestClient(t, db)
	for i := 0; i < 5; i++ {
		testutil.CreateTestContract(t, db, client.ID)
	}

	rels := engine.GetForwardRelationships(context.Background(), registry.EntityClient, client.ID.String(), Options{Limit: 2})
	assert.Len(t, rels, 2)
}

func TestGetReverseRelationships_ContractBelongsToClient(t *testing.T) {
	engine, db := setupEngine(t)
	client := testutil.CreateTestClient(t, db)
	contract := testutil.CreateTestContract(t, db, client.ID)

	rels := engine.GetReverseRelationships(context.Background(), registry.EntityContract, contract.ID.String(), Options{})
	require.Len(t, rels, 1)

	rel := rels[0]
	assert.True(t, rel.IsReverse)
	assert.Equal(t, RelationOwns, rel.RelationshipType)
	// The parent stays on the source side so the edge ID matches the forward twin
	require.NotNil(t, rel.SourceEntity)
	assert.Equal(t, client.ID.String(), rel.SourceEntity.ID)
	require.NotNil(t, rel.TargetEntity)
	assert.Equal(t, contract.ID.String(), rel.TargetEntity.ID)
}

func TestRelationshipSymmetry(t *testing.T) {
	engine, db := setupEngine(t)
	client := testutil.CreateTestClient(t, db)
	contract := testutil.CreateTestContract(t, db, client.ID)
	ctx := context.Background()

	forward := engine.GetForwardRelationships(ctx, registry.EntityClient, client.ID.String(), Options{})
	require.Len(t, forward, 1)
	reverse := engine.GetReverseRelationships(ctx, registry.EntityContract, contract.ID.String(), Options{})
	require.Len(t, reverse, 1)

	assert.Equal(t, forward[0].ID, reverse[0].ID)
	assert.Equal(t, forward[0].RelationshipType, reverse[0].RelationshipType)
	assert.False(t, forward[0].IsReverse)
	assert.True(t, reverse[0].IsReverse)
	assert.Equal(t, forward[0].SourceEntity.ID, reverse[0].SourceEntity.ID)
	assert.Equal(t, forward[0].TargetEntity.ID, reverse[0].TargetEntity.ID)
}

func TestGetReverseRelationships_NullForeignKeyEmitsNothing(t *testing.T) {
	engine, db := setupEngine(t)
	client := testutil.CreateTestClient(t, db)
	// COC without a SAF: only the client edge should surface
	coc := testutil.CreateTestCOC(t, db, client.ID)

	rels := engine.GetReverseRelationships(context.Background(), registry.EntityCOC, coc.ID.String(), Options{})
	require.Len(t, rels, 1)
	assert.Equal(t, registry.EntityClient, rels[0].SourceEntity.Type)

	// With the SAF set, both parent edges surface
	saf := testutil.CreateTestSAF(t, db, client.ID)
	cocWithSAF := testutil.CreateTestCOC(t, db, client.ID, func(c *models.CertificateOfCompliance) {
		c.SAFID = &saf.ID
	})

	rels = engine.GetReverseRelationships(context.Background(), registry.EntityCOC, cocWithSAF.ID.String(), Options{})
	assert.Len(t, rels, 2)
}

func TestGetReverseRelationships_MissingRowYieldsEmpty(t *testing.T) {
	engine, _ := setupEngine(t)

	rels := engine.GetReverseRelationships(context.Background(), registry.EntityContract, uuid.NewString(), Options{})
	assert.Empty(t, rels)
}

func TestCreateRelationship_IdempotentEdgeID(t *testing.T) {
	engine, db := setupEngine(t)
	client := testutil.CreateTestClient(t, db)
	contract := testutil.CreateTestContract(t, db, client.ID)
	ctx := context.Background()

	row := map[string]interface{}{"id": contract.ID.String(), "title": contract.Title}
	first := engine.CreateRelationship(ctx, registry.EntityClient, client.ID.String(), registry.EntityContract, contract.ID.String(), RelationOwns, row, false)
	second := engine.CreateRelationship(ctx, registry.EntityClient, client.ID.String(), registry.EntityContract, contract.ID.String(), RelationOwns, row, false)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, fmt.Sprintf("client:%s->contract:%s", client.ID, contract.ID), first.ID)
}

func TestGetEntityRelationships_GroupsByType(t *testing.T) {
	engine, db := setupEngine(t)
	client := testutil.CreateTestClient(t, db)
	testutil.CreateTestContract(t, db, client.ID)
	testutil.CreateTestContract(t, db, client.ID)
	asset := testutil.CreateTestHardwareAsset(t, db)
	testutil.CreateTestAssignment(t, db, client.ID, asset.ID)

	groups := engine.GetEntityRelationships(context.Background(), registry.EntityClient, client.ID.String(), Options{})
	require.Len(t, groups, 2)

	byType := make(map[RelationType]Group, len(groups))
	for _, g := range groups {
		byType[g.RelationshipType] = g
	}
	assert.Equal(t, 2, byType[RelationOwns].Count)
	assert.Len(t, byType[RelationOwns].Relationships, 2)
	assert.Equal(t, 1, byType[RelationAssigned].Count)
}

func TestGetRelationshipStats(t *testing.T) {
	engine, db := setupEngine(t)
	client := testutil.CreateTestClient(t, db)
	contract := testutil.CreateTestContract(t, db, client.ID)
	testutil.CreateTestServiceScope(t, db, contract.ID)
	testutil.CreateTestProposal(t, db, contract.ID)
	testutil.CreateTestTransaction(t, db, contract.ID)

	stats := engine.GetRelationshipStats(context.Background(), registry.EntityContract, contract.ID.String())
	// 3 CONTAINS children plus the reverse OWNS edge up to the client
	assert.Equal(t, 4, stats.TotalRelationships)
	assert.Equal(t, 3, stats.RelationshipTypes[RelationContains])
	assert.Equal(t, 1, stats.RelationshipTypes[RelationOwns])
}

func TestGetRelationshipStats_UnknownType(t *testing.T) {
	engine, _ := setupEngine(t)

	stats := engine.GetRelationshipStats(context.Background(), registry.EntityType("widget"), "1")
	assert.Equal(t, 0, stats.TotalRelationships)
	assert.Empty(t, stats.RelationshipTypes)
}

func TestGetRelatedEntities_FiltersAndDeduplicates(t *testing.T) {
	engine, db := setupEngine(t)
	client := testutil.CreateTestClient(t, db)
	asset := testutil.CreateTestHardwareAsset(t, db)
	// Two assignment rows for the same asset (a reassignment) must surface it once
	testutil.CreateTestAssignment(t, db, client.ID, asset.ID)
	testutil.CreateTestAssignment(t, db, client.ID, asset.ID)
	testutil.CreateTestContract(t, db, client.ID)

	related := engine.GetRelatedEntities(context.Background(), registry.EntityClient, client.ID.String(), registry.EntityHardwareAsset, "")
	require.Len(t, related, 1)
	assert.Equal(t, asset.ID.String(), related[0].ID)

	// Relationship-type filter that matches nothing
	related = engine.GetRelatedEntities(context.Background(), registry.EntityClient, client.ID.String(), registry.EntityDocument, "")
	assert.Empty(t, related)
}

func TestGetRelatedEntities_ReverseParent(t *testing.T) {
	engine, db := setupEngine(t)
	client := testutil.CreateTestClient(t, db)
	contract := testutil.CreateTestContract(t, db, client.ID)

	// The parent client is reachable from the contract through the reverse edge
	related := engine.GetRelatedEntities(context.Background(), registry.EntityContract, contract.ID.String(), registry.EntityClient, RelationOwns)
	require.Len(t, related, 1)
	assert.Equal(t, client.ID.String(), related[0].ID)
	assert.Equal(t, registry.EntityClient, related[0].Type)
}

func TestGetForwardRelationships_SAFAuthorizes(t *testing.T) {
	engine, db := setupEngine(t)
	client := testutil.CreateTestClient(t, db)
	contract := testutil.CreateTestContract(t, db, client.ID)
	saf := testutil.CreateTestSAF(t, db, client.ID)
	testutil.CreateTestCOC(t, db, client.ID, func(c *models.CertificateOfCompliance) { c.SAFID = &saf.ID })
	testutil.CreateTestServiceScope(t, db, contract.ID, func(s *models.ServiceScope) { s.SAFID = &saf.ID })

	rels := engine.GetForwardRelationships(context.Background(), registry.EntitySAF, saf.ID.String(), Options{})
	require.Len(t, rels, 2)
	for _, rel := range rels {
		assert.Equal(t, RelationAuthorizes, rel.RelationshipType)
	}
}
