package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mssp-stack/portal-backend/models"
	"github.com/mssp-stack/portal-backend/registry"
	"github.com/mssp-stack/portal-backend/relationship"
	"github.com/mssp-stack/portal-backend/testutil"
)

func setupEntityRoutes(t *testing.T) (*gorm.DB, *http.ServeMux) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	reg := registry.NewRegistry(db)
	handler := NewEntityHandler(reg, relationship.NewEngine(db, reg))

	mux := http.NewServeMux()
	handler.SetupEntityRoutes(mux)
	return db, mux
}

func doGet(t *testing.T, mux *http.ServeMux, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHandleEntityTypes(t *testing.T) {
	_, mux := setupEntityRoutes(t)

	t.Run("ListsRegisteredTypes", func(t *testing.T) {
		w := doGet(t, mux, "/api/v1/entity-types")

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			EntityTypes []entityTypeInfo `json:"entityTypes"`
			Count       int              `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, len(registry.Types()), resp.Count)
		assert.Contains(t, resp.EntityTypes, entityTypeInfo{
			Type:  registry.EntityClient,
			Label: "Client",
			Table: "clients",
		})
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/entity-types", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestGetEntityEndpoint(t *testing.T) {
	db, mux := setupEntityRoutes(t)
	client := testutil.CreateTestClient(t, db, func(c *models.Client) {
		c.Name = "Meridian Health"
	})

	t.Run("FoundReturnsReference", func(t *testing.T) {
		w := doGet(t, mux, "/api/v1/entities/client/"+client.ID.String())

		assert.Equal(t, http.StatusOK, w.Code)

		var ref registry.Reference
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ref))
		assert.Equal(t, client.ID.String(), ref.ID)
		assert.Equal(t, registry.EntityClient, ref.Type)
		assert.Equal(t, "Meridian Health", ref.Name)
	})

	t.Run("MissingRowIsNotFound", func(t *testing.T) {
		w := doGet(t, mux, "/api/v1/entities/client/7e57ed00-0000-0000-0000-000000000000")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("UnknownTypeIsNotFound", func(t *testing.T) {
		w := doGet(t, mux, "/api/v1/entities/starship/"+client.ID.String())
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("MissingIDIsBadRequest", func(t *testing.T) {
		w := doGet(t, mux, "/api/v1/entities/client")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSearchEndpoint(t *testing.T) {
	db, mux := setupEntityRoutes(t)
	testutil.CreateTestClient(t, db, func(c *models.Client) {
		c.Name = "Acme Manufacturing"
	})
	clientB := testutil.CreateTestClient(t, db, func(c *models.Client) {
		c.Name = "Borealis Retail"
	})
	testutil.CreateTestContract(t, db, clientB.ID, func(c *models.Contract) {
		c.Title = "Acme Migration Project"
	})

	t.Run("MatchesAcrossTypes", func(t *testing.T) {
		w := doGet(t, mux, "/api/v1/entities/search?q=acme")

		assert.Equal(t, http.StatusOK, w.Code)

		var result relationship.SearchResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, 2, result.Total)

		types := make(map[registry.EntityType]int)
		for _, entity := range result.Entities {
			types[entity.Type]++
		}
		assert.Equal(t, 1, types[registry.EntityClient])
		assert.Equal(t, 1, types[registry.EntityContract])
	})

	t.Run("TypeFilterNarrowsResults", func(t *testing.T) {
		w := doGet(t, mux, "/api/v1/entities/search?q=acme&types=contract")

		var result relationship.SearchResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, 1, result.Total)
		assert.Equal(t, registry.EntityContract, result.Entities[0].Type)
	})

	t.Run("MissingQueryIsBadRequest", func(t *testing.T) {
		w := doGet(t, mux, "/api/v1/entities/search")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRelationshipEndpoints(t *testing.T) {
	db, mux := setupEntityRoutes(t)
	client := testutil.CreateTestClient(t, db)
	contractA := testutil.CreateTestContract(t, db, client.ID)
	testutil.CreateTestContract(t, db, client.ID, func(c *models.Contract) {
		c.ContractNumber = "CTR-2025-0002"
	})

	type relationshipsResponse struct {
		Relationships []relationship.Group `json:"relationships"`
		Count         int                  `json:"count"`
	}

	t.Run("GroupsForwardEdges", func(t *testing.T) {
		w := doGet(t, mux, "/api/v1/entities/client/"+client.ID.String()+"/relationships")

		assert.Equal(t, http.StatusOK, w.Code)

		var resp relationshipsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Count)
		require.Len(t, resp.Relationships, 1)
		assert.Equal(t, relationship.RelationOwns, resp.Relationships[0].RelationshipType)
	})

	t.Run("LimitCapsEachBranch", func(t *testing.T) {
		w := doGet(t, mux, "/api/v1/entities/client/"+client.ID.String()+"/relationships?limit=1")

		var resp relationshipsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Count)
	})

	t.Run("ReverseSideSeesMirrorEdge", func(t *testing.T) {
		w := doGet(t, mux, "/api/v1/entities/contract/"+contractA.ID.String()+"/relationships")

		var resp relationshipsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Relationships)

		var found bool
		for _, group := range resp.Relationships {
			for _, rel := range group.Relationships {
				if rel.IsReverse && rel.SourceEntity != nil && rel.SourceEntity.ID == client.ID.String() {
					found = true
				}
			}
		}
		assert.True(t, found, "expected a reverse edge pointing back at the owning client")
	})

	t.Run("StatsReduceToCounts", func(t *testing.T) {
		w := doGet(t, mux, "/api/v1/entities/client/"+client.ID.String()+"/relationships/stats")

		assert.Equal(t, http.StatusOK, w.Code)

		var stats relationship.Stats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, 2, stats.TotalRelationships)
		assert.Equal(t, 2, stats.RelationshipTypes[relationship.RelationOwns])
	})

	t.Run("UnknownTypeYieldsEmptyGroups", func(t *testing.T) {
		w := doGet(t, mux, "/api/v1/entities/starship/"+client.ID.String()+"/relationships")

		assert.Equal(t, http.StatusOK, w.Code)

		var resp relationshipsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp.Count)
		assert.Empty(t, resp.Relationships)
	})
}

func TestRelatedEntitiesEndpoint(t *testing.T) {
	db, mux := setupEntityRoutes(t)
	client := testutil.CreateTestClient(t, db)
	testutil.CreateTestContract(t, db, client.ID)
	testutil.CreateTestContract(t, db, client.ID, func(c *models.Contract) {
		c.ContractNumber = "CTR-2025-0002"
	})
	testutil.CreateTestSAF(t, db, client.ID)

	type relatedResponse struct {
		Entities []registry.Reference `json:"entities"`
		Count    int                  `json:"count"`
	}

	t.Run("FiltersToRequestedType", func(t *testing.T) {
		w := doGet(t, mux, "/api/v1/entities/client/"+client.ID.String()+"/related/contract")

		assert.Equal(t, http.StatusOK, w.Code)

		var resp relatedResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Count)
		for _, entity := range resp.Entities {
			assert.Equal(t, registry.EntityContract, entity.Type)
		}
	})

	t.Run("RelationshipTypeFilter", func(t *testing.T) {
		w := doGet(t, mux, "/api/v1/entities/client/"+client.ID.String()+"/related/contract?relationshipType=ASSIGNED")

		var resp relatedResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp.Count)
	})

	t.Run("UnknownRelatedTypeIsBadRequest", func(t *testing.T) {
		w := doGet(t, mux, "/api/v1/entities/client/"+client.ID.String()+"/related/starship")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
