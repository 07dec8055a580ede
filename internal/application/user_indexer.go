package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/taskboard/taskboard/internal/domain/entity"
)

// UserIndexer mirrors user records into Elasticsearch for the assignment
// picker's search. Indexing is best-effort: a failed index never fails the
// request that triggered it. A nil indexer (or one with no client) is a no-op
// and search callers fall back to the repository.
type UserIndexer struct {
	ES     *elasticsearch.Client
	Index  string
	Logger *logrus.Logger
}

func NewUserIndexer(es *elasticsearch.Client, index string, logger *logrus.Logger) *UserIndexer {
	return &UserIndexer{ES: es, Index: index, Logger: logger}
}

func (ix *UserIndexer) enabled() bool {
	return ix != nil && ix.ES != nil && ix.Index != ""
}

// IndexUser writes (or overwrites) the user's search document.
func (ix *UserIndexer) IndexUser(ctx context.Context, u *entity.User) {
	if !ix.enabled() {
		return
	}
	doc := map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"role":       u.Role,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: ix.Index, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, ix.ES)
	if err != nil {
		if ix.Logger != nil {
			ix.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && ix.Logger != nil {
		ix.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
}

// Search returns up to size non-admin users whose email contains q,
// ordered by email ascending. ok is false when the indexer is disabled or the
// query failed, in which case the caller should fall back to the repository.
func (ix *UserIndexer) Search(ctx context.Context, q string, size int) (refs []entity.UserRef, ok bool) {
	if !ix.enabled() {
		return nil, false
	}
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"wildcard": map[string]any{
						"email.keyword": map[string]any{
							"value":            "*" + strings.ToLower(q) + "*",
							"case_insensitive": true,
						},
					},
				},
				"must_not": map[string]any{
					"term": map[string]any{"role": "admin"},
				},
			},
		},
		"sort": []map[string]any{{"email.keyword": map[string]any{"order": "asc"}}},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := ix.ES.Search(
		ix.ES.Search.WithContext(c),
		ix.ES.Search.WithIndex(ix.Index),
		ix.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		if ix.Logger != nil {
			ix.Logger.WithError(err).Warn("es search failed")
		}
		return nil, false
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		if ix.Logger != nil {
			ix.Logger.WithField("status", res.Status()).Warn("es search response error")
		}
		return nil, false
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source struct {
					ID    string `json:"id"`
					Email string `json:"email"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, false
	}

	out := make([]entity.UserRef, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, entity.UserRef{ID: h.Source.ID, Email: h.Source.Email})
	}
	return out, true
}
