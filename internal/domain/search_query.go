package domain

import "time"

// SearchQuery is one logged semantic search, recorded best-effort after the
// search response is assembled.
type SearchQuery struct {
	ID                 string    `gorm:"type:text;primaryKey" json:"id"`
	UserID             string    `gorm:"type:text;not null;index:idx_search_queries_user" json:"user_id"`
	Query              string    `gorm:"type:text;not null" json:"query"`
	ResultCount        int       `json:"result_count"`
	MaxSimilarityScore *float32  `json:"max_similarity_score,omitempty"`
	ResultsMetadata    JSONMap   `gorm:"type:text" json:"results_metadata,omitempty"`
	CreatedAt          time.Time `gorm:"index:idx_search_queries_created" json:"created_at"`
}

// TableName returns the database table name for SearchQuery.
func (SearchQuery) TableName() string {
	return "search_queries"
}
