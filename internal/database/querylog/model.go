package querylog

import (
	"time"

	"github.com/uptrace/bun"
)

// LoggedQuery is one processed query with its outcome, persisted for audit
// and quality tracking.
type LoggedQuery struct {
	bun.BaseModel `bun:"table:query_log,alias:ql"`

	ID         int64     `bun:",pk,autoincrement"`
	RequestID  string    `bun:",notnull"`
	Query      string    `bun:",notnull"`
	QueryType  string    `bun:",notnull"`
	Confidence float64   `bun:",notnull"`
	NumSources int       `bun:",notnull"`
	LatencyMs  int64     `bun:",notnull"`
	Warning    string    `bun:",nullzero"`
	CreatedAt  time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
