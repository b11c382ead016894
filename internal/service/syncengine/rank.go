package syncengine

import (
	"sort"
	"time"

	"github.com/ifuryst/agencylens/internal/models"
)

// Rank orders companies oldest data first. A company's age is the oldest
// lastSuccessAt across its statuses; a company with any never-synced status
// (or no status at all) sorts before every synced one. Ties keep input order.
func Rank(companies []models.Company, statusByCompany map[string][]models.SyncStatus) []models.Company {
	type key struct {
		never  bool
		oldest time.Time
	}

	keys := make([]key, len(companies))
	for i, c := range companies {
		rows := statusByCompany[c.ID]
		if len(rows) == 0 {
			keys[i] = key{never: true}
			continue
		}
		k := key{}
		for _, row := range rows {
			if row.LastSuccessAt == nil {
				k.never = true
				break
			}
			if k.oldest.IsZero() || row.LastSuccessAt.Before(k.oldest) {
				k.oldest = *row.LastSuccessAt
			}
		}
		keys[i] = k
	}

	idx := make([]int, len(companies))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka.never != kb.never {
			return ka.never
		}
		if ka.never {
			return false
		}
		return ka.oldest.Before(kb.oldest)
	})

	out := make([]models.Company, len(companies))
	for i, j := range idx {
		out[i] = companies[j]
	}
	return out
}
